// Command main runs the database seeder for the blog API.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/middleware"
	"github.com/IlyaEru/blog-api/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()

	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	maxComments := flag.Int("comments", defaults.MaxCommentsPerPost, "Maximum comments per post")
	published := flag.Float64("published", defaults.PublishedRatio, "Share of posts created published (0-1)")
	maxDays := flag.Int("days", defaults.MaxDays, "Spread creation dates over this many days")
	shouldClean := flag.Bool("clean", defaults.ShouldClean, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate content without writing to the database")
	skipBcrypt := flag.Bool("skip-bcrypt", false, "Store the seed password unhashed (users cannot log in)")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible content (0 = time based)")
	flag.Parse()

	opts := seed.Options{
		NumUsers:           *numUsers,
		NumPosts:           *numPosts,
		MaxCommentsPerPost: *maxComments,
		PublishedRatio:     *published,
		ShouldClean:        *shouldClean,
		SkipBcrypt:         *skipBcrypt,
		DryRun:             *dryRun,
		MaxDays:            *maxDays,
		RandSeed:           *randSeed,
	}
	if opts.PublishedRatio < 0 || opts.PublishedRatio > 1 {
		log.Fatalf("-published must be between 0 and 1, got %v", opts.PublishedRatio)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.ConfigureLogger(os.Stdout, cfg.Env, os.Getenv("LOG_LEVEL"))

	var res *seed.Result
	if opts.DryRun {
		res, err = seed.Seed(nil, opts)
	} else {
		db, cerr := database.Connect(cfg)
		if cerr != nil {
			log.Fatalf("Failed to connect to database: %v", cerr)
		}
		res, err = seed.Seed(db, opts)
	}
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	middleware.Logger.Info("seed finished",
		slog.Int("users", len(res.Users)),
		slog.Int("posts", len(res.Posts)),
		slog.Int("comments", res.Comments),
	)
	if !opts.SkipBcrypt && !opts.DryRun {
		log.Printf("All seeded users have the password: %s", seed.DefaultPassword)
	}
}
