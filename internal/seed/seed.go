package seed

import (
	"fmt"
	"log/slog"

	"github.com/IlyaEru/blog-api/internal/middleware"
	"github.com/IlyaEru/blog-api/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers           int
	NumPosts           int
	MaxCommentsPerPost int
	// PublishedRatio is the share of posts created published, in [0, 1].
	PublishedRatio float64
	ShouldClean    bool
	// SkipBcrypt stores DefaultPassword unhashed; such users cannot log in.
	SkipBcrypt bool
	DryRun     bool
	MaxDays    int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// DefaultOptions returns the options used by cmd/seed without flags.
func DefaultOptions() Options {
	return Options{
		NumUsers:           5,
		NumPosts:           30,
		MaxCommentsPerPost: 6,
		PublishedRatio:     0.7,
		ShouldClean:        true,
		MaxDays:            90,
	}
}

// Result summarizes what a Seed run created.
type Result struct {
	Users    []*models.User
	Posts    []*models.Post
	Comments int
}

// Seed populates the database with demo users, posts and comments.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	log := middleware.Logger
	log.Info("starting database seeding",
		slog.Int("users", opts.NumUsers),
		slog.Int("posts", opts.NumPosts),
		slog.Bool("dry_run", opts.DryRun),
	)

	if opts.ShouldClean && !opts.DryRun {
		if err := Clean(db); err != nil {
			return nil, fmt.Errorf("failed to clean database: %w", err)
		}
	}

	f := NewFactory(db, opts)
	res := &Result{}

	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		res.Users = append(res.Users, user)
	}
	log.Info("users created", slog.Int("count", len(res.Users)))

	titles := make(map[string]struct{}, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		post, err := f.CreatePost(func(p *models.Post) {
			p.Title = uniqueTitle(p.Title, i, titles)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create post: %w", err)
		}
		res.Posts = append(res.Posts, post)

		if opts.MaxCommentsPerPost <= 0 {
			continue
		}
		for n := f.rng.Intn(opts.MaxCommentsPerPost + 1); n > 0; n-- {
			if _, err := f.CreateComment(post); err != nil {
				return nil, fmt.Errorf("failed to create comment: %w", err)
			}
			res.Comments++
		}
	}
	log.Info("posts created", slog.Int("posts", len(res.Posts)), slog.Int("comments", res.Comments))

	log.Info("database seeding completed")
	return res, nil
}

// uniqueTitle disambiguates generated titles that collide case-insensitively.
func uniqueTitle(title string, i int, seen map[string]struct{}) string {
	key := models.NormalizeKey(title)
	if _, taken := seen[key]; taken {
		title = fmt.Sprintf("%s (%d)", title, i+1)
		key = models.NormalizeKey(title)
	}
	seen[key] = struct{}{}
	return title
}

// Clean deletes all tokens, comments, posts and users.
func Clean(db *gorm.DB) error {
	middleware.Logger.Info("clearing existing data")
	return db.Session(&gorm.Session{AllowGlobalUpdate: true}).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Token{}, &models.Comment{}, &models.Post{}, &models.User{}} {
			if err := tx.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
