// Command migrate applies, inspects and rolls back the blog API schema.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/middleware"

	"gorm.io/gorm"
)

const usageText = "usage: migrate [-timeout 2m] <up|auto|status|list|down <version>>"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	timeout := flag.Duration("timeout", 2*time.Minute, "Deadline for the whole schema operation")
	flag.Parse()
	if flag.NArg() < 1 {
		return fmt.Errorf(usageText)
	}
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))

	// list only reads the embedded files.
	if cmd == "list" {
		for _, m := range database.GetMigrations() {
			fmt.Println(m.String())
		}
		return nil
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	middleware.ConfigureLogger(os.Stdout, cfg.Env, os.Getenv("LOG_LEVEL"))

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch cmd {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		middleware.Logger.Info("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		middleware.Logger.Info("automigrations applied")
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: migrate down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		middleware.Logger.Info("migration rolled back", slog.Int("version", version))
	default:
		return fmt.Errorf(usageText)
	}

	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	fmt.Printf("mode=%s dialect=%s env=%s run_sql=%t run_auto=%t\n",
		status.Mode, status.Dialect, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
	if len(status.MissingIndexes) > 0 {
		fmt.Printf("missing unique indexes: %s\n", strings.Join(status.MissingIndexes, ", "))
	}
	fmt.Printf("applied: %v\n", status.AppliedVersions)
	if len(status.PendingMigrations) == 0 {
		fmt.Println("pending: none")
		return nil
	}
	for _, m := range status.PendingMigrations {
		fmt.Printf("pending: %s\n", m.String())
	}
	return nil
}
