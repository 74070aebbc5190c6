package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/middleware"
	"github.com/IlyaEru/blog-api/internal/models"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// uniqueIndex is a storage-level uniqueness rule the services rely on.
// The is-taken checks in the services are advisory; these indexes are not.
type uniqueIndex struct {
	model any
	name  string
}

var uniqueIndexes = []uniqueIndex{
	{&models.User{}, "idx_users_username_key"},
	{&models.Post{}, "idx_posts_title_key"},
	{&models.Token{}, "idx_tokens_token"},
}

// schemaPlan is what ApplySchema does for one database.
type schemaPlan struct {
	mode    string
	dialect string
	sql     bool
	auto    bool
}

func schemaMode(cfg *config.Config) string {
	if mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)); mode != "" {
		return mode
	}
	return SchemaModeHybrid
}

// devLikeEnv reports whether AutoMigrate may run without explicit consent.
func devLikeEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "development", "dev", "test", "local":
		return true
	}
	return false
}

// planSchema decides between the embedded SQL migrations and AutoMigrate.
// The SQL files are PostgreSQL DDL, so every other dialect is AutoMigrated
// whatever the mode.
func planSchema(dialect string, cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{mode: schemaMode(cfg), dialect: dialect}
	switch plan.mode {
	case SchemaModeSQL, SchemaModeAuto, SchemaModeHybrid:
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.mode)
	}

	if dialect != "postgres" {
		plan.auto = true
		return plan, nil
	}

	switch plan.mode {
	case SchemaModeSQL:
		plan.sql = true
	case SchemaModeAuto:
		if !devLikeEnv(cfg.Env) && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.auto = true
	case SchemaModeHybrid:
		// Migrations own the schema; AutoMigrate only fills dev-time model drift.
		plan.sql = true
		plan.auto = devLikeEnv(cfg.Env)
	}
	return plan, nil
}

// missingUniqueIndexes lists the uniqueness indexes absent from db.
func missingUniqueIndexes(db *gorm.DB) []string {
	var missing []string
	m := db.Migrator()
	for _, idx := range uniqueIndexes {
		if !m.HasIndex(idx.model, idx.name) {
			missing = append(missing, idx.name)
		}
	}
	return missing
}

// ApplySchema brings the schema up to date according to DB_SCHEMA_MODE and
// the dialect, then refuses to continue if a uniqueness index is missing.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(db.Dialector.Name(), cfg)
	if err != nil {
		return err
	}

	if plan.sql {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.auto {
		if plan.mode == SchemaModeAuto && !devLikeEnv(cfg.Env) {
			middleware.Logger.Warn("AutoMigrate running outside development; review schema diffs",
				slog.String("env", cfg.Env))
		}
		middleware.Logger.Info("running GORM AutoMigrate",
			slog.String("mode", plan.mode),
			slog.String("dialect", plan.dialect),
		)
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if missing := missingUniqueIndexes(db); len(missing) > 0 {
		return fmt.Errorf("schema is missing unique indexes %s", strings.Join(missing, ", "))
	}
	return nil
}

// SchemaStatus describes what ApplySchema would do and what the database
// currently holds.
type SchemaStatus struct {
	Mode               string
	Dialect            string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
	MissingIndexes     []string
}

// GetSchemaStatus reports the schema plan, pending SQL migrations and
// missing uniqueness indexes.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(db.Dialector.Name(), cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.mode,
		Dialect:            plan.dialect,
		Environment:        cfg.Env,
		WillRunSQL:         plan.sql,
		WillRunAutoMigrate: plan.auto,
		MissingIndexes:     missingUniqueIndexes(db),
	}
	if !plan.sql {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied

	done := make(map[int]struct{}, len(applied))
	for _, v := range applied {
		done[v] = struct{}{}
	}
	for _, m := range GetMigrations() {
		if _, ok := done[m.Version]; !ok {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
