// Package main provides account and token maintenance utilities for the blog API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/repository"
	"github.com/IlyaEru/blog-api/internal/validation"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

const usageText = `Usage:
  admin list-users [limit]                 - List users
  admin reset-password <user_id> <pass>    - Set a new password and revoke sessions
  admin sessions <user_id>                 - List refresh tokens of a user
  admin revoke-token <refresh_token>       - Blacklist a refresh token
  admin revoke-sessions <user_id>          - Delete every refresh token of a user
  admin purge-tokens                       - Delete expired refresh tokens
  admin export-config                      - Print the effective configuration as YAML`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usageText)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	command := os.Args[1]
	if command == "export-config" {
		if err := exportConfig(cfg); err != nil {
			log.Fatalf("Failed to export config: %v", err)
		}
		return
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	a := &admin{
		out:    os.Stdout,
		cfg:    cfg,
		users:  repository.NewUserRepository(db),
		tokens: repository.NewTokenRepository(db),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := a.run(ctx, command, os.Args[2:]); err != nil {
		log.Fatalf("%s: %v", command, err)
	}
}

type admin struct {
	out    io.Writer
	cfg    *config.Config
	users  repository.UserRepository
	tokens repository.TokenRepository
}

func (a *admin) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "list-users":
		limit := 100
		if len(args) > 0 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid limit %q", args[0])
			}
			limit = n
		}
		return a.listUsers(ctx, limit)
	case "reset-password":
		if len(args) < 2 {
			return errors.New("usage: admin reset-password <user_id> <password>")
		}
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return a.resetPassword(ctx, id, args[1])
	case "sessions":
		if len(args) < 1 {
			return errors.New("usage: admin sessions <user_id>")
		}
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		return a.listSessions(ctx, id)
	case "revoke-token":
		if len(args) < 1 {
			return errors.New("usage: admin revoke-token <refresh_token>")
		}
		if err := a.tokens.SetBlacklisted(ctx, args[0], true); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Token blacklisted")
		return nil
	case "revoke-sessions":
		if len(args) < 1 {
			return errors.New("usage: admin revoke-sessions <user_id>")
		}
		id, err := parseUserID(args[0])
		if err != nil {
			return err
		}
		n, err := a.tokens.DeleteByUserID(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %d refresh tokens of user %d\n", n, id)
		return nil
	case "purge-tokens":
		n, err := a.tokens.DeleteExpired(ctx, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Deleted %d expired refresh tokens\n", n)
		return nil
	default:
		return fmt.Errorf("unknown command\n%s", usageText)
	}
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return uint(id), nil
}

func (a *admin) listUsers(ctx context.Context, limit int) error {
	users, err := a.users.List(ctx, limit, 0)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No users found")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(a.out, "ID: %d | Username: %s | Created: %s\n", u.ID, u.Username, u.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *admin) resetPassword(ctx context.Context, id uint, password string) error {
	if err := validation.ValidatePassword(password); err != nil {
		return err
	}
	cost := a.cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return err
	}
	hash := string(hashed)
	user, err := a.users.Update(ctx, id, repository.UserChanges{PasswordHash: &hash})
	if err != nil {
		return err
	}
	n, err := a.tokens.DeleteByUserID(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Password reset for %s (ID: %d), %d sessions revoked\n", user.Username, user.ID, n)
	return nil
}

func (a *admin) listSessions(ctx context.Context, userID uint) error {
	tokens, err := a.tokens.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		fmt.Fprintln(a.out, "No refresh tokens found")
		return nil
	}
	now := time.Now()
	for _, t := range tokens {
		state := "active"
		switch {
		case t.Blacklisted:
			state = "blacklisted"
		case t.ExpiresAt.Before(now):
			state = "expired"
		}
		fmt.Fprintf(a.out, "ID: %d | %s | expires %s | %s\n", t.ID, state, t.ExpiresAt.Format(time.RFC3339), tokenPrefix(t.Token))
	}
	return nil
}

// tokenPrefix shortens a refresh token for display; the full value is a
// live credential.
func tokenPrefix(token string) string {
	const keep = 10
	if len(token) <= keep {
		return "..."
	}
	return token[:keep] + "..."
}

// exportConfig prints cfg with secrets omitted by their yaml tags.
func exportConfig(cfg *config.Config) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(cfg)
}
