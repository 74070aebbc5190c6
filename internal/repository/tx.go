package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRepos exposes repositories bound to one database transaction.
type TxRepos interface {
	Users() UserRepository
	Posts() PostRepository
	Comments() CommentRepository
	Tokens() TokenRepository
}

// TxManager runs fn inside a transaction. Returning an error rolls back.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}

// commitHooks defers cache invalidation until the transaction has committed,
// so readers cannot repopulate the cache with pre-commit rows.
type commitHooks struct {
	fns []func()
}

func (h *commitHooks) run(fn func()) {
	if h == nil {
		fn()
		return
	}
	h.fns = append(h.fns, fn)
}

type txRepos struct {
	users    UserRepository
	posts    PostRepository
	comments CommentRepository
	tokens   TokenRepository
}

func (r *txRepos) Users() UserRepository       { return r.users }
func (r *txRepos) Posts() PostRepository       { return r.posts }
func (r *txRepos) Comments() CommentRepository { return r.comments }
func (r *txRepos) Tokens() TokenRepository     { return r.tokens }

type txManager struct {
	db *gorm.DB
}

// NewTxManager returns a GORM-backed TxManager.
func NewTxManager(db *gorm.DB) TxManager {
	return &txManager{db: db}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(r TxRepos) error) error {
	hooks := &commitHooks{}
	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&txRepos{
			users:    &userRepository{db: tx, hooks: hooks, log: userLog},
			posts:    &postRepository{db: tx, hooks: hooks, log: postLog},
			comments: &commentRepository{db: tx, hooks: hooks, log: commentLog},
			tokens:   &tokenRepository{db: tx},
		})
	})
	if err != nil {
		return err
	}
	for _, f := range hooks.fns {
		f()
	}
	return nil
}
