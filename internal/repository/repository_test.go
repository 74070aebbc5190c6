package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IlyaEru/blog-api/internal/cache"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewClient(mr.Addr())
	require.NoError(t, err)
	cache.SetClient(c)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = c.Close()
	})
	return mr
}

func ptr[T any](v T) *T { return &v }

func TestUserRepository_CRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Username: "  Alice ", Password: "hash"}
	require.NoError(t, repo.Create(ctx, user))
	assert.Equal(t, "Alice", user.Username)

	got, err := repo.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	missing, err := repo.GetByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)

	taken, err := repo.IsUsernameTaken(ctx, "alice", 0)
	require.NoError(t, err)
	assert.True(t, taken)
	taken, err = repo.IsUsernameTaken(ctx, "alice", user.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	updated, err := repo.Update(ctx, user.ID, UserChanges{Username: ptr("alicia")})
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "hash", updated.Password, "password column must survive a username change")

	require.NoError(t, repo.Delete(ctx, user.ID))
	err = repo.Delete(ctx, user.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	_, err = repo.GetByID(ctx, user.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "carol", Password: "x"}))
	err := repo.Create(ctx, &models.User{Username: "CAROL", Password: "y"})

	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeDuplicate, appErr.Code)
	assert.Equal(t, "Username is already taken", appErr.Message)
}

func TestPostRepository_ListOrderAndFilter(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	for _, p := range []*models.Post{
		{Title: "First post", Body: "body one", Published: true},
		{Title: "Second post", Body: "body two"},
		{Title: "Third post", Body: "body three", Published: true},
	} {
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.List(ctx, PostFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Third post", all[0].Title)

	published, err := repo.List(ctx, PostFilter{Published: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, published, 2)

	page, err := repo.List(ctx, PostFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Second post", page[0].Title)
}

func TestPostRepository_UpdateTitleConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	a := &models.Post{Title: "Hello", Body: "first body"}
	b := &models.Post{Title: "World", Body: "second body"}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	_, err := repo.Update(ctx, b.ID, PostChanges{Title: ptr("HELLO")})
	assert.True(t, models.HasCode(err, models.CodeDuplicate))

	updated, err := repo.Update(ctx, b.ID, PostChanges{Body: ptr("new body"), Published: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "World", updated.Title)
	assert.Equal(t, "new body", updated.Body)
	assert.True(t, updated.Published)

	_, err = repo.Update(ctx, 999, PostChanges{Body: ptr("nope")})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestPostRepository_SetCommentIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := &models.Post{Title: "Ids", Body: "body text"}
	require.NoError(t, repo.Create(ctx, post))

	fresh, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.CommentIDs)

	require.NoError(t, repo.SetCommentIDs(ctx, post.ID, models.IDList{3, 1, 2}))
	locked, err := repo.GetForUpdate(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{3, 1, 2}, locked.CommentIDs)

	err = repo.SetCommentIDs(ctx, 999, nil)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_ListAndDelete(t *testing.T) {
	db := newTestDB(t)
	posts := NewPostRepository(db)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	p1 := &models.Post{Title: "One", Body: "body one"}
	p2 := &models.Post{Title: "Two", Body: "body two"}
	require.NoError(t, posts.Create(ctx, p1))
	require.NoError(t, posts.Create(ctx, p2))

	c1 := &models.Comment{PostID: p1.ID, Body: "nice post"}
	c2 := &models.Comment{PostID: p1.ID, Name: "Dan", Body: "agreed"}
	c3 := &models.Comment{PostID: p2.ID, Body: "elsewhere"}
	for _, c := range []*models.Comment{c1, c2, c3} {
		require.NoError(t, repo.Create(ctx, c))
	}
	assert.Equal(t, models.DefaultCommentName, c1.Name)

	byPost, err := repo.List(ctx, CommentFilter{PostID: p1.ID})
	require.NoError(t, err)
	assert.Len(t, byPost, 2)

	all, err := repo.List(ctx, CommentFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	found, err := repo.ListByIDs(ctx, []uint{c1.ID, c3.ID, 999})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	ids, err := repo.DeleteByPostID(ctx, p1.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{c1.ID, c2.ID}, ids)

	n, err := repo.DeleteByIDs(ctx, []uint{c3.ID, c1.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByID(ctx, c3.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_Update(t *testing.T) {
	db := newTestDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	c := &models.Comment{PostID: 1, Name: "Eve", Body: "original"}
	require.NoError(t, repo.Create(ctx, c))

	updated, err := repo.Update(ctx, c.ID, CommentChanges{Body: ptr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "Eve", updated.Name)
	assert.Equal(t, "edited", updated.Body)

	_, err = repo.Update(ctx, 404, CommentChanges{Body: ptr("edited")})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestTokenRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewTokenRepository(db)
	ctx := context.Background()

	now := time.Now()
	live := &models.Token{Token: "live", UserID: 1, Type: models.TokenTypeRefresh, ExpiresAt: now.Add(time.Hour)}
	stale := &models.Token{Token: "stale", UserID: 1, Type: models.TokenTypeRefresh, ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.FindValid(ctx, "live", 1, models.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	_, err = repo.FindValid(ctx, "live", 2, models.TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, repo.SetBlacklisted(ctx, "live", true))
	_, err = repo.FindValid(ctx, "live", 1, models.TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrTokenNotFound)
	_, err = repo.FindByToken(ctx, "live", models.TokenTypeRefresh, true)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.SetBlacklisted(ctx, "ghost", true), ErrTokenNotFound)

	purged, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	require.NoError(t, repo.DeleteByID(ctx, live.ID))
	assert.ErrorIs(t, repo.DeleteByID(ctx, live.ID), ErrTokenNotFound)

	tokens, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, tokens)
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	tx := NewTxManager(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := tx.WithinTx(ctx, func(r TxRepos) error {
		if err := r.Users().Create(ctx, &models.User{Username: "ghost", Password: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := NewUserRepository(db).GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTxManager_InvalidatesAfterCommit(t *testing.T) {
	mr := setupRedis(t)
	db := newTestDB(t)
	ctx := context.Background()

	posts := NewPostRepository(db)
	post := &models.Post{Title: "Cached", Body: "cached body"}
	require.NoError(t, posts.Create(ctx, post))
	_, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.PostKey(ctx, post.ID)))

	err = NewTxManager(db).WithinTx(ctx, func(r TxRepos) error {
		if err := r.Posts().SetCommentIDs(ctx, post.ID, models.IDList{7}); err != nil {
			return err
		}
		assert.True(t, mr.Exists(cache.PostKey(ctx, post.ID)), "invalidation must wait for commit")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PostKey(ctx, post.ID)))

	got, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{7}, got.CommentIDs)
}

func TestTxManager_RollbackSkipsInvalidation(t *testing.T) {
	mr := setupRedis(t)
	db := newTestDB(t)
	ctx := context.Background()

	posts := NewPostRepository(db)
	post := &models.Post{Title: "Kept", Body: "kept body"}
	require.NoError(t, posts.Create(ctx, post))
	_, err := posts.GetByID(ctx, post.ID)
	require.NoError(t, err)

	_ = NewTxManager(db).WithinTx(ctx, func(r TxRepos) error {
		_ = r.Posts().SetCommentIDs(ctx, post.ID, models.IDList{1})
		return errors.New("abort")
	})
	assert.True(t, mr.Exists(cache.PostKey(ctx, post.ID)))
}
