package service

import (
	"context"
	"strings"
	"testing"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createPost(t *testing.T, s *services, title string) *models.Post {
	t.Helper()
	post, err := s.posts.CreatePost(context.Background(), CreatePostInput{Title: title, Body: "a body for " + title})
	require.NoError(t, err)
	return post
}

func TestPostService_TitleUniqueCaseInsensitive(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	first := createPost(t, s, "Hello World")

	for _, title := range []string{"Hello World", "hello world", "HELLO WORLD", "  Hello World "} {
		_, err := s.posts.CreatePost(ctx, CreatePostInput{Title: title, Body: "another body"})
		assertCode(t, err, models.CodeDuplicate)
	}

	// Keeping its own title is not a conflict.
	same := "hello world"
	updated, err := s.posts.UpdatePost(ctx, UpdatePostInput{PostID: first.ID, Title: &same})
	require.NoError(t, err)
	assert.Equal(t, "hello world", updated.Title)

	other := createPost(t, s, "Other")
	_, err = s.posts.UpdatePost(ctx, UpdatePostInput{PostID: other.ID, Title: &same})
	assertCode(t, err, models.CodeDuplicate)
}

func TestPostService_Boundaries(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		title string
		body  string
		ok    bool
	}{
		{"title at 3", "abc", "body", true},
		{"title at 100", strings.Repeat("t", 100), "body", true},
		{"title at 2", "ab", "body", false},
		{"title at 101", strings.Repeat("x", 101), "body", false},
		{"body at 3", "body three", "abc", true},
		{"body at 10000", "body max", strings.Repeat("b", 10000), true},
		{"body at 2", "body two", "ab", false},
		{"body at 10001", "body over", strings.Repeat("b", 10001), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.posts.CreatePost(ctx, CreatePostInput{Title: tt.title, Body: tt.body})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assertValidationError(t, err)
			}
		})
	}
}

func TestPostService_PublishUnpublish(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Draft")
	assert.False(t, post.Published)

	published, err := s.posts.SetPublished(ctx, post.ID, true)
	require.NoError(t, err)
	assert.True(t, published.Published)

	onlyPublished := true
	list, err := s.posts.ListPosts(ctx, ListPostsInput{Published: &onlyPublished})
	require.NoError(t, err)
	require.Len(t, list, 1)

	unpublished, err := s.posts.SetPublished(ctx, post.ID, false)
	require.NoError(t, err)
	assert.False(t, unpublished.Published)

	_, err = s.posts.SetPublished(ctx, 999, true)
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_CreateAppendsToPost(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Commented")

	c1, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: "first!"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCommentName, c1.Name)
	c2, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Name: "Zoe", Body: "second"})
	require.NoError(t, err)

	got, err := s.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{c1.ID, c2.ID}, got.CommentIDs)
}

func TestCommentService_CreateValidation(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Validated")

	_, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: 999, Body: "orphan"})
	assertValidationError(t, err)
	assert.Equal(t, "Post not found", err.Error())

	_, err = s.comments.CreateComment(ctx, CreateCommentInput{Body: "no post"})
	assertValidationError(t, err)

	_, err = s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: strings.Repeat("c", 1001)})
	assertValidationError(t, err)

	_, err = s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Name: "ab", Body: "fine body"})
	assertValidationError(t, err)

	_, err = s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: strings.Repeat("c", 1000)})
	assert.NoError(t, err)

	var orphans int64
	require.NoError(t, s.db.Model(&models.Comment{}).Where("post_id = ?", 999).Count(&orphans).Error)
	assert.Zero(t, orphans)
}

func TestCommentService_DeleteRemovesFromPost(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Pruned")

	var ids []uint
	for _, body := range []string{"one", "two", "three"} {
		c, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: body})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}

	require.NoError(t, s.comments.DeleteComment(ctx, ids[1]))
	got, err := s.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{ids[0], ids[2]}, got.CommentIDs)

	assertCode(t, s.comments.DeleteComment(ctx, ids[1]), models.CodeNotFound)
}

func TestCommentService_BulkDeleteAcrossPosts(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	p1 := createPost(t, s, "Bulk one")
	p2 := createPost(t, s, "Bulk two")

	a, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: p1.ID, Body: "a body"})
	require.NoError(t, err)
	b, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: p1.ID, Body: "b body"})
	require.NoError(t, err)
	c, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: p2.ID, Body: "c body"})
	require.NoError(t, err)

	n, err := s.comments.DeleteComments(ctx, []uint{a.ID, c.ID, 12345})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got1, err := s.posts.GetPost(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{b.ID}, got1.CommentIDs)
	got2, err := s.posts.GetPost(ctx, p2.ID)
	require.NoError(t, err)
	assert.Empty(t, got2.CommentIDs)

	_, err = s.comments.DeleteComments(ctx, nil)
	assertValidationError(t, err)
}

func TestPostService_DeleteCascades(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Doomed")
	keep := createPost(t, s, "Survivor")

	for _, body := range []string{"c1 body", "c2 body"} {
		_, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: body})
		require.NoError(t, err)
	}
	kept, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: keep.ID, Body: "stays"})
	require.NoError(t, err)

	require.NoError(t, s.posts.DeletePost(ctx, post.ID))

	remaining, err := s.comments.ListComments(ctx, ListCommentsInput{PostID: post.ID})
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = s.comments.GetComment(ctx, kept.ID)
	assert.NoError(t, err)

	assertCode(t, s.posts.DeletePost(ctx, post.ID), models.CodeNotFound)
	_, err = s.posts.ListPostComments(ctx, post.ID, 0, 0)
	assertCode(t, err, models.CodeNotFound)
}

func TestCommentService_UpdateKeepsPost(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Edited")
	c, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Name: "Ann", Body: "before"})
	require.NoError(t, err)

	body := "after"
	updated, err := s.comments.UpdateComment(ctx, UpdateCommentInput{CommentID: c.ID, Body: &body})
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Body)
	assert.Equal(t, "Ann", updated.Name)
	assert.Equal(t, post.ID, updated.PostID)

	short := "x"
	_, err = s.comments.UpdateComment(ctx, UpdateCommentInput{CommentID: c.ID, Body: &short})
	assertValidationError(t, err)
}

// Failure inside the transaction must leave comment_ids untouched.
func TestCommentService_CreateRollsBack(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Atomic")

	failing := &failingTx{inner: repository.NewTxManager(s.db)}
	svc := NewCommentService(repository.NewCommentRepository(s.db), failing)
	_, err := svc.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: "never"})
	require.ErrorIs(t, err, errInjected)

	all, err := s.comments.ListComments(ctx, ListCommentsInput{})
	require.NoError(t, err)
	assert.Empty(t, all)
	got, err := s.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.CommentIDs)
}

// vanishingComments reports zero deleted rows, as when another request
// deleted the same comments between the lookup and the delete.
type vanishingComments struct {
	repository.CommentRepository
}

func (vanishingComments) DeleteByIDs(context.Context, []uint) (int64, error) {
	return 0, nil
}

type vanishingRepos struct {
	repository.TxRepos
}

func (r vanishingRepos) Comments() repository.CommentRepository {
	return vanishingComments{r.TxRepos.Comments()}
}

type vanishingTx struct {
	inner repository.TxManager
}

func (v *vanishingTx) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return v.inner.WithinTx(ctx, func(r repository.TxRepos) error {
		return fn(vanishingRepos{r})
	})
}

func TestCommentService_DeleteCountsAffectedRows(t *testing.T) {
	s := newServices(t)
	ctx := context.Background()
	post := createPost(t, s, "Raced")
	c, err := s.comments.CreateComment(ctx, CreateCommentInput{PostID: post.ID, Body: "contested"})
	require.NoError(t, err)

	svc := NewCommentService(repository.NewCommentRepository(s.db), &vanishingTx{inner: repository.NewTxManager(s.db)})

	assertCode(t, svc.DeleteComment(ctx, c.ID), models.CodeNotFound)
	got, err := s.posts.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IDList{c.ID}, got.CommentIDs, "rolled back")

	n, err := svc.DeleteComments(ctx, []uint{c.ID})
	require.NoError(t, err)
	assert.Zero(t, n)
}
