package service

import (
	"context"
	"strings"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"
	"github.com/IlyaEru/blog-api/internal/repository"
	"github.com/IlyaEru/blog-api/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

const msgTitleTaken = "Post title is already taken"

type PostService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	tx          repository.TxManager
}

type CreatePostInput struct {
	Title     string
	Body      string
	Published bool
}

type ListPostsInput struct {
	Published *bool
	Limit     int
	Offset    int
}

// UpdatePostInput leaves nil fields unchanged.
type UpdatePostInput struct {
	PostID    uint
	Title     *string
	Body      *string
	Published *bool
}

func NewPostService(postRepo repository.PostRepository, commentRepo repository.CommentRepository, tx repository.TxManager) *PostService {
	return &PostService{postRepo: postRepo, commentRepo: commentRepo, tx: tx}
}

func (s *PostService) IsPostTitleTaken(ctx context.Context, title string, excludeID uint) (bool, error) {
	return s.postRepo.IsTitleTaken(ctx, title, excludeID)
}

func (s *PostService) checkTitle(ctx context.Context, title string, excludeID uint) error {
	if err := validation.ValidatePostTitle(title); err != nil {
		return models.NewValidationError(err.Error())
	}
	taken, err := s.postRepo.IsTitleTaken(ctx, title, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return models.NewDuplicateError(msgTitleTaken)
	}
	return nil
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := s.checkTitle(ctx, in.Title, 0); err != nil {
		return nil, err
	}
	if err := validation.ValidatePostBody(in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{Title: in.Title, Body: in.Body, Published: in.Published}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	observability.RecordContentOperation("post", "create", 1)
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, id)
}

func (s *PostService) ListPosts(ctx context.Context, in ListPostsInput) ([]models.Post, error) {
	return s.postRepo.List(ctx, repository.PostFilter{
		Published: in.Published,
		Limit:     in.Limit,
		Offset:    in.Offset,
	})
}

// ListPostComments returns the comments of an existing post.
func (s *PostService) ListPostComments(ctx context.Context, postID uint, limit, offset int) ([]models.Comment, error) {
	if _, err := s.postRepo.GetByID(ctx, postID); err != nil {
		return nil, err
	}
	return s.commentRepo.List(ctx, repository.CommentFilter{PostID: postID, Limit: limit, Offset: offset})
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	in.Title, in.Body = trimmed(in.Title), trimmed(in.Body)
	if in.Title != nil {
		if err := s.checkTitle(ctx, *in.Title, in.PostID); err != nil {
			return nil, err
		}
	}
	if in.Body != nil {
		if err := validation.ValidatePostBody(*in.Body); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	post, err := s.postRepo.Update(ctx, in.PostID, repository.PostChanges{
		Title:     in.Title,
		Body:      in.Body,
		Published: in.Published,
	})
	if err != nil {
		return nil, err
	}
	observability.RecordContentOperation("post", "update", 1)
	return post, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

// SetPublished publishes or unpublishes a post.
func (s *PostService) SetPublished(ctx context.Context, id uint, published bool) (*models.Post, error) {
	return s.UpdatePost(ctx, UpdatePostInput{PostID: id, Published: &published})
}

// DeletePost removes the post and every comment referencing it in one
// transaction, so no orphan comment survives.
func (s *PostService) DeletePost(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartServiceSpan(ctx, "PostService", "DeletePost",
		attribute.Int64("post.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	var removed []uint
	err = s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		if _, err := r.Posts().GetForUpdate(ctx, id); err != nil {
			return err
		}
		ids, err := r.Comments().DeleteByPostID(ctx, id)
		if err != nil {
			return err
		}
		removed = ids
		return r.Posts().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	observability.RecordContentOperation("post", "delete", 1)
	observability.RecordContentOperation("comment", "cascade_delete", len(removed))
	return nil
}
