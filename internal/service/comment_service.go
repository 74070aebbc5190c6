package service

import (
	"context"

	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"
	"github.com/IlyaEru/blog-api/internal/repository"
	"github.com/IlyaEru/blog-api/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	tx          repository.TxManager
}

type CreateCommentInput struct {
	PostID uint
	Name   string
	Body   string
}

// UpdateCommentInput leaves nil fields unchanged. The post of a comment
// cannot be changed.
type UpdateCommentInput struct {
	CommentID uint
	Name      *string
	Body      *string
}

type ListCommentsInput struct {
	PostID uint
	Limit  int
	Offset int
}

func NewCommentService(commentRepo repository.CommentRepository, tx repository.TxManager) *CommentService {
	return &CommentService{commentRepo: commentRepo, tx: tx}
}

// CreateComment inserts the comment and appends its id to the post's
// comment_ids while holding the post row lock. An unknown post is a
// validation error.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	if in.PostID == 0 {
		return nil, models.NewValidationError("postId is required")
	}
	if err := validation.ValidateCommentName(in.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateCommentBody(in.Body); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "CreateComment",
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() { observability.EndSpan(span, err) }()

	comment = &models.Comment{PostID: in.PostID, Name: in.Name, Body: in.Body}
	err = s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		post, err := r.Posts().GetForUpdate(ctx, in.PostID)
		if models.HasCode(err, models.CodeNotFound) {
			return models.NewValidationError("Post not found")
		}
		if err != nil {
			return err
		}
		if err := r.Comments().Create(ctx, comment); err != nil {
			return err
		}
		ids := append(models.IDList{}, post.CommentIDs...)
		return r.Posts().SetCommentIDs(ctx, post.ID, append(ids, comment.ID))
	})
	if err != nil {
		return nil, err
	}
	observability.RecordContentOperation("comment", "create", 1)
	return comment, nil
}

func (s *CommentService) GetComment(ctx context.Context, id uint) (*models.Comment, error) {
	return s.commentRepo.GetByID(ctx, id)
}

func (s *CommentService) ListComments(ctx context.Context, in ListCommentsInput) ([]models.Comment, error) {
	return s.commentRepo.List(ctx, repository.CommentFilter{PostID: in.PostID, Limit: in.Limit, Offset: in.Offset})
}

func (s *CommentService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	in.Name, in.Body = trimmed(in.Name), trimmed(in.Body)
	if in.Name != nil {
		if err := validation.ValidateCommentName(*in.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		if *in.Name == "" {
			name := models.DefaultCommentName
			in.Name = &name
		}
	}
	if in.Body != nil {
		if err := validation.ValidateCommentBody(*in.Body); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	comment, err := s.commentRepo.Update(ctx, in.CommentID, repository.CommentChanges{Name: in.Name, Body: in.Body})
	if err != nil {
		return nil, err
	}
	observability.RecordContentOperation("comment", "update", 1)
	return comment, nil
}

// DeleteComment removes one comment and its id from its post.
func (s *CommentService) DeleteComment(ctx context.Context, id uint) error {
	var found int
	err := s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		n, err := removeComments(ctx, r, []uint{id})
		found = n
		if err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("Comment", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	observability.RecordContentOperation("comment", "delete", found)
	return nil
}

// DeleteComments removes every existing comment among ids and returns how
// many were deleted. Unknown ids are ignored.
func (s *CommentService) DeleteComments(ctx context.Context, ids []uint) (deleted int, err error) {
	if err := validation.ValidateIDs(ids); err != nil {
		return 0, models.NewValidationError(err.Error())
	}

	ctx, span := observability.StartServiceSpan(ctx, "CommentService", "DeleteComments",
		attribute.Int("comments.requested", len(ids)))
	defer func() { observability.EndSpan(span, err) }()

	err = s.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		n, err := removeComments(ctx, r, ids)
		deleted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	observability.RecordContentOperation("comment", "delete", deleted)
	return deleted, nil
}

// removeComments locks the affected posts in id order, strips the comment ids
// from their comment_ids and deletes the comments. It returns the number of
// rows actually deleted.
func removeComments(ctx context.Context, r repository.TxRepos, ids []uint) (int, error) {
	comments, err := r.Comments().ListByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(comments) == 0 {
		return 0, nil
	}

	existing := make([]uint, 0, len(comments))
	seen := make(map[uint]struct{})
	postIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		existing = append(existing, c.ID)
		if _, ok := seen[c.PostID]; !ok {
			seen[c.PostID] = struct{}{}
			postIDs = append(postIDs, c.PostID)
		}
	}

	posts, err := r.Posts().ListForUpdate(ctx, postIDs)
	if err != nil {
		return 0, err
	}
	for _, p := range posts {
		if err := r.Posts().SetCommentIDs(ctx, p.ID, p.CommentIDs.Without(existing...)); err != nil {
			return 0, err
		}
	}

	// A concurrent delete may have removed some rows since ListByIDs.
	n, err := r.Comments().DeleteByIDs(ctx, existing)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
