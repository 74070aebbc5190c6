package repository

import (
	"context"
	"log/slog"

	"github.com/IlyaEru/blog-api/internal/cache"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"

	"gorm.io/gorm"
)

var commentLog = observability.NewRepoLogger("comments")

// CommentFilter narrows List. A zero PostID lists comments of every post.
type CommentFilter struct {
	PostID uint
	Limit  int
	Offset int
}

// CommentChanges lists the columns to update; nil fields are left untouched.
type CommentChanges struct {
	Name *string
	Body *string
}

// CommentRepository defines interface for comment operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	List(ctx context.Context, filter CommentFilter) ([]models.Comment, error)
	// ListByIDs returns the existing comments among ids.
	ListByIDs(ctx context.Context, ids []uint) ([]models.Comment, error)
	Update(ctx context.Context, id uint, changes CommentChanges) (*models.Comment, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
	// DeleteByPostID removes every comment of a post and returns their ids.
	DeleteByPostID(ctx context.Context, postID uint) ([]uint, error)
}

type commentRepository struct {
	db    *gorm.DB
	hooks *commitHooks
	log   *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository.
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: commentLog}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.log.LogCreate(ctx, slog.Uint64("id", uint64(comment.ID)), slog.Uint64("post_id", uint64(comment.PostID)))
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	err := cache.Aside(ctx, cache.CommentKey(ctx, id), &comment, cache.CommentTTL, func() error {
		return translateReadError(r.db.WithContext(ctx).First(&comment, id).Error, "Comment", id)
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *commentRepository) List(ctx context.Context, filter CommentFilter) ([]models.Comment, error) {
	limit, offset := clampPage(filter.Limit, filter.Offset)
	comments := []models.Comment{}
	q := r.db.WithContext(ctx).Model(&models.Comment{})
	if filter.PostID != 0 {
		q = q.Where("post_id = ?", filter.PostID)
	}
	if err := q.Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) ListByIDs(ctx context.Context, ids []uint) ([]models.Comment, error) {
	comments := []models.Comment{}
	if len(ids) == 0 {
		return comments, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&comments).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) Update(ctx context.Context, id uint, changes CommentChanges) (*models.Comment, error) {
	updates := map[string]any{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Body != nil {
		updates["body"] = *changes.Body
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("Comment", id)
		}
		r.hooks.run(func() { cache.InvalidateComments(ctx, id) })
	}

	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translateReadError(err, "Comment", id)
	}
	r.log.LogUpdate(ctx, slog.Uint64("id", uint64(id)))
	return &comment, nil
}

func (r *commentRepository) DeleteByIDs(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.Comment{})
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	r.hooks.run(func() { cache.InvalidateComments(ctx, ids...) })
	r.log.LogDelete(ctx, slog.Int64("count", res.RowsAffected))
	return res.RowsAffected, nil
}

func (r *commentRepository) DeleteByPostID(ctx context.Context, postID uint) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(ids) > 0 {
		r.hooks.run(func() { cache.InvalidateComments(ctx, ids...) })
	}
	r.log.LogDelete(ctx, slog.Uint64("post_id", uint64(postID)), slog.Int("count", len(ids)))
	return ids, nil
}
