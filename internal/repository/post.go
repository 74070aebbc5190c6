package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IlyaEru/blog-api/internal/cache"
	"github.com/IlyaEru/blog-api/internal/models"
	"github.com/IlyaEru/blog-api/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const titleTakenMsg = "Post title is already taken"

var postLog = observability.NewRepoLogger("posts")

// PostFilter narrows List. A nil Published lists every post.
type PostFilter struct {
	Published *bool
	Limit     int
	Offset    int
}

func (f PostFilter) cacheSuffix() string {
	published := "all"
	if f.Published != nil {
		published = fmt.Sprintf("%t", *f.Published)
	}
	return fmt.Sprintf("%s:%d:%d", published, f.Limit, f.Offset)
}

// PostChanges lists the content columns to update; nil fields are left untouched.
type PostChanges struct {
	Title     *string
	Body      *string
	Published *bool
}

// PostRepository defines the interface for post data operations.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// GetForUpdate reads the row uncached and, on PostgreSQL, locks it until
	// the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*models.Post, error)
	// ListForUpdate locks every existing post in ids.
	ListForUpdate(ctx context.Context, ids []uint) ([]models.Post, error)
	List(ctx context.Context, filter PostFilter) ([]models.Post, error)
	IsTitleTaken(ctx context.Context, title string, excludeID uint) (bool, error)
	Update(ctx context.Context, id uint, changes PostChanges) (*models.Post, error)
	SetCommentIDs(ctx context.Context, id uint, ids models.IDList) error
	Delete(ctx context.Context, id uint) error
}

type postRepository struct {
	db    *gorm.DB
	hooks *commitHooks
	log   *observability.RepoLogger
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: postLog}
}

func (r *postRepository) invalidate(ctx context.Context, ids ...uint) {
	r.hooks.run(func() { cache.InvalidatePost(ctx, ids...) })
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return translateWriteError(err, titleTakenMsg)
	}
	r.hooks.run(func() { cache.InvalidatePostsList(ctx) })
	r.log.LogCreate(ctx, slog.Uint64("id", uint64(post.ID)))
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(ctx, id), &post, cache.PostTTL, func() error {
		return translateReadError(r.db.WithContext(ctx).First(&post, id).Error, "Post", id)
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetForUpdate(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&post, id).Error
	if err != nil {
		return nil, translateReadError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) ListForUpdate(ctx context.Context, ids []uint) ([]models.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) List(ctx context.Context, filter PostFilter) ([]models.Post, error) {
	filter.Limit, filter.Offset = clampPage(filter.Limit, filter.Offset)

	posts := []models.Post{}
	key := cache.PostsListKey(ctx, filter.cacheSuffix())
	err := cache.Aside(ctx, key, &posts, cache.PostsListTTL, func() error {
		q := r.db.WithContext(ctx).Model(&models.Post{})
		if filter.Published != nil {
			q = q.Where("published = ?", *filter.Published)
		}
		if err := q.Order("created_at DESC, id DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&posts).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *postRepository) IsTitleTaken(ctx context.Context, title string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Post{}).Where("title_key = ?", models.NormalizeKey(title))
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) Update(ctx context.Context, id uint, changes PostChanges) (*models.Post, error) {
	updates := map[string]any{}
	if changes.Title != nil {
		updates["title"] = *changes.Title
		updates["title_key"] = models.NormalizeKey(*changes.Title)
	}
	if changes.Body != nil {
		updates["body"] = *changes.Body
	}
	if changes.Published != nil {
		updates["published"] = *changes.Published
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, translateWriteError(res.Error, titleTakenMsg)
		}
		if res.RowsAffected == 0 {
			return nil, models.NewNotFoundError("Post", id)
		}
		r.invalidate(ctx, id)
	}

	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, translateReadError(err, "Post", id)
	}
	r.log.LogUpdate(ctx, slog.Uint64("id", uint64(id)))
	return &post, nil
}

func (r *postRepository) SetCommentIDs(ctx context.Context, id uint, ids models.IDList) error {
	if ids == nil {
		ids = models.IDList{}
	}
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Update("comment_ids", ids)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.invalidate(ctx, id)
	r.log.LogDelete(ctx, slog.Uint64("id", uint64(id)))
	return nil
}
