// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
	// hash of DefaultPassword, computed once
	passwordHash string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	// #nosec G404: acceptable for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

func (f *Factory) password() string {
	if f.opts.SkipBcrypt {
		return DefaultPassword
	}
	if f.passwordHash == "" {
		hashed, _ := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
		f.passwordHash = string(hashed)
	}
	return f.passwordHash
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// BuildUser constructs a user without persisting it.
func (f *Factory) BuildUser(overrides ...func(*models.User)) *models.User {
	user := &models.User{
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(100, 999)),
		Password: f.password(),
	}
	for _, override := range overrides {
		override(user)
	}
	return user
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := f.BuildUser(overrides...)

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s", user.Username)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post without persisting it. Titles are not
// guaranteed unique; callers seeding many posts should override them.
func (f *Factory) BuildPost(overrides ...func(*models.Post)) *models.Post {
	published := f.opts.PublishedRatio > 0 && f.rng.Float64() < f.opts.PublishedRatio
	post := &models.Post{
		Title:      gofakeit.Sentence(5),
		Body:       gofakeit.Paragraph(2, 4, 12, "\n\n"),
		Published:  published,
		CommentIDs: models.IDList{},
		CreatedAt:  f.createdAt(),
	}
	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample `models.Post`.
func (f *Factory) CreatePost(overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(overrides...)

	if f.opts.DryRun {
		f.nextID++
		post.ID = f.nextID
		log.Printf("[dry-run] CreatePost: title=%q published=%v", post.Title, post.Published)
		return post, nil
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// BuildComment constructs a comment on post without persisting it. Roughly
// one comment in five is left anonymous.
func (f *Factory) BuildComment(post *models.Post, overrides ...func(*models.Comment)) *models.Comment {
	name := gofakeit.Name()
	if f.rng.Intn(5) == 0 {
		name = ""
	}
	comment := &models.Comment{
		PostID: post.ID,
		Name:   name,
		Body:   gofakeit.Sentence(12),
	}
	if !post.CreatedAt.IsZero() {
		comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour)
	}
	for _, override := range overrides {
		override(comment)
	}
	return comment
}

// CreateComment persists a comment on post and appends its id to the post's
// comment_ids in the same transaction. post.CommentIDs is updated in place.
func (f *Factory) CreateComment(post *models.Post, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := f.BuildComment(post, overrides...)

	if f.opts.DryRun {
		f.nextID++
		comment.ID = f.nextID
		post.CommentIDs = append(post.CommentIDs, comment.ID)
		return comment, nil
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		ids := append(models.IDList{}, post.CommentIDs...)
		ids = append(ids, comment.ID)
		if err := tx.Model(&models.Post{}).Where("id = ?", post.ID).
			Update("comment_ids", ids).Error; err != nil {
			return err
		}
		post.CommentIDs = ids
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}
