package bootstrap

import (
	"testing"

	"github.com/IlyaEru/blog-api/internal/config"
	"github.com/IlyaEru/blog-api/internal/database"
	"github.com/IlyaEru/blog-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
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

func TestPrepare_CreatesBootstrapUserOnce(t *testing.T) {
	db := newTestDB(t)
	cfg := &config.Config{BootstrapUsername: "Admin", BootstrapPassword: "changeme", BcryptCost: bcrypt.MinCost}

	require.NoError(t, Prepare(cfg, db, Options{}))

	var user models.User
	require.NoError(t, db.Where("username_key = ?", "admin").First(&user).Error)
	assert.Equal(t, "Admin", user.Username)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("changeme")))

	cfg.BootstrapPassword = "different"
	require.NoError(t, Prepare(cfg, db, Options{}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.First(&user, user.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("changeme")))
}

func TestPrepare_NoBootstrapUser(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Prepare(&config.Config{}, db, Options{}))

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPrepare_RejectsInvalidBootstrapUser(t *testing.T) {
	db := newTestDB(t)
	err := Prepare(&config.Config{BootstrapUsername: "ab", BootstrapPassword: "changeme"}, db, Options{})
	assert.Error(t, err)
}

func TestPrepare_SeedsOnlyEmptyDatabase(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&models.Post{Title: "Existing", Body: "Already here", CommentIDs: models.IDList{}}).Error)

	require.NoError(t, Prepare(&config.Config{}, db, Options{SeedDemo: true}))

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(1), posts)
}
