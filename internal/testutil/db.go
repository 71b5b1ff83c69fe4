// Package testutil provides database fixtures shared by package tests.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/inkwell-backend/internal/database"
	"github.com/javajoker/inkwell-backend/internal/models"
)

// NewTestDB opens a migrated SQLite database in a per-test temp dir.
// Transactions take the write lock at BEGIN (_txlock=immediate) so concurrent
// ledger transactions queue behind each other the way row locks make them
// queue on Postgres.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payments.db")
	dsn := fmt.Sprintf("file:%s?_busy_timeout=15000&_journal_mode=WAL&_txlock=immediate&_foreign_keys=1", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() {
		database.Close(db)
	})
	return db
}

// CreatePost inserts a published post owned by authorID.
func CreatePost(t *testing.T, db *gorm.DB, authorID uuid.UUID, price int64, exclusive bool) *models.Post {
	t.Helper()

	post := &models.Post{
		AuthorID:    authorID,
		Title:       "Exclusive essay " + uuid.NewString()[:8],
		Slug:        "post-" + uuid.NewString(),
		IsExclusive: exclusive,
		Price:       price,
		Published:   true,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}
