// Package testutil opens throwaway SQLite stores for package tests.
package testutil

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dental-captcha/internal/model"
	sqliteClient "dental-captcha/internal/platform/sqlite"
	"dental-captcha/internal/repository"
)

// NewDB returns a migrated database file under t.TempDir that is closed when
// the test ends.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "captcha.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.AllTables()...))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func NewStore(t testing.TB) *repository.Store {
	t.Helper()
	return repository.NewStore(NewDB(t))
}

// SeedImages inserts n images named img-1.png .. img-n.png and returns them.
func SeedImages(t testing.TB, store *repository.Store, n int) []model.Image {
	t.Helper()
	images := make([]model.Image, n)
	for i := range images {
		images[i] = model.Image{
			Filename: "img-" + strconv.Itoa(i+1) + ".png",
			URL:      "https://cdn.example.test/img-" + strconv.Itoa(i+1) + ".png",
		}
	}
	if n > 0 {
		require.NoError(t, store.DB().Create(&images).Error)
	}
	return images
}

// SeedQuestions inserts n active questions and returns them.
func SeedQuestions(t testing.TB, store *repository.Store, n int) []model.Question {
	t.Helper()
	questions := make([]model.Question, n)
	for i := range questions {
		questions[i] = model.Question{
			Text:   "Select all images showing finding " + strconv.Itoa(i+1),
			Type:   "multiple_choice",
			Active: true,
		}
	}
	if n > 0 {
		require.NoError(t, store.DB().Create(&questions).Error)
	}
	return questions
}

// SeedUser inserts a user with an unusable password hash.
func SeedUser(t testing.TB, store *repository.Store, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@captcha.local",
		PasswordHash: "x",
	}
	require.NoError(t, store.Users.Create(context.Background(), user))
	return user
}
