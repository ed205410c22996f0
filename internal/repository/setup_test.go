package repository_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bvilove/datebot/internal/db"
	"github.com/bvilove/datebot/internal/preference"
	"github.com/bvilove/datebot/internal/repository"
)

var now = time.Date(2024, time.October, 1, 9, 0, 0, 0, time.UTC)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(database))
	return database
}

func ptr[T any](v T) *T { return &v }

// completePatch is the smallest patch that creates a profile.
func completePatch(id int64, gender preference.Gender) repository.ProfilePatch {
	return repository.ProfilePatch{
		ID:            id,
		Name:          ptr(fmt.Sprintf("user%d", id)),
		Gender:        ptr(gender),
		About:         ptr("likes olympiads"),
		Grade:         ptr(10),
		DatingPurpose: ptr(preference.Studies),
	}
}
