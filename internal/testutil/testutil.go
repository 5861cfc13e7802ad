// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"dinedash-backend/internal/client"
	"dinedash-backend/internal/config"
	"dinedash-backend/internal/model"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a migrated SQLite database in the test's temp dir.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := client.InitDBClient(config.Database{
		Driver:          "sqlite",
		URL:             filepath.Join(t.TempDir(), "dinedash_test.db"),
		MaxIdleConns:    4,
		MaxOpenConns:    8,
		ConnMaxLifetime: time.Hour,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// AddMenuItem inserts an available catalog entry.
func AddMenuItem(t testing.TB, db *gorm.DB, name, price string) *model.MenuItem {
	t.Helper()

	item := &model.MenuItem{
		Name:        name,
		Category:    "main_course",
		Price:       decimal.RequireFromString(price),
		IsAvailable: true,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func Logger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
