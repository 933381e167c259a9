package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/storage"
)

// timeNow is swappable for tests.
var timeNow = time.Now

// openStorage opens the claim database and brings the schema current.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "arclaim", "arclaim.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// buildCalendar constructs the federal business calendar, layered with
// any configured ad-hoc closure dates.
func buildCalendar() (*calendar.Calendar, error) {
	path := viper.GetString("calendar.overrides")
	if path == "" {
		return calendar.NewFederal(), nil
	}

	overrides, err := calendar.LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	return calendar.NewFederal(overrides...), nil
}
