package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. Failure to migrate to this version is fatal.
const ExpectedSchemaVersion = 2

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: claims, artifacts, current pointer",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS claims (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					patient_id TEXT,
					payer TEXT NOT NULL,
					procedure_code TEXT NOT NULL,
					diagnosis_code TEXT NOT NULL,
					place_of_service TEXT NOT NULL,
					service_date TEXT NOT NULL,
					submission_date TEXT NOT NULL,
					payment_date TEXT,
					billed_amount REAL NOT NULL,
					paid_amount REAL DEFAULT 0,
					units INTEGER DEFAULT 1,
					patient_age INTEGER DEFAULT 0,
					adjudicated INTEGER DEFAULT 0,
					denied INTEGER DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_claims_service_date ON claims(service_date)`,
				`CREATE INDEX idx_claims_payer ON claims(payer)`,
				`CREATE INDEX idx_claims_adjudicated ON claims(adjudicated)`,

				`CREATE TABLE IF NOT EXISTS encoder_states (
					version TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					payload TEXT NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS model_artifacts (
					version TEXT PRIMARY KEY,
					encoder_version TEXT NOT NULL,
					trained_at DATETIME NOT NULL,
					payload TEXT NOT NULL,
					FOREIGN KEY (encoder_version) REFERENCES encoder_states(version)
				)`,

				`CREATE TABLE IF NOT EXISTS current_artifact (
					id INTEGER PRIMARY KEY CHECK (id = 1),
					encoder_version TEXT NOT NULL,
					model_version TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Scoring audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS scoring_log (
					request_id TEXT PRIMARY KEY,
					claim_id TEXT NOT NULL,
					outcome TEXT NOT NULL,
					ar_days INTEGER NOT NULL,
					as_of TEXT NOT NULL,
					probability REAL,
					probability_available INTEGER NOT NULL,
					degraded_reason TEXT,
					encoder_version TEXT,
					model_version TEXT,
					scored_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_scoring_log_claim ON scoring_log(claim_id)`,
				`CREATE INDEX idx_scoring_log_outcome ON scoring_log(outcome)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending schema migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
