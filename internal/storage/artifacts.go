package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/riskmodel"
)

// SaveArtifactPair persists a trained encoder state and the model trained
// against it in one transaction. The pairing is validated here as well as
// at publish time; a mismatched pair never reaches the database.
func (s *SQLiteStorage) SaveArtifactPair(ctx context.Context, state *feature.EncoderState, artifact *riskmodel.ModelArtifact) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if state == nil || artifact == nil {
		return fmt.Errorf("encoder state and model artifact must not be nil")
	}
	if artifact.EncoderVersion != state.Version {
		return fmt.Errorf("%w: model trained against encoder %s, got %s",
			common.ErrVersionMismatch, artifact.EncoderVersion, state.Version)
	}

	statePayload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal encoder state: %w", err)
	}
	artifactPayload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("failed to marshal model artifact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO encoder_states (version, created_at, payload) VALUES (?, ?, ?)`,
		state.Version, state.CreatedAt, string(statePayload)); err != nil {
		return fmt.Errorf("failed to save encoder state %s: %w", state.Version, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_artifacts (version, encoder_version, trained_at, payload) VALUES (?, ?, ?, ?)`,
		artifact.Version, artifact.EncoderVersion, artifact.TrainedAt, string(artifactPayload)); err != nil {
		return fmt.Errorf("failed to save model artifact %s: %w", artifact.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit artifact pair: %w", err)
	}

	return nil
}

// GetArtifactPair loads an encoder state and its paired model artifact by
// encoder version.
func (s *SQLiteStorage) GetArtifactPair(ctx context.Context, encoderVersion string) (*feature.EncoderState, *riskmodel.ModelArtifact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	var statePayload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM encoder_states WHERE version = ?`, encoderVersion).Scan(&statePayload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("encoder state %s: %w", encoderVersion, common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load encoder state %s: %w", encoderVersion, err)
	}

	var artifactPayload string
	err = s.db.QueryRowContext(ctx,
		`SELECT payload FROM model_artifacts WHERE encoder_version = ? ORDER BY trained_at DESC LIMIT 1`,
		encoderVersion).Scan(&artifactPayload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("model artifact for encoder %s: %w", encoderVersion, common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load model artifact for encoder %s: %w", encoderVersion, err)
	}

	return unmarshalPair(statePayload, artifactPayload)
}

// GetCurrentArtifactPair loads the published pair, or ErrNotFound when no
// pair has been published yet.
func (s *SQLiteStorage) GetCurrentArtifactPair(ctx context.Context) (*feature.EncoderState, *riskmodel.ModelArtifact, error) {
	if err := validateContext(ctx); err != nil {
		return nil, nil, err
	}

	var encoderVersion, modelVersion string
	err := s.db.QueryRowContext(ctx,
		`SELECT encoder_version, model_version FROM current_artifact WHERE id = 1`).
		Scan(&encoderVersion, &modelVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("current artifact pair: %w", common.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read current artifact pointer: %w", err)
	}

	var statePayload, artifactPayload string
	if err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM encoder_states WHERE version = ?`, encoderVersion).Scan(&statePayload); err != nil {
		return nil, nil, fmt.Errorf("failed to load current encoder state %s: %w", encoderVersion, err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM model_artifacts WHERE version = ?`, modelVersion).Scan(&artifactPayload); err != nil {
		return nil, nil, fmt.Errorf("failed to load current model artifact %s: %w", modelVersion, err)
	}

	return unmarshalPair(statePayload, artifactPayload)
}

// SetCurrentArtifactPair marks a stored pair as the published one. The
// pair must exist and be version-consistent.
func (s *SQLiteStorage) SetCurrentArtifactPair(ctx context.Context, encoderVersion, modelVersion string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var storedEncoderVersion string
	err := s.db.QueryRowContext(ctx,
		`SELECT encoder_version FROM model_artifacts WHERE version = ?`, modelVersion).
		Scan(&storedEncoderVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("model artifact %s: %w", modelVersion, common.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check model artifact %s: %w", modelVersion, err)
	}
	if storedEncoderVersion != encoderVersion {
		return fmt.Errorf("%w: model %s was trained against encoder %s, not %s",
			common.ErrVersionMismatch, modelVersion, storedEncoderVersion, encoderVersion)
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO current_artifact (id, encoder_version, model_version, updated_at)
		 VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(id) DO UPDATE SET
			encoder_version = excluded.encoder_version,
			model_version = excluded.model_version,
			updated_at = CURRENT_TIMESTAMP`,
		encoderVersion, modelVersion); err != nil {
		return fmt.Errorf("failed to set current artifact pair: %w", err)
	}

	return nil
}

func unmarshalPair(statePayload, artifactPayload string) (*feature.EncoderState, *riskmodel.ModelArtifact, error) {
	var state feature.EncoderState
	if err := json.Unmarshal([]byte(statePayload), &state); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal encoder state: %w", err)
	}

	var artifact riskmodel.ModelArtifact
	if err := json.Unmarshal([]byte(artifactPayload), &artifact); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal model artifact: %w", err)
	}

	return &state, &artifact, nil
}
