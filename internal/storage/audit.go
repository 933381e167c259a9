package storage

import (
	"context"
	"fmt"

	"github.com/ledgerline/arclaim/internal/model"
)

// SaveScoringRecord appends one scoring outcome to the audit log. The
// core never calls this; the serving adapter records outcomes so
// operators can trace what was returned for a claim and by which
// artifact versions.
func (s *SQLiteStorage) SaveScoringRecord(ctx context.Context, result *model.ScoringResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("scoring result must not be nil")
	}

	var probability any
	if result.ProbabilityAvailable {
		probability = result.DenialProbability
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO scoring_log (request_id, claim_id, outcome, ar_days, as_of,
			probability, probability_available, degraded_reason,
			encoder_version, model_version, scored_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RequestID, result.ClaimID, string(result.Outcome), result.ARDays,
		result.AsOfDate.String(), probability, boolToInt(result.ProbabilityAvailable),
		string(result.DegradedReason), result.EncoderVersion, result.ModelVersion,
		result.ScoredAt,
	); err != nil {
		return fmt.Errorf("failed to save scoring record %s: %w", result.RequestID, err)
	}

	return nil
}
