// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/riskmodel"
)

// ClaimFilter defines filtering options for claim queries.
type ClaimFilter struct {
	Start *calendar.Date
	End   *calendar.Date
	Payer string
	Limit int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Claim operations
	SaveClaims(ctx context.Context, claims []model.ClaimRecord) error
	GetClaim(ctx context.Context, id string) (*model.ClaimRecord, error)
	GetClaims(ctx context.Context, filter ClaimFilter) ([]model.ClaimRecord, error)
	GetAdjudicatedClaims(ctx context.Context) ([]model.ClaimRecord, error)

	// Artifact operations. SaveArtifactPair persists a trained
	// encoder/model pair; SetCurrentArtifactPair marks it live.
	SaveArtifactPair(ctx context.Context, state *feature.EncoderState, artifact *riskmodel.ModelArtifact) error
	GetArtifactPair(ctx context.Context, encoderVersion string) (*feature.EncoderState, *riskmodel.ModelArtifact, error)
	GetCurrentArtifactPair(ctx context.Context) (*feature.EncoderState, *riskmodel.ModelArtifact, error)
	SetCurrentArtifactPair(ctx context.Context, encoderVersion, modelVersion string) error

	// Scoring audit log, written by the serving adapter.
	SaveScoringRecord(ctx context.Context, result *model.ScoringResult) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions = common.RetryOptions

// AgingBucket aggregates AR-day statistics for one payer.
type AgingBucket struct {
	Payer       string
	ClaimCount  int
	MeanARDays  float64
	MaxARDays   int
	TotalBilled float64
}
