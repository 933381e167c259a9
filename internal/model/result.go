package model

import (
	"time"

	"github.com/ledgerline/arclaim/internal/calendar"
)

// ScoringOutcome is the terminal state of one scoring request.
type ScoringOutcome string

// Terminal scoring outcomes. Rejected claims produce an error rather
// than a result, so only Scored and Degraded appear here.
const (
	OutcomeScored   ScoringOutcome = "scored"
	OutcomeDegraded ScoringOutcome = "degraded"
)

// DegradedReason is a machine-readable explanation for a degraded result,
// surfaced so consumers can render "risk score temporarily unavailable"
// instead of a stale or zero score.
type DegradedReason string

// Degraded reason codes.
const (
	ReasonModelUnavailable DegradedReason = "model_unavailable"
	ReasonInferenceTimeout DegradedReason = "inference_timeout"
	ReasonEncodeFailed     DegradedReason = "encode_failed"
	ReasonPredictFailed    DegradedReason = "predict_failed"
)

// ScoringResult is the outcome of one orchestration call. The core
// creates it per request and never persists it.
type ScoringResult struct {
	RequestID            string
	ClaimID              string
	Outcome              ScoringOutcome
	ARDays               int
	AsOfDate             calendar.Date
	DenialProbability    float64
	ProbabilityAvailable bool
	DegradedReason       DegradedReason
	EncoderVersion       string
	ModelVersion         string
	ScoredAt             time.Time
}
