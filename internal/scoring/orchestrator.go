// Package scoring implements the synchronous claim-scoring orchestrator:
// per-request validation, aging calculation, and bounded-time denial-risk
// inference with an explicit degraded fallback.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/feature"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/riskmodel"
)

// Config holds configuration options for the orchestrator.
type Config struct {
	// InferenceTimeout bounds the model prediction step. On expiry the
	// request degrades instead of blocking intake.
	InferenceTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		InferenceTimeout: 300 * time.Millisecond,
	}
}

// bundle pairs one encoder state with the model trained against it.
// Requests load the whole bundle atomically, so an in-flight request
// never sees old encoder state with a new model or vice versa.
type bundle struct {
	encoder *feature.EncoderState
	model   *riskmodel.ModelArtifact
}

// Orchestrator scores claims synchronously. Each request is independent
// and stateless aside from read-only access to the published bundle.
type Orchestrator struct {
	cal       *calendar.Calendar
	encoder   *feature.Encoder
	predictor Predictor
	timeout   time.Duration
	current   atomic.Pointer[bundle]
}

// New creates an orchestrator with the default configuration.
func New(cal *calendar.Calendar, encoder *feature.Encoder, predictor Predictor) *Orchestrator {
	return NewWithConfig(cal, encoder, predictor, DefaultConfig())
}

// NewWithConfig creates an orchestrator with custom configuration.
func NewWithConfig(cal *calendar.Calendar, encoder *feature.Encoder, predictor Predictor, cfg Config) *Orchestrator {
	if cfg.InferenceTimeout <= 0 {
		cfg.InferenceTimeout = DefaultConfig().InferenceTimeout
	}
	return &Orchestrator{
		cal:       cal,
		encoder:   encoder,
		predictor: predictor,
		timeout:   cfg.InferenceTimeout,
	}
}

// Publish atomically swaps in a newly trained encoder/model pair after
// validating that the artifact was trained against exactly this encoder
// state. Returns ErrVersionMismatch otherwise; the current pair is left
// untouched on failure.
func (o *Orchestrator) Publish(state *feature.EncoderState, artifact *riskmodel.ModelArtifact) error {
	if state == nil || artifact == nil {
		return fmt.Errorf("%w: nil encoder state or model artifact", common.ErrInvalidConfig)
	}
	if artifact.EncoderVersion != state.Version {
		return fmt.Errorf("%w: model trained against encoder %s, got %s",
			common.ErrVersionMismatch, artifact.EncoderVersion, state.Version)
	}

	o.current.Store(&bundle{encoder: state, model: artifact})
	slog.Info("Published model pair",
		"encoder_version", state.Version,
		"model_version", artifact.Version)

	return nil
}

// CurrentVersion returns the published (encoder, model) version pair, or
// empty strings when nothing is published yet.
func (o *Orchestrator) CurrentVersion() (encoderVersion, modelVersion string) {
	b := o.current.Load()
	if b == nil {
		return "", ""
	}
	return b.encoder.Version, b.model.Version
}

// Score runs one request through the state machine:
// Received -> Validated -> (Scored | Degraded | Rejected).
//
// Structurally invalid claims return a *ValidationError with no model
// call made. Valid claims always get an AR-day count; the denial
// probability degrades to an explicit unavailable marker when the model
// is missing, encoding fails, or inference exceeds the timeout. Exactly
// one terminal outcome is produced and nothing is retried here.
func (o *Orchestrator) Score(ctx context.Context, claim model.ClaimRecord, asOf calendar.Date) (*model.ScoringResult, error) {
	if verr := validateClaim(&claim, asOf); verr != nil {
		return nil, verr
	}

	// Aging: service date through payment date when paid, else as-of.
	end := asOf
	if claim.Paid() {
		end = claim.PaymentDate
	}
	arDays, err := o.cal.BusinessDaysElapsed(claim.ServiceDate, end)
	if err != nil {
		return nil, fmt.Errorf("business day calculation: %w", err)
	}

	result := &model.ScoringResult{
		RequestID: uuid.NewString(),
		ClaimID:   claim.ID,
		ARDays:    arDays,
		AsOfDate:  end,
		ScoredAt:  time.Now().UTC(),
	}

	b := o.current.Load()
	if b == nil {
		return o.degrade(result, model.ReasonModelUnavailable, common.ErrModelUnavailable), nil
	}

	// Pairing is validated at publish; re-check here so a contract
	// violation surfaces as a hard error rather than a bad score.
	if b.model.EncoderVersion != b.encoder.Version {
		return nil, fmt.Errorf("%w: model trained against encoder %s, current %s",
			common.ErrVersionMismatch, b.model.EncoderVersion, b.encoder.Version)
	}
	result.EncoderVersion = b.encoder.Version
	result.ModelVersion = b.model.Version

	vector, err := o.encoder.Transform(claim, b.encoder)
	if err != nil {
		return o.degrade(result, model.ReasonEncodeFailed, err), nil
	}

	probability, err := o.predictWithTimeout(ctx, vector, b.model)
	switch {
	case err == nil:
		result.Outcome = model.OutcomeScored
		result.DenialProbability = probability
		result.ProbabilityAvailable = true
		return result, nil
	case errors.Is(err, common.ErrInferenceTimeout):
		return o.degrade(result, model.ReasonInferenceTimeout, err), nil
	default:
		return o.degrade(result, model.ReasonPredictFailed, err), nil
	}
}

// predictWithTimeout bounds the inference step. The orchestrator never
// blocks the caller past the configured timeout.
func (o *Orchestrator) predictWithTimeout(ctx context.Context, v model.FeatureVector, artifact *riskmodel.ModelArtifact) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	type outcome struct {
		probability float64
		err         error
	}
	done := make(chan outcome, 1)

	go func() {
		p, err := o.predictor.Predict(ctx, v, artifact)
		done <- outcome{probability: p, err: err}
	}()

	select {
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) {
			// A context-aware predictor observed the deadline itself.
			return 0, fmt.Errorf("%w after %s", common.ErrInferenceTimeout, o.timeout)
		}
		if out.err != nil {
			return 0, out.err
		}
		return out.probability, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w after %s", common.ErrInferenceTimeout, o.timeout)
		}
		return 0, ctx.Err()
	}
}

// degrade finalizes a result on the fallback path with its reason code.
func (o *Orchestrator) degrade(result *model.ScoringResult, reason model.DegradedReason, cause error) *model.ScoringResult {
	result.Outcome = model.OutcomeDegraded
	result.DegradedReason = reason
	result.ProbabilityAvailable = false
	result.DenialProbability = 0

	slog.Warn("Scoring degraded",
		"claim_id", result.ClaimID,
		"reason", reason,
		"error", cause)

	return result
}
