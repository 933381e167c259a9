// Package api is the HTTP adapter over the scoring core. It owns
// transport concerns only: JSON framing, status codes, request logging,
// and the audit trail. Authentication and persistence of claims stay
// with upstream collaborators.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/scoring"
)

// Scorer defines what the adapter needs from the scoring core.
type Scorer interface {
	Score(ctx context.Context, claim model.ClaimRecord, asOf calendar.Date) (*model.ScoringResult, error)
	CurrentVersion() (encoderVersion, modelVersion string)
}

// AuditLog records scoring outcomes; failures are logged, not fatal.
type AuditLog interface {
	SaveScoringRecord(ctx context.Context, result *model.ScoringResult) error
}

// Handler serves the scoring endpoints.
type Handler struct {
	scorer Scorer
	audit  AuditLog
	now    func() time.Time
}

// NewHandler creates a handler. audit may be nil to disable the log.
func NewHandler(scorer Scorer, audit AuditLog) *Handler {
	return &Handler{
		scorer: scorer,
		audit:  audit,
		now:    time.Now,
	}
}

// HandleScore handles POST /v1/score.
func (h *Handler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req ScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "malformed request body"})
		return
	}

	claim, err := req.Claim.toClaim()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	asOf := calendar.FromTime(h.now())
	if req.AsOf != "" {
		if asOf, err = calendar.ParseDate(req.AsOf); err != nil {
			writeError(w, http.StatusBadRequest, ErrorResponse{Error: "as_of: " + err.Error()})
			return
		}
	}

	result, err := h.scorer.Score(r.Context(), claim, asOf)
	if err != nil {
		var verr *scoring.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:  "claim failed validation",
				Fields: verr.Fields,
			})
			return
		}

		slog.Error("Scoring failed", "claim_id", claim.ID, "error", err)
		writeError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if h.audit != nil {
		if auditErr := h.audit.SaveScoringRecord(r.Context(), result); auditErr != nil {
			slog.Warn("Failed to record scoring outcome",
				"request_id", result.RequestID,
				"error", auditErr)
		}
	}

	writeJSON(w, http.StatusOK, NewScoreResponse(result))
}

// HandleVersion handles GET /v1/version.
func (h *Handler) HandleVersion(w http.ResponseWriter, _ *http.Request) {
	encoderVersion, modelVersion := h.scorer.CurrentVersion()
	writeJSON(w, http.StatusOK, VersionResponse{
		EncoderVersion: encoderVersion,
		ModelVersion:   modelVersion,
	})
}

// HandleHealth handles GET /healthz.
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
