package api

import (
	"fmt"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/model"
)

// ScoreRequest is the wire shape of one scoring call. Dates travel as
// YYYY-MM-DD strings; as_of defaults to today when omitted.
type ScoreRequest struct {
	Claim ClaimPayload `json:"claim"`
	AsOf  string       `json:"as_of,omitempty"`
}

// ClaimPayload mirrors model.ClaimRecord for JSON transport.
type ClaimPayload struct {
	ID             string  `json:"id"`
	PatientID      string  `json:"patient_id,omitempty"`
	Payer          string  `json:"payer"`
	ProcedureCode  string  `json:"procedure_code"`
	DiagnosisCode  string  `json:"diagnosis_code"`
	PlaceOfService string  `json:"place_of_service"`
	ServiceDate    string  `json:"service_date"`
	SubmissionDate string  `json:"submission_date"`
	PaymentDate    string  `json:"payment_date,omitempty"`
	BilledAmount   float64 `json:"billed_amount"`
	Units          int     `json:"units"`
	PatientAge     int     `json:"patient_age"`
}

// toClaim converts the payload, parsing its dates. Structural rules
// beyond date syntax are left to the orchestrator's validator.
func (p ClaimPayload) toClaim() (model.ClaimRecord, error) {
	claim := model.ClaimRecord{
		ID:             p.ID,
		PatientID:      p.PatientID,
		Payer:          p.Payer,
		ProcedureCode:  p.ProcedureCode,
		DiagnosisCode:  p.DiagnosisCode,
		PlaceOfService: p.PlaceOfService,
		BilledAmount:   p.BilledAmount,
		Units:          p.Units,
		PatientAge:     p.PatientAge,
	}

	var err error
	if p.ServiceDate != "" {
		if claim.ServiceDate, err = calendar.ParseDate(p.ServiceDate); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("service_date: %w", err)
		}
	}
	if p.SubmissionDate != "" {
		if claim.SubmissionDate, err = calendar.ParseDate(p.SubmissionDate); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("submission_date: %w", err)
		}
	}
	if p.PaymentDate != "" {
		if claim.PaymentDate, err = calendar.ParseDate(p.PaymentDate); err != nil {
			return model.ClaimRecord{}, fmt.Errorf("payment_date: %w", err)
		}
	}

	return claim, nil
}

// ScoreResponse is the wire shape of a scoring result.
type ScoreResponse struct {
	RequestID            string  `json:"request_id"`
	ClaimID              string  `json:"claim_id"`
	Outcome              string  `json:"outcome"`
	ARDays               int     `json:"ar_days"`
	AsOf                 string  `json:"as_of"`
	DenialProbability    float64 `json:"denial_probability"`
	ProbabilityAvailable bool    `json:"probability_available"`
	DegradedReason       string  `json:"degraded_reason,omitempty"`
	EncoderVersion       string  `json:"encoder_version,omitempty"`
	ModelVersion         string  `json:"model_version,omitempty"`
}

// NewScoreResponse converts a scoring result to its wire shape.
func NewScoreResponse(result *model.ScoringResult) ScoreResponse {
	return ScoreResponse{
		RequestID:            result.RequestID,
		ClaimID:              result.ClaimID,
		Outcome:              string(result.Outcome),
		ARDays:               result.ARDays,
		AsOf:                 result.AsOfDate.String(),
		DenialProbability:    result.DenialProbability,
		ProbabilityAvailable: result.ProbabilityAvailable,
		DegradedReason:       string(result.DegradedReason),
		EncoderVersion:       result.EncoderVersion,
		ModelVersion:         result.ModelVersion,
	}
}

// VersionResponse reports the published artifact versions.
type VersionResponse struct {
	EncoderVersion string `json:"encoder_version"`
	ModelVersion   string `json:"model_version"`
}

// ErrorResponse is the wire shape of any request failure.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
