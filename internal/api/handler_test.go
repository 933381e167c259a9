package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/model"
	"github.com/ledgerline/arclaim/internal/scoring"
)

// stubScorer returns a canned result or error and remembers its inputs.
type stubScorer struct {
	result     *model.ScoringResult
	err        error
	lastClaim  model.ClaimRecord
	lastAsOf   calendar.Date
	encVersion string
	mdlVersion string
}

func (s *stubScorer) Score(_ context.Context, claim model.ClaimRecord, asOf calendar.Date) (*model.ScoringResult, error) {
	s.lastClaim = claim
	s.lastAsOf = asOf
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubScorer) CurrentVersion() (string, string) {
	return s.encVersion, s.mdlVersion
}

type recordingAudit struct {
	saved []*model.ScoringResult
	err   error
}

func (a *recordingAudit) SaveScoringRecord(_ context.Context, result *model.ScoringResult) error {
	if a.err != nil {
		return a.err
	}
	a.saved = append(a.saved, result)
	return nil
}

func scoreBody(t *testing.T, req ScoreRequest) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, json.NewEncoder(buf).Encode(req))
	return buf
}

func validRequest() ScoreRequest {
	return ScoreRequest{
		Claim: ClaimPayload{
			ID:             "clm-1",
			Payer:          "Aetna",
			ProcedureCode:  "99213",
			DiagnosisCode:  "E11.9",
			PlaceOfService: "11",
			ServiceDate:    "2024-07-03",
			SubmissionDate: "2024-07-05",
			BilledAmount:   900,
			Units:          1,
			PatientAge:     61,
		},
		AsOf: "2024-07-08",
	}
}

func TestHandleScore_OK(t *testing.T) {
	scorer := &stubScorer{
		result: &model.ScoringResult{
			RequestID:            "req-1",
			ClaimID:              "clm-1",
			Outcome:              model.OutcomeScored,
			ARDays:               2,
			DenialProbability:    0.83,
			ProbabilityAvailable: true,
			EncoderVersion:       "enc-v1",
			ModelVersion:         "mdl-v1",
		},
	}
	audit := &recordingAudit{}
	router := NewRouter(NewHandler(scorer, audit))

	req := httptest.NewRequest(http.MethodPost, "/v1/score", scoreBody(t, validRequest()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "scored", resp.Outcome)
	assert.Equal(t, 2, resp.ARDays)
	assert.InDelta(t, 0.83, resp.DenialProbability, 1e-9)
	assert.True(t, resp.ProbabilityAvailable)

	assert.Equal(t, calendar.NewDate(2024, 7, 8), scorer.lastAsOf)
	assert.Equal(t, "clm-1", scorer.lastClaim.ID)
	assert.Len(t, audit.saved, 1)
}

func TestHandleScore_ValidationError(t *testing.T) {
	scorer := &stubScorer{
		err: &scoring.ValidationError{ClaimID: "clm-1", Fields: []string{"procedure_code missing"}},
	}
	router := NewRouter(NewHandler(scorer, nil))

	body := validRequest()
	body.Claim.ProcedureCode = ""
	req := httptest.NewRequest(http.MethodPost, "/v1/score", scoreBody(t, body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "procedure_code missing")
}

func TestHandleScore_MalformedBody(t *testing.T) {
	router := NewRouter(NewHandler(&stubScorer{}, nil))

	req := httptest.NewRequest(http.MethodPost, "/v1/score", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScore_MalformedDate(t *testing.T) {
	router := NewRouter(NewHandler(&stubScorer{}, nil))

	body := validRequest()
	body.Claim.ServiceDate = "07/03/2024"
	req := httptest.NewRequest(http.MethodPost, "/v1/score", scoreBody(t, body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleScore_AuditFailureIsNotFatal(t *testing.T) {
	scorer := &stubScorer{
		result: &model.ScoringResult{
			RequestID: "req-1",
			ClaimID:   "clm-1",
			Outcome:   model.OutcomeDegraded,
			ARDays:    4,
		},
	}
	audit := &recordingAudit{err: assert.AnError}
	router := NewRouter(NewHandler(scorer, audit))

	req := httptest.NewRequest(http.MethodPost, "/v1/score", scoreBody(t, validRequest()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleVersion(t *testing.T) {
	scorer := &stubScorer{encVersion: "enc-v1", mdlVersion: "mdl-v1"}
	router := NewRouter(NewHandler(scorer, nil))

	req := httptest.NewRequest(http.MethodGet, "/v1/version", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "enc-v1", resp.EncoderVersion)
	assert.Equal(t, "mdl-v1", resp.ModelVersion)
}

func TestHandleHealth(t *testing.T) {
	router := NewRouter(NewHandler(&stubScorer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
