package feature

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/common"
	"github.com/ledgerline/arclaim/internal/model"
)

// Numeric and categorical input field names. Label and outcome fields
// (denied, paid amount) are deliberately absent.
const (
	fieldBilledAmount  = "billed_amount"
	fieldUnits         = "units"
	fieldPatientAge    = "patient_age"
	fieldSubmissionLag = "submission_lag_days"

	fieldPayer          = "payer"
	fieldProcedureCode  = "procedure_code"
	fieldDiagnosisCode  = "diagnosis_code"
	fieldPlaceOfService = "place_of_service"
)

// Encoder fits and applies the claim feature schema. The calendar is used
// to derive the submission-lag feature in business days.
type Encoder struct {
	cal *calendar.Calendar
}

// New creates an encoder backed by the given business calendar.
func New(cal *calendar.Calendar) *Encoder {
	return &Encoder{cal: cal}
}

// Fit builds a new EncoderState from a training set: sorted categorical
// vocabularies and per-numeric-field mean/scale. Returns
// ErrEmptyTrainingSet when called with zero records. Fit is the only
// operation that produces encoder state; Transform never mutates it.
func (e *Encoder) Fit(ctx context.Context, claims []model.ClaimRecord) (*EncoderState, error) {
	if len(claims) == 0 {
		return nil, common.ErrEmptyTrainingSet
	}

	vocabs := map[string]map[string]struct{}{
		fieldPayer:          {},
		fieldProcedureCode:  {},
		fieldDiagnosisCode:  {},
		fieldPlaceOfService: {},
	}
	sums := make(map[string]float64)
	sumSquares := make(map[string]float64)

	for i := range claims {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		numeric, categorical, err := e.rawFields(&claims[i])
		if err != nil {
			return nil, fmt.Errorf("claim %s: %w", claims[i].ID, err)
		}

		for name, value := range categorical {
			vocabs[name][value] = struct{}{}
		}
		for name, value := range numeric {
			sums[name] += value
			sumSquares[name] += value * value
		}
	}

	n := float64(len(claims))
	numericFields := make([]NumericField, 0, len(numericFieldOrder))
	for _, name := range numericFieldOrder {
		mean := sums[name] / n
		variance := sumSquares[name]/n - mean*mean
		scale := math.Sqrt(math.Max(variance, 0))
		if scale == 0 {
			// Constant feature; dividing by 1 leaves it centered.
			scale = 1
		}
		numericFields = append(numericFields, NumericField{Name: name, Mean: mean, Scale: scale})
	}

	categoricalFields := make([]CategoricalField, 0, len(categoricalFieldOrder))
	for _, name := range categoricalFieldOrder {
		vocab := make([]string, 0, len(vocabs[name]))
		for v := range vocabs[name] {
			vocab = append(vocab, v)
		}
		sort.Strings(vocab)
		categoricalFields = append(categoricalFields, CategoricalField{Name: name, Vocab: vocab})
	}

	return &EncoderState{
		Version:     uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		Numeric:     numericFields,
		Categorical: categoricalFields,
	}, nil
}

// Transform encodes one claim under a frozen state. It is pure: the same
// claim and state always yield the same vector, and the state is never
// modified. A category unseen at fit time encodes as an all-zero
// indicator block without changing the vector length. Returns
// ErrSchemaMismatch when the claim lacks a field the schema requires.
func (e *Encoder) Transform(claim model.ClaimRecord, state *EncoderState) (model.FeatureVector, error) {
	numeric, categorical, err := e.rawFields(&claim)
	if err != nil {
		return nil, err
	}

	vector := make(model.FeatureVector, 0, state.Len())
	for _, f := range state.Numeric {
		vector = append(vector, (numeric[f.Name]-f.Mean)/f.Scale)
	}
	for _, f := range state.Categorical {
		block := make([]float64, len(f.Vocab))
		if col := f.columnFor(categorical[f.Name]); col >= 0 {
			block[col] = 1
		}
		vector = append(vector, block...)
	}

	return vector, nil
}

// Fixed field ordering; the schema depends on it.
var (
	numericFieldOrder     = []string{fieldBilledAmount, fieldUnits, fieldPatientAge, fieldSubmissionLag}
	categoricalFieldOrder = []string{fieldPayer, fieldProcedureCode, fieldDiagnosisCode, fieldPlaceOfService}
)

// rawFields extracts the un-encoded numeric and categorical inputs from a
// claim, enforcing the schema's required fields.
func (e *Encoder) rawFields(claim *model.ClaimRecord) (map[string]float64, map[string]string, error) {
	categorical := map[string]string{
		fieldPayer:          claim.Payer,
		fieldProcedureCode:  claim.ProcedureCode,
		fieldDiagnosisCode:  claim.DiagnosisCode,
		fieldPlaceOfService: claim.PlaceOfService,
	}
	for _, name := range categoricalFieldOrder {
		if categorical[name] == "" {
			return nil, nil, fmt.Errorf("%w: %s", common.ErrSchemaMismatch, name)
		}
	}

	if claim.ServiceDate.IsZero() || claim.SubmissionDate.IsZero() {
		return nil, nil, fmt.Errorf("%w: service/submission dates", common.ErrSchemaMismatch)
	}

	lag, err := e.cal.BusinessDaysElapsed(claim.ServiceDate, claim.SubmissionDate)
	if err != nil {
		return nil, nil, fmt.Errorf("submission lag: %w", err)
	}

	numeric := map[string]float64{
		fieldBilledAmount:  claim.BilledAmount,
		fieldUnits:         float64(claim.Units),
		fieldPatientAge:    float64(claim.PatientAge),
		fieldSubmissionLag: float64(lag),
	}

	return numeric, categorical, nil
}
