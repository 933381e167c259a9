package scoring

import (
	"fmt"
	"strings"

	"github.com/ledgerline/arclaim/internal/calendar"
	"github.com/ledgerline/arclaim/internal/model"
)

// ValidationError reports the structurally invalid fields of a rejected
// claim. It is returned before any encoder or model work happens.
type ValidationError struct {
	ClaimID string
	Fields  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("claim %q failed validation: %s", e.ClaimID, strings.Join(e.Fields, ", "))
}

// validateClaim performs structural validation at the intake boundary.
func validateClaim(claim *model.ClaimRecord, asOf calendar.Date) *ValidationError {
	var fields []string

	if claim.ID == "" {
		fields = append(fields, "id missing")
	}
	if claim.Payer == "" {
		fields = append(fields, "payer missing")
	}
	if claim.ProcedureCode == "" {
		fields = append(fields, "procedure_code missing")
	}
	if claim.DiagnosisCode == "" {
		fields = append(fields, "diagnosis_code missing")
	}
	if claim.PlaceOfService == "" {
		fields = append(fields, "place_of_service missing")
	}
	if claim.BilledAmount <= 0 {
		fields = append(fields, "billed_amount not positive")
	}

	switch {
	case claim.ServiceDate.IsZero():
		fields = append(fields, "service_date missing")
	case !claim.ServiceDate.Valid():
		fields = append(fields, "service_date malformed")
	}
	switch {
	case claim.SubmissionDate.IsZero():
		fields = append(fields, "submission_date missing")
	case !claim.SubmissionDate.Valid():
		fields = append(fields, "submission_date malformed")
	}

	if !claim.ServiceDate.IsZero() && !claim.SubmissionDate.IsZero() &&
		claim.SubmissionDate.Before(claim.ServiceDate) {
		fields = append(fields, "submission_date before service_date")
	}
	if !claim.ServiceDate.IsZero() && asOf.Before(claim.ServiceDate) {
		fields = append(fields, "as_of before service_date")
	}
	if claim.Paid() && claim.PaymentDate.Before(claim.ServiceDate) {
		fields = append(fields, "payment_date before service_date")
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{ClaimID: claim.ID, Fields: fields}
}
