// Package model defines the core domain types shared across the application.
package model

import (
	"crypto/sha256"
	"fmt"

	"github.com/ledgerline/arclaim/internal/calendar"
)

// ClaimRecord represents a single submitted medical claim. The scoring
// core only ever reads claims; ownership stays with the caller.
type ClaimRecord struct {
	ID             string
	PatientID      string
	Payer          string
	ProcedureCode  string
	DiagnosisCode  string
	PlaceOfService string
	ServiceDate    calendar.Date
	SubmissionDate calendar.Date
	PaymentDate    calendar.Date // zero until the payer remits
	BilledAmount   float64
	PaidAmount     float64 // outcome field, excluded from features
	Units          int
	PatientAge     int

	// Adjudication outcome, present only on historical claims used
	// for training. Denied is the label; never a feature input.
	Adjudicated bool
	Denied      bool
}

// GenerateHash creates a unique hash for duplicate detection on import.
func (c *ClaimRecord) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%.2f",
		c.ID,
		c.ServiceDate,
		c.Payer,
		c.ProcedureCode,
		c.BilledAmount)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// Paid reports whether the payer has remitted on the claim.
func (c *ClaimRecord) Paid() bool {
	return !c.PaymentDate.IsZero()
}
