package r4

import "time"

// ClaimResponse represents a FHIR R4 ClaimResponse resource, the payer's
// adjudication of a Claim.
type ClaimResponse struct {
	ResourceType string           `json:"resourceType"` // always "ClaimResponse"
	ID           string           `json:"id,omitempty"`
	Meta         *Meta            `json:"meta,omitempty"`
	Identifier   []Identifier     `json:"identifier,omitempty"`
	Status       string           `json:"status"` // active | cancelled | draft | entered-in-error
	Type         *CodeableConcept `json:"type,omitempty"`
	Use          string           `json:"use"`
	Patient      *Reference       `json:"patient,omitempty"`
	Created      time.Time        `json:"created,omitempty"`
	Insurer      *Reference       `json:"insurer,omitempty"`
	Requestor    *Reference       `json:"requestor,omitempty"`
	Request      *Reference       `json:"request,omitempty"`
	Outcome      string           `json:"outcome"` // queued | complete | error | partial
	Disposition  string           `json:"disposition,omitempty"`
	PreAuthRef   string           `json:"preAuthRef,omitempty"`
	PreAuthPeriod *Period         `json:"preAuthPeriod,omitempty"`
	Item         []ResponseItem   `json:"item,omitempty"`
	Total        []ResponseTotal  `json:"total,omitempty"`
	Error        []ResponseError  `json:"error,omitempty"`
}

// ResponseItem mirrors an adjudicated claim item by sequence.
type ResponseItem struct {
	ItemSequence int            `json:"itemSequence"`
	NoteNumber   []int          `json:"noteNumber,omitempty"`
	Adjudication []Adjudication `json:"adjudication"`
}

// Adjudication is a single adjudication result for an item.
type Adjudication struct {
	Category *CodeableConcept `json:"category"`
	Reason   *CodeableConcept `json:"reason,omitempty"`
	Amount   *Money           `json:"amount,omitempty"`
	Value    float64          `json:"value,omitempty"`
}

// ResponseTotal is a category total across all items.
type ResponseTotal struct {
	Category *CodeableConcept `json:"category"`
	Amount   *Money           `json:"amount"`
}

// ResponseError reports a processing error, optionally tied to an item.
type ResponseError struct {
	ItemSequence       int              `json:"itemSequence,omitempty"`
	DetailSequence     int              `json:"detailSequence,omitempty"`
	SubDetailSequence  int              `json:"subDetailSequence,omitempty"`
	Code               *CodeableConcept `json:"code"`
}

// ClaimResponse.Outcome values.
const (
	OutcomeQueued   = "queued"
	OutcomeComplete = "complete"
	OutcomeError    = "error"
	OutcomePartial  = "partial"
)
