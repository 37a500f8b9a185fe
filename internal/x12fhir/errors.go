// Package x12fhir provides transformation logic between X12 278 prior
// authorization transactions and FHIR R4 Claim resources.
package x12fhir

import "fmt"

// MapError represents a mapping error with context.
type MapError struct {
	Field   string
	Code    string
	Message string
	Cause   error
}

func (e *MapError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *MapError) Unwrap() error {
	return e.Cause
}

// ConversionWarning is a non-fatal mapping degradation. The conversion
// succeeds; the caller decides whether to log or surface it.
type ConversionWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (w ConversionWarning) String() string {
	return fmt.Sprintf("%s [%s]: %s", w.Field, w.Code, w.Message)
}

// Warning codes emitted by the mappers.
const (
	WarnPriorityDefaulted      = "PRIORITY_DEFAULTED"
	WarnProceduresUnsupported  = "PROCEDURES_UNSUPPORTED"
	WarnEntityIDMissing        = "ENTITY_ID_MISSING"
	WarnServiceDateUnparseable = "SERVICE_DATE_UNPARSEABLE"
)
