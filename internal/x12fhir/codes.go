package x12fhir

import (
	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
)

// AckCodeForOutcome maps a ClaimResponse outcome to the functional
// acknowledgment code. Only a fully complete adjudication acknowledges as
// accepted; queued, partial and error all reject so the submitter retries
// or investigates.
func AckCodeForOutcome(outcome string) string {
	if outcome == r4.OutcomeComplete {
		return edi278.AckAccepted
	}
	return edi278.AckRejected
}

// entityResourceTypes maps X12 entity identifier codes to the FHIR resource
// type a reference to that entity should carry.
var entityResourceTypes = map[string]string{
	edi278.EntityPatient:    "Patient",
	edi278.EntitySubscriber: "Patient",
	edi278.EntityProvider:   "Practitioner",
	edi278.EntityPayer:      "Organization",
	edi278.EntityUMO:        "Organization",
}
