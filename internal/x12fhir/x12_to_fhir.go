package x12fhir

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claimspring/go-pax/internal/fhir/r4"
	"github.com/claimspring/go-pax/internal/x12/edi278"
	"github.com/claimspring/go-pax/pkg/idempotency"
)

// X12ToFHIRMapper transforms X12 278 requests into FHIR R4 Claim resources.
type X12ToFHIRMapper struct{}

// NewX12ToFHIRMapper creates a new mapper.
func NewX12ToFHIRMapper() *X12ToFHIRMapper {
	return &X12ToFHIRMapper{}
}

// ClaimResult contains the mapped Claim and any non-fatal warnings.
// IdempotencyKey is deterministic for the request contents, so a gateway
// redelivering the same interchange produces the same key.
type ClaimResult struct {
	Claim          *r4.Claim
	IdempotencyKey string
	Warnings       []ConversionWarning
}

// MapRequestToClaim converts a parsed 278 request transaction into a
// preauthorization Claim. The envelope must validate and the transaction
// set must be a 278; everything past that degrades to warnings rather than
// failures so a structurally sound request always yields a Claim.
func (m *X12ToFHIRMapper) MapRequestToClaim(tx *edi278.Transaction) (*ClaimResult, error) {
	if tx == nil {
		return nil, &MapError{Field: "Transaction", Code: "NULL_INPUT", Message: "transaction is required"}
	}
	if err := tx.Validate(); err != nil {
		return nil, &MapError{Field: "Envelope", Code: "VALIDATION_FAILED", Message: "envelope validation failed", Cause: err}
	}
	if tx.ST.SetID != edi278.TransactionSetID278 {
		return nil, &MapError{
			Field:   "ST01",
			Code:    "WRONG_TRANSACTION_SET",
			Message: fmt.Sprintf("transaction set %q, want %s", tx.ST.SetID, edi278.TransactionSetID278),
		}
	}

	result := &ClaimResult{}
	claim := &r4.Claim{
		ResourceType: "Claim",
		ID:           uuid.NewString(),
		Status:       "active",
		Use:          r4.UsePreauthorization,
		Type: &r4.CodeableConcept{Coding: []r4.Coding{
			{System: r4.SystemClaimType, Code: "professional"},
		}},
	}

	if bht := tx.BHT(); bht != nil {
		if bht.ReferenceID != "" {
			claim.Identifier = append(claim.Identifier, r4.Identifier{
				Use:   "official",
				Value: bht.ReferenceID,
			})
		}
		claim.Created = parseBHTTimestamp(bht)
	}

	claim.Patient = m.entityReference(tx, edi278.EntityPatient, "Patient", result)
	claim.Provider = m.entityReference(tx, edi278.EntityProvider, "Provider", result)
	if payer := tx.FindEntity(edi278.EntityUMO); payer != nil {
		claim.Insurer = r4.NewReference(entityResourceTypes[edi278.EntityUMO], payer.ID)
	}

	// The 278 request carries no process priority element, so the Claim
	// defaults to normal and the caller is told about it.
	claim.Priority = &r4.CodeableConcept{Coding: []r4.Coding{
		{System: r4.SystemProcessPrio, Code: r4.PriorityNormal},
	}}
	result.Warnings = append(result.Warnings, ConversionWarning{
		Field:   "Claim.priority",
		Code:    WarnPriorityDefaulted,
		Message: "no priority in 278 request, defaulted to normal",
	})

	for i, code := range tx.DiagnosisCodes(edi278.CodeListICD10) {
		claim.Diagnosis = append(claim.Diagnosis, r4.ClaimDiagnosis{
			Sequence: i + 1,
			DiagnosisCodeableConcept: &r4.CodeableConcept{Coding: []r4.Coding{
				{System: r4.SystemICD10, Code: code.Code},
			}},
		})
	}

	// Procedure code extraction from SV1/SV2 service lines is not
	// implemented; the Claim carries no items rather than guessed ones.
	procMsg := "procedure extraction from service lines is not supported"
	if len(tx.DiagnosisCodes(edi278.CodeListICD10P)) > 0 {
		procMsg = "ICD-10-PCS procedure codes present but procedure extraction is not supported"
	}
	result.Warnings = append(result.Warnings, ConversionWarning{
		Field:   "Claim.item",
		Code:    WarnProceduresUnsupported,
		Message: procMsg,
	})

	if period := m.servicePeriod(tx, result); period != nil {
		claim.BillablePeriod = period
	}

	result.Claim = claim

	var providerNPI, patientID, requestRef string
	if claim.Provider != nil {
		providerNPI = claim.Provider.ID()
	}
	if claim.Patient != nil {
		patientID = claim.Patient.ID()
	}
	if len(claim.Identifier) > 0 {
		requestRef = claim.Identifier[0].Value
	}
	result.IdempotencyKey = idempotency.GenerateKey(providerNPI, patientID, requestRef, claim.Created)

	return result, nil
}

// entityReference builds a reference from the first NM1 with the given
// code. A present entity with an empty identifier is tolerated and flagged.
func (m *X12ToFHIRMapper) entityReference(tx *edi278.Transaction, entityCode, field string, result *ClaimResult) *r4.Reference {
	nm1 := tx.FindEntity(entityCode)
	if nm1 == nil {
		return nil
	}
	if nm1.ID == "" {
		result.Warnings = append(result.Warnings, ConversionWarning{
			Field:   field,
			Code:    WarnEntityIDMissing,
			Message: fmt.Sprintf("NM1 %s entity has no identifier", entityCode),
		})
	}
	ref := r4.NewReference(entityResourceTypes[entityCode], nm1.ID)
	if nm1.LastOrOrgName != "" {
		ref.Display = displayName(nm1)
	}
	return ref
}

// servicePeriod derives the billable period from the service date DTP,
// falling back to the admission date when no service date is present.
func (m *X12ToFHIRMapper) servicePeriod(tx *edi278.Transaction, result *ClaimResult) *r4.Period {
	var admission *edi278.DateTimePeriod
	for _, seg := range tx.Body {
		dtp, ok := seg.(*edi278.DateTimePeriod)
		if !ok {
			continue
		}
		switch dtp.Qualifier {
		case edi278.DateQualifierService:
			return m.periodFromDTP(dtp, result)
		case edi278.DateQualifierAdmission:
			if admission == nil {
				admission = dtp
			}
		}
	}
	if admission != nil {
		return m.periodFromDTP(admission, result)
	}
	return nil
}

func (m *X12ToFHIRMapper) periodFromDTP(dtp *edi278.DateTimePeriod, result *ClaimResult) *r4.Period {
	start, err := edi278.ParseDate(dtp.Value)
	if err != nil {
		result.Warnings = append(result.Warnings, ConversionWarning{
			Field:   "Claim.billablePeriod",
			Code:    WarnServiceDateUnparseable,
			Message: fmt.Sprintf("DTP %s date %q is not CCYYMMDD", dtp.Qualifier, dtp.Value),
		})
		return nil
	}
	return &r4.Period{Start: start}
}

func displayName(nm1 *edi278.EntityName) string {
	if nm1.FirstName == "" {
		return nm1.LastOrOrgName
	}
	return nm1.FirstName + " " + nm1.LastOrOrgName
}

func parseBHTTimestamp(bht *edi278.BeginHierarchicalTransaction) time.Time {
	t, err := edi278.ParseDate(bht.Date)
	if err != nil {
		return time.Time{}
	}
	if len(bht.Time) >= 4 {
		if hhmm, err := time.Parse("1504", bht.Time[:4]); err == nil {
			t = t.Add(time.Duration(hhmm.Hour())*time.Hour + time.Duration(hhmm.Minute())*time.Minute)
		}
	}
	return t
}
