package r4

import "time"

// Claim represents a FHIR R4 Claim resource. Prior authorization requests
// use Use == "preauthorization".
type Claim struct {
	ResourceType   string            `json:"resourceType"` // always "Claim"
	ID             string            `json:"id,omitempty"`
	Meta           *Meta             `json:"meta,omitempty"`
	Identifier     []Identifier      `json:"identifier,omitempty"`
	Status         string            `json:"status"` // active | cancelled | draft | entered-in-error
	Type           *CodeableConcept  `json:"type,omitempty"`
	SubType        *CodeableConcept  `json:"subType,omitempty"`
	Use            string            `json:"use"` // claim | preauthorization | predetermination
	Patient        *Reference        `json:"patient,omitempty"`
	BillablePeriod *Period           `json:"billablePeriod,omitempty"`
	Created        time.Time         `json:"created,omitempty"`
	Enterer        *Reference        `json:"enterer,omitempty"`
	Insurer        *Reference        `json:"insurer,omitempty"`
	Provider       *Reference        `json:"provider,omitempty"`
	Priority       *CodeableConcept  `json:"priority,omitempty"` // stat | normal | deferred
	Referral       *Reference        `json:"referral,omitempty"`
	Facility       *Reference        `json:"facility,omitempty"`
	SupportingInfo []SupportingInfo  `json:"supportingInfo,omitempty"`
	Diagnosis      []ClaimDiagnosis  `json:"diagnosis,omitempty"`
	Procedure      []ClaimProcedure  `json:"procedure,omitempty"`
	Insurance      []ClaimInsurance  `json:"insurance,omitempty"`
	Item           []ClaimItem       `json:"item,omitempty"`
	Total          *Money            `json:"total,omitempty"`
}

// SupportingInfo carries additional information relevant to adjudication.
type SupportingInfo struct {
	Sequence       int              `json:"sequence"`
	Category       *CodeableConcept `json:"category,omitempty"`
	Code           *CodeableConcept `json:"code,omitempty"`
	TimingDate     string           `json:"timingDate,omitempty"`
	TimingPeriod   *Period          `json:"timingPeriod,omitempty"`
	ValueString    string           `json:"valueString,omitempty"`
	ValueQuantity  *Quantity        `json:"valueQuantity,omitempty"`
	ValueReference *Reference       `json:"valueReference,omitempty"`
	Reason         *CodeableConcept `json:"reason,omitempty"`
}

// ClaimDiagnosis is one diagnosis entry. Sequence is 1-based and must be
// unique within the claim.
type ClaimDiagnosis struct {
	Sequence                 int              `json:"sequence"`
	DiagnosisCodeableConcept *CodeableConcept `json:"diagnosisCodeableConcept,omitempty"`
	DiagnosisReference       *Reference       `json:"diagnosisReference,omitempty"`
	Type                     []CodeableConcept `json:"type,omitempty"`
	OnAdmission              *CodeableConcept `json:"onAdmission,omitempty"`
}

// ClaimProcedure is one procedure entry.
type ClaimProcedure struct {
	Sequence                 int              `json:"sequence"`
	Type                     []CodeableConcept `json:"type,omitempty"`
	Date                     time.Time        `json:"date,omitempty"`
	ProcedureCodeableConcept *CodeableConcept `json:"procedureCodeableConcept,omitempty"`
	ProcedureReference       *Reference       `json:"procedureReference,omitempty"`
}

// ClaimInsurance links the claim to a coverage.
type ClaimInsurance struct {
	Sequence              int        `json:"sequence"`
	Focal                 bool       `json:"focal"`
	Identifier            *Identifier `json:"identifier,omitempty"`
	Coverage              *Reference `json:"coverage,omitempty"`
	PreAuthRef            []string   `json:"preAuthRef,omitempty"`
	ClaimResponse         *Reference `json:"claimResponse,omitempty"`
	BusinessArrangement   string     `json:"businessArrangement,omitempty"`
}

// ClaimItem is a requested product or service. Sequence is 1-based.
type ClaimItem struct {
	Sequence          int              `json:"sequence"`
	DiagnosisSequence []int            `json:"diagnosisSequence,omitempty"`
	ProcedureSequence []int            `json:"procedureSequence,omitempty"`
	Category          *CodeableConcept `json:"category,omitempty"`
	ProductOrService  *CodeableConcept `json:"productOrService,omitempty"`
	Modifier          []CodeableConcept `json:"modifier,omitempty"`
	ServicedDate      string           `json:"servicedDate,omitempty"`
	ServicedPeriod    *Period          `json:"servicedPeriod,omitempty"`
	Quantity          *Quantity        `json:"quantity,omitempty"`
	UnitPrice         *Money           `json:"unitPrice,omitempty"`
	Net               *Money           `json:"net,omitempty"`
	LocationReference *Reference       `json:"locationReference,omitempty"`
}

// Claim.Use values.
const (
	UseClaim            = "claim"
	UsePreauthorization = "preauthorization"
	UsePredetermination = "predetermination"
)

// Priority codes from the process priority code system.
const (
	PriorityStat     = "stat"
	PriorityNormal   = "normal"
	PriorityDeferred = "deferred"
)

// PriorityCode returns the claim's priority code, defaulting to empty when
// no priority is set.
func (c *Claim) PriorityCode() string {
	return c.Priority.FirstCode()
}

// DiagnosisCodes returns the first coding of each diagnosis entry in
// sequence order as stored.
func (c *Claim) DiagnosisCodes() []string {
	codes := make([]string, 0, len(c.Diagnosis))
	for _, d := range c.Diagnosis {
		codes = append(codes, d.DiagnosisCodeableConcept.FirstCode())
	}
	return codes
}
