package r4

import "fmt"

// ValidationIssue is one problem found while validating a resource.
type ValidationIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// ValidationResult collects the issues for one resource. Validation here is
// deliberately shallow: structural presence, enum membership and sequence
// consistency. Full profile validation belongs to a terminology server, not
// this engine.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}

func (r *ValidationResult) add(path, format string, args ...any) {
	r.Issues = append(r.Issues, ValidationIssue{Path: path, Message: fmt.Sprintf(format, args...)})
}

var claimStatuses = map[string]bool{
	"active": true, "cancelled": true, "draft": true, "entered-in-error": true,
}

var claimUses = map[string]bool{
	UseClaim: true, UsePreauthorization: true, UsePredetermination: true,
}

var responseOutcomes = map[string]bool{
	OutcomeQueued: true, OutcomeComplete: true, OutcomeError: true, OutcomePartial: true,
}

// ValidateClaim checks a Claim's structural invariants.
func ValidateClaim(c *Claim) ValidationResult {
	var r ValidationResult
	if c == nil {
		r.add("Claim", "resource is nil")
		return r
	}
	if c.ResourceType != "Claim" {
		r.add("Claim.resourceType", "got %q, want Claim", c.ResourceType)
	}
	if !claimStatuses[c.Status] {
		r.add("Claim.status", "unknown status %q", c.Status)
	}
	if !claimUses[c.Use] {
		r.add("Claim.use", "unknown use %q", c.Use)
	}
	if c.Patient == nil || c.Patient.Reference == "" {
		r.add("Claim.patient", "missing patient reference")
	}
	if c.Provider == nil || c.Provider.Reference == "" {
		r.add("Claim.provider", "missing provider reference")
	}

	seen := make(map[int]bool, len(c.Diagnosis))
	for i, d := range c.Diagnosis {
		path := fmt.Sprintf("Claim.diagnosis[%d]", i)
		if d.Sequence < 1 {
			r.add(path+".sequence", "sequence %d is not 1-based", d.Sequence)
		} else if seen[d.Sequence] {
			r.add(path+".sequence", "duplicate sequence %d", d.Sequence)
		}
		seen[d.Sequence] = true
		if d.DiagnosisCodeableConcept.FirstCode() == "" && d.DiagnosisReference == nil {
			r.add(path, "no diagnosis code or reference")
		}
	}

	itemSeen := make(map[int]bool, len(c.Item))
	for i, item := range c.Item {
		path := fmt.Sprintf("Claim.item[%d]", i)
		if item.Sequence < 1 {
			r.add(path+".sequence", "sequence %d is not 1-based", item.Sequence)
		} else if itemSeen[item.Sequence] {
			r.add(path+".sequence", "duplicate sequence %d", item.Sequence)
		}
		itemSeen[item.Sequence] = true
		for _, ds := range item.DiagnosisSequence {
			if !seen[ds] {
				r.add(path+".diagnosisSequence", "references missing diagnosis %d", ds)
			}
		}
	}

	r.Valid = len(r.Issues) == 0
	return r
}

// ValidateClaimResponse checks a ClaimResponse's structural invariants.
func ValidateClaimResponse(c *ClaimResponse) ValidationResult {
	var r ValidationResult
	if c == nil {
		r.add("ClaimResponse", "resource is nil")
		return r
	}
	if c.ResourceType != "ClaimResponse" {
		r.add("ClaimResponse.resourceType", "got %q, want ClaimResponse", c.ResourceType)
	}
	if !claimStatuses[c.Status] {
		r.add("ClaimResponse.status", "unknown status %q", c.Status)
	}
	if !responseOutcomes[c.Outcome] {
		r.add("ClaimResponse.outcome", "unknown outcome %q", c.Outcome)
	}
	r.Valid = len(r.Issues) == 0
	return r
}
