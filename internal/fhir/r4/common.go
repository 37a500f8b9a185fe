// Package r4 provides FHIR R4 data structures for the prior authorization engine.
package r4

import (
	"fmt"
	"strings"
	"time"
)

// Meta contains metadata about a resource.
type Meta struct {
	VersionID   string    `json:"versionId,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
	Source      string    `json:"source,omitempty"`
	Profile     []string  `json:"profile,omitempty"`
	Tag         []Coding  `json:"tag,omitempty"`
}

// Identifier represents a FHIR Identifier.
type Identifier struct {
	Use      string           `json:"use,omitempty"` // usual | official | temp | secondary | old
	Type     *CodeableConcept `json:"type,omitempty"`
	System   string           `json:"system,omitempty"`
	Value    string           `json:"value,omitempty"`
	Period   *Period          `json:"period,omitempty"`
	Assigner *Reference       `json:"assigner,omitempty"`
}

// CodeableConcept represents a concept with text and codings.
type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// FirstCode returns the code of the first coding, or the empty string.
func (c *CodeableConcept) FirstCode() string {
	if c == nil || len(c.Coding) == 0 {
		return ""
	}
	return c.Coding[0].Code
}

// Coding represents a code from a terminology system.
type Coding struct {
	System       string `json:"system,omitempty"`
	Version      string `json:"version,omitempty"`
	Code         string `json:"code,omitempty"`
	Display      string `json:"display,omitempty"`
	UserSelected bool   `json:"userSelected,omitempty"`
}

// Reference represents a reference to another resource. Literal references
// use the "ResourceType/id" form.
type Reference struct {
	Reference  string      `json:"reference,omitempty"`
	Type       string      `json:"type,omitempty"`
	Identifier *Identifier `json:"identifier,omitempty"`
	Display    string      `json:"display,omitempty"`
}

// NewReference builds a literal reference to a resource. An empty id still
// yields the "ResourceType/" form so the referenced type stays visible.
func NewReference(resourceType, id string) *Reference {
	return &Reference{Reference: fmt.Sprintf("%s/%s", resourceType, id), Type: resourceType}
}

// ID returns the id portion of a literal reference, or the empty string.
func (r *Reference) ID() string {
	if r == nil {
		return ""
	}
	if i := strings.LastIndex(r.Reference, "/"); i >= 0 {
		return r.Reference[i+1:]
	}
	return r.Reference
}

// Period represents a time period.
type Period struct {
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
}

// Quantity represents a measured amount.
type Quantity struct {
	Value      float64 `json:"value,omitempty"`
	Comparator string  `json:"comparator,omitempty"`
	Unit       string  `json:"unit,omitempty"`
	System     string  `json:"system,omitempty"`
	Code       string  `json:"code,omitempty"`
}

// Money represents an amount of currency.
type Money struct {
	Value    float64 `json:"value,omitempty"`
	Currency string  `json:"currency,omitempty"`
}

// Annotation represents a note or comment.
type Annotation struct {
	AuthorReference *Reference `json:"authorReference,omitempty"`
	AuthorString    string     `json:"authorString,omitempty"`
	Time            time.Time  `json:"time,omitempty"`
	Text            string     `json:"text"`
}

// Common terminology systems used by prior authorization resources.
const (
	SystemICD10       = "http://hl7.org/fhir/sid/icd-10-cm"
	SystemCPT         = "http://www.ama-assn.org/go/cpt"
	SystemNPI         = "http://hl7.org/fhir/sid/us-npi"
	SystemClaimType   = "http://terminology.hl7.org/CodeSystem/claim-type"
	SystemProcessPrio = "http://terminology.hl7.org/CodeSystem/processpriority"
)
