// Package authorization implements the prior authorization lifecycle:
// visit quota tracking, usage validation and the work tasks that keep an
// authorization moving.
package authorization

import (
	"fmt"
	"time"
)

// Status represents authorization status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusDenied    Status = "denied"
	StatusExpired   Status = "expired"
	StatusExhausted Status = "exhausted"
	StatusCancelled Status = "cancelled"
)

// Urgency represents the clinical urgency of the authorization request.
type Urgency string

const (
	UrgencyStat    Urgency = "stat"
	UrgencyUrgent  Urgency = "urgent"
	UrgencyRoutine Urgency = "routine"
)

// Authorization is the aggregate root for one payer authorization.
type Authorization struct {
	ID             string    `json:"id"`
	AuthNumber     string    `json:"auth_number"`
	PatientID      string    `json:"patient_id"`
	ProviderNPI    string    `json:"provider_npi"`
	PayerID        string    `json:"payer_id"`
	Status         Status    `json:"status"`
	Urgency        Urgency   `json:"urgency"`
	VisitsApproved int       `json:"visits_approved"`
	VisitsUsed     int       `json:"visits_used"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	CPTCodes       []string  `json:"cpt_codes"`

	// Visit stamps maintained by recording: set on the first visit, bumped
	// on every visit, and fixed at the moment the quota ran out.
	FirstVisitDate *time.Time `json:"first_visit_date,omitempty"`
	LastVisitDate  *time.Time `json:"last_visit_date,omitempty"`
	ExhaustedAt    *time.Time `json:"exhausted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VisitsRemaining reports how many authorized visits are left.
func (a *Authorization) VisitsRemaining() int {
	if r := a.VisitsApproved - a.VisitsUsed; r > 0 {
		return r
	}
	return 0
}

// AllowsCPT reports whether a CPT code is on the authorized list. An empty
// list authorizes nothing explicitly; callers treat that as unknown.
func (a *Authorization) AllowsCPT(code string) bool {
	for _, c := range a.CPTCodes {
		if c == code {
			return true
		}
	}
	return false
}

// VisitUsage is one recorded visit against an authorization. VisitNumber is
// 1-based, strictly increasing and never reused.
type VisitUsage struct {
	ID              string    `json:"id"`
	AuthorizationID string    `json:"authorization_id"`
	VisitNumber     int       `json:"visit_number"`
	VisitDate       time.Time `json:"visit_date"`
	CPTCode         string    `json:"cpt_code,omitempty"`
	ProviderNPI     string    `json:"provider_npi,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// NotFoundError reports a missing authorization or task.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// RecordingError is returned when a visit cannot be recorded. It carries the
// full validation result so callers can show every blocking reason.
type RecordingError struct {
	AuthorizationID string
	Result          ValidationResult
}

func (e *RecordingError) Error() string {
	return fmt.Sprintf("visit recording blocked for authorization %s: %v",
		e.AuthorizationID, e.Result.ErrorCodes())
}
