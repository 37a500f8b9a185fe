package authorization

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

const (
	EventVisitRecorded      EventType = "visit_recorded"
	EventAuthExhausted      EventType = "authorization_exhausted"
	EventStatusChanged      EventType = "authorization_status_changed"
	EventTaskCreated        EventType = "task_created"
	EventTaskEscalated      EventType = "task_escalated"
	EventTaskCompleted      EventType = "task_completed"
	EventRequestSubmitted   EventType = "request_submitted"
	EventResponseProcessed  EventType = "response_processed"
)

// Event is a domain event recorded on the audit trail and relayed to the
// message bus through the outbox.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     EventType       `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	PatientID     string          `json:"patient_id,omitempty"`
	ProviderNPI   string          `json:"provider_npi,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with marshaled payload data.
func NewEvent(aggregateID string, eventType EventType, data any) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: "Authorization",
		EventType:     eventType,
		EventData:     eventData,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// WithAuditInfo sets the audit trail identity fields.
func (e *Event) WithAuditInfo(patientID, providerNPI string) *Event {
	e.PatientID = patientID
	e.ProviderNPI = providerNPI
	return e
}

// VisitRecordedData is the payload for EventVisitRecorded.
type VisitRecordedData struct {
	AuthorizationID string    `json:"authorization_id"`
	VisitID         string    `json:"visit_id"`
	VisitNumber     int       `json:"visit_number"`
	VisitDate       time.Time `json:"visit_date"`
	CPTCode         string    `json:"cpt_code,omitempty"`
	VisitsRemaining int       `json:"visits_remaining"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// AuthExhaustedData is the payload for EventAuthExhausted.
type AuthExhaustedData struct {
	AuthorizationID string `json:"authorization_id"`
	VisitsApproved  int    `json:"visits_approved"`
	FinalVisitID    string `json:"final_visit_id"`
}

// TaskCreatedData is the payload for EventTaskCreated.
type TaskCreatedData struct {
	TaskID          string    `json:"task_id"`
	AuthorizationID string    `json:"authorization_id"`
	Type            TaskType  `json:"type"`
	Priority        Priority  `json:"priority"`
	DueDate         time.Time `json:"due_date"`
}
