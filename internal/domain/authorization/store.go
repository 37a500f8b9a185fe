package authorization

import "context"

// RecordFunc runs inside the store's transaction with the authorization row
// locked. It may mutate the authorization; the store persists the returned
// visit and events atomically with the mutation. Returning an error aborts
// the transaction and nothing is written.
type RecordFunc func(auth *Authorization) (*VisitUsage, []*Event, error)

// Store persists authorizations, visits, tasks and the audit trail.
// Implementations must serialize RecordVisit calls per authorization so
// concurrent recordings cannot both consume the last visit.
type Store interface {
	GetAuthorization(ctx context.Context, id string) (*Authorization, error)
	CreateAuthorization(ctx context.Context, auth *Authorization) error
	UpdateAuthorization(ctx context.Context, auth *Authorization) error

	// RecordVisit locks the authorization, runs fn and persists the
	// mutated authorization, the visit and the events in one transaction.
	RecordVisit(ctx context.Context, authorizationID string, fn RecordFunc) error

	ListVisits(ctx context.Context, authorizationID string) ([]*VisitUsage, error)

	CreateTask(ctx context.Context, task *Task) error
	UpdateTask(ctx context.Context, task *Task) error
	GetTask(ctx context.Context, id string) (*Task, error)
	ListTasks(ctx context.Context, authorizationID string) ([]*Task, error)

	AppendEvents(ctx context.Context, events []*Event) error
}
