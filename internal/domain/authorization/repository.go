package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Repository is the Postgres-backed Store. RecordVisit serializes per
// authorization with a row lock so concurrent recordings against the same
// quota are applied one at a time.
type Repository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{pool: pool, logger: logger}
}

var _ Store = (*Repository)(nil)

const authColumns = `id, auth_number, patient_id, provider_npi, payer_id, status, urgency,
	       visits_approved, visits_used, start_date, end_date, cpt_codes,
	       first_visit_date, last_visit_date, exhausted_at, created_at, updated_at`

func scanAuthorization(row pgx.Row) (*Authorization, error) {
	a := &Authorization{}
	err := row.Scan(&a.ID, &a.AuthNumber, &a.PatientID, &a.ProviderNPI, &a.PayerID,
		&a.Status, &a.Urgency, &a.VisitsApproved, &a.VisitsUsed,
		&a.StartDate, &a.EndDate, &a.CPTCodes,
		&a.FirstVisitDate, &a.LastVisitDate, &a.ExhaustedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetAuthorization retrieves an authorization by ID.
func (r *Repository) GetAuthorization(ctx context.Context, id string) (*Authorization, error) {
	query := `
		SELECT ` + authColumns + `
		FROM authorizations
		WHERE id = $1
	`
	auth, err := scanAuthorization(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Kind: "authorization", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get authorization: %w", err)
	}
	return auth, nil
}

// CreateAuthorization inserts a new authorization.
func (r *Repository) CreateAuthorization(ctx context.Context, auth *Authorization) error {
	query := `
		INSERT INTO authorizations
		(id, auth_number, patient_id, provider_npi, payer_id, status, urgency,
		 visits_approved, visits_used, start_date, end_date, cpt_codes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		auth.ID, auth.AuthNumber, auth.PatientID, auth.ProviderNPI, auth.PayerID,
		auth.Status, auth.Urgency, auth.VisitsApproved, auth.VisitsUsed,
		auth.StartDate, auth.EndDate, auth.CPTCodes, auth.CreatedAt, auth.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create authorization: %w", err)
	}
	return nil
}

// UpdateAuthorization persists mutable authorization fields.
func (r *Repository) UpdateAuthorization(ctx context.Context, auth *Authorization) error {
	query := `
		UPDATE authorizations
		SET status = $2, urgency = $3, visits_approved = $4, visits_used = $5,
		    start_date = $6, end_date = $7, cpt_codes = $8,
		    first_visit_date = $9, last_visit_date = $10, exhausted_at = $11, updated_at = $12
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		auth.ID, auth.Status, auth.Urgency, auth.VisitsApproved, auth.VisitsUsed,
		auth.StartDate, auth.EndDate, auth.CPTCodes,
		auth.FirstVisitDate, auth.LastVisitDate, auth.ExhaustedAt, auth.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update authorization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Kind: "authorization", ID: auth.ID}
	}
	return nil
}

// RecordVisit locks the authorization row, runs fn and writes the visit,
// the authorization mutation and the audit events in one transaction.
func (r *Repository) RecordVisit(ctx context.Context, authorizationID string, fn RecordFunc) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT ` + authColumns + `
		FROM authorizations
		WHERE id = $1
		FOR UPDATE
	`
	auth, err := scanAuthorization(tx.QueryRow(ctx, query, authorizationID))
	if errors.Is(err, pgx.ErrNoRows) {
		// Let validation produce AUTH_NOT_FOUND.
		_, _, fnErr := fn(nil)
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("lock authorization: %w", err)
	}

	visit, events, err := fn(auth)
	if err != nil {
		return err
	}

	insertVisit := `
		INSERT INTO visit_usages
		(id, authorization_id, visit_number, visit_date, cpt_code, provider_npi, notes, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := tx.Exec(ctx, insertVisit,
		visit.ID, visit.AuthorizationID, visit.VisitNumber, visit.VisitDate,
		visit.CPTCode, visit.ProviderNPI, visit.Notes, visit.RecordedAt); err != nil {
		return fmt.Errorf("insert visit: %w", err)
	}

	updateAuth := `
		UPDATE authorizations
		SET status = $2, visits_used = $3, first_visit_date = $4,
		    last_visit_date = $5, exhausted_at = $6, updated_at = $7
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateAuth,
		auth.ID, auth.Status, auth.VisitsUsed, auth.FirstVisitDate,
		auth.LastVisitDate, auth.ExhaustedAt, auth.UpdatedAt); err != nil {
		return fmt.Errorf("update authorization: %w", err)
	}

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertEvents(ctx context.Context, tx pgx.Tx, events []*Event) error {
	query := `
		INSERT INTO authorization_events
		(id, aggregate_id, aggregate_type, event_type, event_data, patient_id, provider_npi, correlation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, e := range events {
		if _, err := tx.Exec(ctx, query,
			e.ID, e.AggregateID, e.AggregateType, e.EventType, e.EventData,
			e.PatientID, e.ProviderNPI, e.CorrelationID, e.Timestamp); err != nil {
			return fmt.Errorf("insert event %s: %w", e.EventType, err)
		}
	}
	return nil
}

// ListVisits returns visits for an authorization in visit number order.
func (r *Repository) ListVisits(ctx context.Context, authorizationID string) ([]*VisitUsage, error) {
	query := `
		SELECT id, authorization_id, visit_number, visit_date, cpt_code, provider_npi, notes, recorded_at
		FROM visit_usages
		WHERE authorization_id = $1
		ORDER BY visit_number ASC
	`
	rows, err := r.pool.Query(ctx, query, authorizationID)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var visits []*VisitUsage
	for rows.Next() {
		v := &VisitUsage{}
		if err := rows.Scan(&v.ID, &v.AuthorizationID, &v.VisitNumber, &v.VisitDate,
			&v.CPTCode, &v.ProviderNPI, &v.Notes, &v.RecordedAt); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// CreateTask inserts a task.
func (r *Repository) CreateTask(ctx context.Context, task *Task) error {
	query := `
		INSERT INTO tasks
		(id, authorization_id, type, title, description, priority, status, submission,
		 due_date, estimated_minutes, percent_complete, created_at, completed_at, escalated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		task.ID, task.AuthorizationID, task.Type, task.Title, task.Description,
		task.Priority, task.Status, task.Submission, task.DueDate,
		task.EstimatedMinutes, task.PercentComplete, task.CreatedAt,
		task.CompletedAt, task.EscalatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// UpdateTask persists mutable task fields.
func (r *Repository) UpdateTask(ctx context.Context, task *Task) error {
	query := `
		UPDATE tasks
		SET priority = $2, status = $3, submission = $4, percent_complete = $5,
		    completed_at = $6, escalated_at = $7
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query,
		task.ID, task.Priority, task.Status, task.Submission,
		task.PercentComplete, task.CompletedAt, task.EscalatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Kind: "task", ID: task.ID}
	}
	return nil
}

// GetTask retrieves a task by ID.
func (r *Repository) GetTask(ctx context.Context, id string) (*Task, error) {
	query := `
		SELECT id, authorization_id, type, title, description, priority, status, submission,
		       due_date, estimated_minutes, percent_complete, created_at, completed_at, escalated_at
		FROM tasks
		WHERE id = $1
	`
	t := &Task{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.AuthorizationID, &t.Type, &t.Title, &t.Description,
		&t.Priority, &t.Status, &t.Submission, &t.DueDate,
		&t.EstimatedMinutes, &t.PercentComplete, &t.CreatedAt,
		&t.CompletedAt, &t.EscalatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Kind: "task", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks for an authorization, newest first.
func (r *Repository) ListTasks(ctx context.Context, authorizationID string) ([]*Task, error) {
	query := `
		SELECT id, authorization_id, type, title, description, priority, status, submission,
		       due_date, estimated_minutes, percent_complete, created_at, completed_at, escalated_at
		FROM tasks
		WHERE authorization_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, authorizationID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		if err := rows.Scan(&t.ID, &t.AuthorizationID, &t.Type, &t.Title, &t.Description,
			&t.Priority, &t.Status, &t.Submission, &t.DueDate,
			&t.EstimatedMinutes, &t.PercentComplete, &t.CreatedAt,
			&t.CompletedAt, &t.EscalatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// AppendEvents inserts events outside a recording transaction.
func (r *Repository) AppendEvents(ctx context.Context, events []*Event) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertEvents(ctx, tx, events); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
