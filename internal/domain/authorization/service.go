package authorization

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EffectKind classifies a pending side effect.
type EffectKind string

const (
	EffectCreateTask   EffectKind = "create_task"
	EffectPublishEvent EffectKind = "publish_event"
)

// Effect is a side effect a recording produced but did not yet execute.
// The core transaction commits first; effects are applied afterwards,
// best effort, so a failed task write never rolls back a recorded visit.
type Effect struct {
	Kind  EffectKind
	Task  *Task
	Event *Event
}

// RecordResult is the outcome of a successful visit recording.
type RecordResult struct {
	Visit         *VisitUsage      `json:"visit"`
	Authorization *Authorization   `json:"authorization"`
	Validation    ValidationResult `json:"validation"`
	Effects       []Effect         `json:"-"`
}

// UsageStats summarizes visit consumption for an authorization.
type UsageStats struct {
	AuthorizationID string     `json:"authorization_id"`
	VisitsApproved  int        `json:"visits_approved"`
	VisitsUsed      int        `json:"visits_used"`
	VisitsRemaining int        `json:"visits_remaining"`
	PercentUsed     float64    `json:"percent_used"`
	Exhausted       bool       `json:"exhausted"`
	LastVisitDate   *time.Time `json:"last_visit_date,omitempty"`
	EndDate         time.Time  `json:"end_date"`
	DaysUntilExpiry int        `json:"days_until_expiry"`
}

// Service coordinates the authorization lifecycle.
type Service struct {
	store  Store
	logger *zap.Logger
	clock  func() time.Time
}

// NewService creates a service over the given store.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, clock: time.Now}
}

// WithClock overrides the service clock.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// ValidateVisitUsage checks a proposed visit without recording anything.
func (s *Service) ValidateVisitUsage(ctx context.Context, req VisitRequest) (ValidationResult, error) {
	auth, err := s.store.GetAuthorization(ctx, req.AuthorizationID)
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return ValidateVisit(nil, req, s.clock()), nil
		}
		return ValidationResult{}, err
	}
	return ValidateVisit(auth, req, s.clock()), nil
}

// RecordVisitUsage validates and records a visit in one serialized
// transaction. Recording is fail closed: any blocking validation error
// aborts with a RecordingError and no state changes. On success the visit
// number is the next in the authorization's strictly increasing sequence,
// and any follow up work appears as pending effects.
func (s *Service) RecordVisitUsage(ctx context.Context, req VisitRequest) (*RecordResult, error) {
	now := s.clock()
	result := &RecordResult{}

	err := s.store.RecordVisit(ctx, req.AuthorizationID, func(auth *Authorization) (*VisitUsage, []*Event, error) {
		validation := ValidateVisit(auth, req, now)
		result.Validation = validation
		if !validation.OK() {
			return nil, nil, &RecordingError{AuthorizationID: req.AuthorizationID, Result: validation}
		}

		visit := &VisitUsage{
			ID:              uuid.New().String(),
			AuthorizationID: auth.ID,
			VisitNumber:     auth.VisitsUsed + 1,
			VisitDate:       req.VisitDate,
			CPTCode:         req.CPTCode,
			ProviderNPI:     req.ProviderNPI,
			Notes:           req.Notes,
			RecordedAt:      now,
		}

		auth.VisitsUsed++
		auth.UpdatedAt = now

		stamp := visit.VisitDate
		if stamp.IsZero() {
			stamp = now
		}
		if auth.FirstVisitDate == nil {
			first := stamp
			auth.FirstVisitDate = &first
		}
		last := stamp
		auth.LastVisitDate = &last

		var events []*Event
		warnings := make([]string, 0, len(validation.Warnings))
		for _, w := range validation.Warnings {
			warnings = append(warnings, w.Code)
		}
		recorded, err := NewEvent(auth.ID, EventVisitRecorded, VisitRecordedData{
			AuthorizationID: auth.ID,
			VisitID:         visit.ID,
			VisitNumber:     visit.VisitNumber,
			VisitDate:       visit.VisitDate,
			CPTCode:         visit.CPTCode,
			VisitsRemaining: auth.VisitsRemaining(),
			Warnings:        warnings,
		})
		if err != nil {
			return nil, nil, err
		}
		events = append(events, recorded.WithAuditInfo(auth.PatientID, auth.ProviderNPI))

		if auth.VisitsRemaining() == 0 && auth.Status != StatusExhausted {
			auth.Status = StatusExhausted
			exhaustedAt := now
			auth.ExhaustedAt = &exhaustedAt
			exhausted, err := NewEvent(auth.ID, EventAuthExhausted, AuthExhaustedData{
				AuthorizationID: auth.ID,
				VisitsApproved:  auth.VisitsApproved,
				FinalVisitID:    visit.ID,
			})
			if err != nil {
				return nil, nil, err
			}
			events = append(events, exhausted.WithAuditInfo(auth.PatientID, auth.ProviderNPI))

			followUp, err := newExhaustionFollowUp(auth, now)
			if err != nil {
				return nil, nil, err
			}
			result.Effects = append(result.Effects, Effect{Kind: EffectCreateTask, Task: followUp})
		}

		result.Visit = visit
		result.Authorization = auth
		return visit, events, nil
	})
	if err != nil {
		var recording *RecordingError
		if errors.As(err, &recording) {
			s.logger.Warn("visit recording blocked",
				zap.String("authorization_id", req.AuthorizationID),
				zap.Strings("codes", recording.Result.ErrorCodes()))
		}
		return nil, err
	}

	s.applyEffects(ctx, result.Effects)

	s.logger.Info("visit recorded",
		zap.String("authorization_id", req.AuthorizationID),
		zap.Int("visit_number", result.Visit.VisitNumber),
		zap.Int("visits_remaining", result.Authorization.VisitsRemaining()))
	return result, nil
}

// applyEffects executes pending effects best effort. Failures are logged
// and never undo the committed recording.
func (s *Service) applyEffects(ctx context.Context, effects []Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case EffectCreateTask:
			if err := s.createTaskWithEvent(ctx, effect.Task); err != nil {
				s.logger.Error("effect failed",
					zap.String("kind", string(effect.Kind)),
					zap.String("task_id", effect.Task.ID),
					zap.Error(err))
			}
		case EffectPublishEvent:
			if err := s.store.AppendEvents(ctx, []*Event{effect.Event}); err != nil {
				s.logger.Error("effect failed",
					zap.String("kind", string(effect.Kind)),
					zap.Error(err))
			}
		}
	}
}

func (s *Service) createTaskWithEvent(ctx context.Context, task *Task) error {
	if err := s.store.CreateTask(ctx, task); err != nil {
		return err
	}
	event, err := NewEvent(task.AuthorizationID, EventTaskCreated, TaskCreatedData{
		TaskID:          task.ID,
		AuthorizationID: task.AuthorizationID,
		Type:            task.Type,
		Priority:        task.Priority,
		DueDate:         task.DueDate,
	})
	if err != nil {
		return err
	}
	return s.store.AppendEvents(ctx, []*Event{event})
}

// CreateTask builds and persists a task for an authorization. Options
// override the derived priority, title and description when set.
func (s *Service) CreateTask(ctx context.Context, authorizationID string, taskType TaskType, opts TaskOptions) (*Task, error) {
	auth, err := s.store.GetAuthorization(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	task, err := NewTask(auth, taskType, s.clock())
	if err != nil {
		return nil, err
	}
	if err := task.applyOptions(opts); err != nil {
		return nil, err
	}
	if err := s.createTaskWithEvent(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// EscalateTask raises a task to urgent priority.
func (s *Service) EscalateTask(ctx context.Context, taskID string) (*Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := task.Escalate(s.clock()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	event, err := NewEvent(task.AuthorizationID, EventTaskEscalated, TaskCreatedData{
		TaskID:          task.ID,
		AuthorizationID: task.AuthorizationID,
		Type:            task.Type,
		Priority:        task.Priority,
		DueDate:         task.DueDate,
	})
	if err == nil {
		if appendErr := s.store.AppendEvents(ctx, []*Event{event}); appendErr != nil {
			s.logger.Error("escalation event append failed", zap.Error(appendErr))
		}
	}
	return task, nil
}

// CompleteTask finishes a task.
func (s *Service) CompleteTask(ctx context.Context, taskID string) (*Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := task.Complete(s.clock()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// GetVisitUsageStats reports consumption for an authorization.
func (s *Service) GetVisitUsageStats(ctx context.Context, authorizationID string) (*UsageStats, error) {
	auth, err := s.store.GetAuthorization(ctx, authorizationID)
	if err != nil {
		return nil, err
	}
	visits, err := s.store.ListVisits(ctx, authorizationID)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		AuthorizationID: auth.ID,
		VisitsApproved:  auth.VisitsApproved,
		VisitsUsed:      auth.VisitsUsed,
		VisitsRemaining: auth.VisitsRemaining(),
		Exhausted:       auth.VisitsApproved > 0 && auth.VisitsRemaining() == 0,
		EndDate:         auth.EndDate,
	}
	if auth.VisitsApproved > 0 {
		stats.PercentUsed = math.Round(float64(auth.VisitsUsed) / float64(auth.VisitsApproved) * 100)
	}
	stats.LastVisitDate = auth.LastVisitDate
	for _, v := range visits {
		if stats.LastVisitDate == nil || v.VisitDate.After(*stats.LastVisitDate) {
			d := v.VisitDate
			stats.LastVisitDate = &d
		}
	}
	if !auth.EndDate.IsZero() {
		stats.DaysUntilExpiry = int(math.Ceil(auth.EndDate.Sub(s.clock()).Hours() / 24))
	}
	return stats, nil
}
