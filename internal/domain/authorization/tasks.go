package authorization

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskType represents the kind of work a task asks for.
type TaskType string

const (
	TaskSubmit        TaskType = "submit"
	TaskFollowUp      TaskType = "follow_up"
	TaskAppeal        TaskType = "appeal"
	TaskDocumentation TaskType = "documentation"
	TaskReview        TaskType = "review"
	TaskResubmit      TaskType = "resubmit"
)

// Priority represents task priority.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityUrgent   Priority = "urgent"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// TaskStatus represents task workflow state.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusOnHold     TaskStatus = "on_hold"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// SubmissionState tracks where a submit task's X12 transaction stands.
type SubmissionState string

const (
	SubmissionNone         SubmissionState = "not_submitted"
	SubmissionSent         SubmissionState = "submitted"
	SubmissionAcknowledged SubmissionState = "acknowledged"
	SubmissionResponse     SubmissionState = "response_received"
)

// Task is one unit of authorization work.
type Task struct {
	ID               string          `json:"id"`
	AuthorizationID  string          `json:"authorization_id"`
	Type             TaskType        `json:"type"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Priority         Priority        `json:"priority"`
	Status           TaskStatus      `json:"status"`
	Submission       SubmissionState `json:"submission,omitempty"`
	DueDate          time.Time       `json:"due_date"`
	EstimatedMinutes int             `json:"estimated_minutes"`
	PercentComplete  int             `json:"percent_complete"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
	EscalatedAt      *time.Time      `json:"escalated_at,omitempty"`
}

// taskDueOffsets holds the due-date offset in days for each non-submit task
// type. Submit due dates depend on urgency and are handled separately.
var taskDueOffsets = map[TaskType]int{
	TaskFollowUp:      5,
	TaskAppeal:        7,
	TaskDocumentation: 2,
	TaskReview:        1,
	TaskResubmit:      3,
}

// taskDurations holds the estimated effort in minutes per task type.
var taskDurations = map[TaskType]int{
	TaskSubmit:        30,
	TaskFollowUp:      15,
	TaskAppeal:        120,
	TaskDocumentation: 60,
	TaskReview:        20,
	TaskResubmit:      45,
}

var taskTitles = map[TaskType]string{
	TaskSubmit:        "Submit authorization request for %s",
	TaskFollowUp:      "Follow up on authorization %s",
	TaskAppeal:        "Prepare appeal for authorization %s",
	TaskDocumentation: "Gather supporting documentation for %s",
	TaskReview:        "Review authorization %s",
	TaskResubmit:      "Correct and resubmit authorization %s",
}

// PriorityForUrgency derives a task priority from the authorization's
// clinical urgency. The derivation is deterministic.
func PriorityForUrgency(urgency Urgency) Priority {
	switch urgency {
	case UrgencyStat:
		return PriorityCritical
	case UrgencyUrgent:
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

// submitDueOffset is the days until a submit task is due, by urgency.
func submitDueOffset(urgency Urgency) int {
	switch urgency {
	case UrgencyStat:
		return 0
	case UrgencyUrgent:
		return 1
	default:
		return 2
	}
}

// NewTask builds a task of the given type for an authorization. Due date,
// estimated effort, priority and title all derive from the type and the
// authorization's urgency.
func NewTask(auth *Authorization, taskType TaskType, now time.Time) (*Task, error) {
	duration, ok := taskDurations[taskType]
	if !ok {
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	offset := submitDueOffset(auth.Urgency)
	if taskType != TaskSubmit {
		offset = taskDueOffsets[taskType]
	}

	label := auth.AuthNumber
	if label == "" {
		label = auth.ID
	}

	task := &Task{
		ID:               uuid.New().String(),
		AuthorizationID:  auth.ID,
		Type:             taskType,
		Title:            fmt.Sprintf(taskTitles[taskType], label),
		Priority:         PriorityForUrgency(auth.Urgency),
		Status:           TaskStatusPending,
		DueDate:          now.AddDate(0, 0, offset),
		EstimatedMinutes: duration,
		CreatedAt:        now,
	}
	if taskType == TaskSubmit || taskType == TaskResubmit {
		task.Submission = SubmissionNone
	}
	return task, nil
}

// TaskOptions carries caller overrides applied on top of the derived task
// defaults. Zero values leave the derived value in place.
type TaskOptions struct {
	Priority    Priority `json:"priority,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (t *Task) applyOptions(opts TaskOptions) error {
	if opts.Priority != "" {
		if _, ok := priorityRank[opts.Priority]; !ok {
			return fmt.Errorf("unknown priority %q", opts.Priority)
		}
		t.Priority = opts.Priority
	}
	if opts.Title != "" {
		t.Title = opts.Title
	}
	if opts.Description != "" {
		t.Description = opts.Description
	}
	return nil
}

// newExhaustionFollowUp builds the high priority follow up created when an
// authorization runs out of visits. Exhaustion outranks routine urgency but
// is not a clinical emergency, so the priority is fixed at high.
func newExhaustionFollowUp(auth *Authorization, now time.Time) (*Task, error) {
	task, err := NewTask(auth, TaskFollowUp, now)
	if err != nil {
		return nil, err
	}
	if task.Priority != PriorityCritical && task.Priority != PriorityUrgent {
		task.Priority = PriorityHigh
	}
	task.Description = fmt.Sprintf("All %d approved visits have been used; request additional visits or discharge.",
		auth.VisitsApproved)
	return task, nil
}

// priorityRank orders priorities for escalation comparisons.
var priorityRank = map[Priority]int{
	PriorityLow:      1,
	PriorityMedium:   2,
	PriorityHigh:     3,
	PriorityUrgent:   4,
	PriorityCritical: 5,
}

// Escalate raises the task to urgent priority. Escalation is one way: a
// task at urgent or critical keeps its priority, and completed or cancelled
// tasks cannot be escalated.
func (t *Task) Escalate(now time.Time) error {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return fmt.Errorf("cannot escalate %s task %s", t.Status, t.ID)
	}
	if priorityRank[t.Priority] < priorityRank[PriorityUrgent] {
		t.Priority = PriorityUrgent
	}
	escalated := now
	t.EscalatedAt = &escalated
	return nil
}

// Hold pauses an open task. Completed and cancelled tasks stay final.
func (t *Task) Hold() error {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return fmt.Errorf("cannot hold %s task %s", t.Status, t.ID)
	}
	t.Status = TaskStatusOnHold
	return nil
}

// Resume returns an on-hold task to its working state.
func (t *Task) Resume() error {
	if t.Status != TaskStatusOnHold {
		return fmt.Errorf("task %s is not on hold", t.ID)
	}
	if t.PercentComplete > 0 {
		t.Status = TaskStatusInProgress
	} else {
		t.Status = TaskStatusPending
	}
	return nil
}

// SetProgress updates percent complete. Full completion goes through
// Complete so the completion timestamp invariant holds.
func (t *Task) SetProgress(pct int) error {
	if pct < 0 || pct > 100 {
		return fmt.Errorf("percent complete %d out of range", pct)
	}
	if t.Status == TaskStatusCompleted {
		return errors.New("task already completed")
	}
	if pct == 100 {
		return errors.New("use Complete to finish a task")
	}
	t.PercentComplete = pct
	if pct > 0 && t.Status == TaskStatusPending {
		t.Status = TaskStatusInProgress
	}
	return nil
}

// Complete marks the task done, pinning percent complete to 100 and
// stamping the completion time.
func (t *Task) Complete(now time.Time) error {
	if t.Status == TaskStatusCompleted {
		return errors.New("task already completed")
	}
	if t.Status == TaskStatusCancelled {
		return errors.New("cannot complete a cancelled task")
	}
	t.Status = TaskStatusCompleted
	t.PercentComplete = 100
	completed := now
	t.CompletedAt = &completed
	return nil
}

// MarkSubmission advances the X12 submission state on submit and resubmit
// tasks.
func (t *Task) MarkSubmission(state SubmissionState) error {
	if t.Type != TaskSubmit && t.Type != TaskResubmit {
		return fmt.Errorf("task type %s has no submission state", t.Type)
	}
	t.Submission = state
	return nil
}

// Overdue reports whether the task is past due and still open.
func (t *Task) Overdue(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusCancelled {
		return false
	}
	return now.After(t.DueDate)
}
