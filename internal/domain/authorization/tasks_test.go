package authorization

import (
	"testing"
	"time"
)

func TestPriorityForUrgency(t *testing.T) {
	tests := []struct {
		urgency Urgency
		want    Priority
	}{
		{UrgencyStat, PriorityCritical},
		{UrgencyUrgent, PriorityUrgent},
		{UrgencyRoutine, PriorityMedium},
		{Urgency(""), PriorityMedium},
	}
	for _, tt := range tests {
		if got := PriorityForUrgency(tt.urgency); got != tt.want {
			t.Errorf("PriorityForUrgency(%q) = %q, want %q", tt.urgency, got, tt.want)
		}
	}
}

func TestNewTaskDueDatesAndDurations(t *testing.T) {
	tests := []struct {
		taskType    TaskType
		urgency     Urgency
		wantDays    int
		wantMinutes int
	}{
		{TaskSubmit, UrgencyStat, 0, 30},
		{TaskSubmit, UrgencyUrgent, 1, 30},
		{TaskSubmit, UrgencyRoutine, 2, 30},
		{TaskFollowUp, UrgencyRoutine, 5, 15},
		{TaskAppeal, UrgencyRoutine, 7, 120},
		{TaskDocumentation, UrgencyRoutine, 2, 60},
		{TaskReview, UrgencyRoutine, 1, 20},
		{TaskResubmit, UrgencyRoutine, 3, 45},
	}

	for _, tt := range tests {
		auth := approvedAuth()
		auth.Urgency = tt.urgency
		task, err := NewTask(auth, tt.taskType, testNow)
		if err != nil {
			t.Fatalf("NewTask(%s): %v", tt.taskType, err)
		}
		if want := testNow.AddDate(0, 0, tt.wantDays); !task.DueDate.Equal(want) {
			t.Errorf("%s/%s due = %v, want %v", tt.taskType, tt.urgency, task.DueDate, want)
		}
		if task.EstimatedMinutes != tt.wantMinutes {
			t.Errorf("%s minutes = %d, want %d", tt.taskType, task.EstimatedMinutes, tt.wantMinutes)
		}
		if task.Status != TaskStatusPending || task.PercentComplete != 0 || task.CompletedAt != nil {
			t.Errorf("%s initial state = %+v", tt.taskType, task)
		}
	}
}

func TestNewTaskUnknownType(t *testing.T) {
	if _, err := NewTask(approvedAuth(), TaskType("chase"), testNow); err == nil {
		t.Fatal("unknown task type accepted")
	}
}

func TestNewTaskTitleUsesAuthNumber(t *testing.T) {
	auth := approvedAuth()
	task, err := NewTask(auth, TaskFollowUp, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Follow up on authorization PA-2026-0042"; task.Title != want {
		t.Errorf("title = %q, want %q", task.Title, want)
	}

	auth.AuthNumber = ""
	task, err = NewTask(auth, TaskFollowUp, testNow)
	if err != nil {
		t.Fatal(err)
	}
	if want := "Follow up on authorization auth-1"; task.Title != want {
		t.Errorf("title = %q, want %q", task.Title, want)
	}
}

func TestEscalateOneWay(t *testing.T) {
	auth := approvedAuth()
	task, _ := NewTask(auth, TaskReview, testNow)

	if err := task.Escalate(testNow); err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if task.Priority != PriorityUrgent {
		t.Errorf("priority = %q, want urgent", task.Priority)
	}
	if task.EscalatedAt == nil {
		t.Error("escalated_at not stamped")
	}

	// A critical task keeps its priority.
	auth.Urgency = UrgencyStat
	critical, _ := NewTask(auth, TaskReview, testNow)
	if err := critical.Escalate(testNow); err != nil {
		t.Fatalf("Escalate critical: %v", err)
	}
	if critical.Priority != PriorityCritical {
		t.Errorf("critical downgraded to %q", critical.Priority)
	}

	if err := task.Complete(testNow); err != nil {
		t.Fatal(err)
	}
	if err := task.Escalate(testNow); err == nil {
		t.Error("completed task escalated")
	}
}

func TestCompletionInvariants(t *testing.T) {
	task, _ := NewTask(approvedAuth(), TaskDocumentation, testNow)

	if err := task.SetProgress(100); err == nil {
		t.Error("SetProgress(100) allowed outside Complete")
	}
	if err := task.SetProgress(40); err != nil {
		t.Fatalf("SetProgress: %v", err)
	}
	if task.Status != TaskStatusInProgress {
		t.Errorf("status = %q after progress", task.Status)
	}

	done := testNow.Add(2 * time.Hour)
	if err := task.Complete(done); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if task.PercentComplete != 100 {
		t.Errorf("percent = %d, want 100", task.PercentComplete)
	}
	if task.CompletedAt == nil || !task.CompletedAt.Equal(done) {
		t.Errorf("completed_at = %v", task.CompletedAt)
	}
	if err := task.Complete(done); err == nil {
		t.Error("double completion allowed")
	}
	if err := task.SetProgress(10); err == nil {
		t.Error("progress update after completion allowed")
	}
}

func TestSubmissionState(t *testing.T) {
	submit, _ := NewTask(approvedAuth(), TaskSubmit, testNow)
	if submit.Submission != SubmissionNone {
		t.Errorf("initial submission = %q", submit.Submission)
	}
	if err := submit.MarkSubmission(SubmissionSent); err != nil {
		t.Fatalf("MarkSubmission: %v", err)
	}
	if err := submit.MarkSubmission(SubmissionAcknowledged); err != nil {
		t.Fatalf("MarkSubmission: %v", err)
	}
	if err := submit.MarkSubmission(SubmissionResponse); err != nil {
		t.Fatalf("MarkSubmission: %v", err)
	}

	review, _ := NewTask(approvedAuth(), TaskReview, testNow)
	if err := review.MarkSubmission(SubmissionSent); err == nil {
		t.Error("review task accepted submission state")
	}
}

func TestTaskOptionsOverride(t *testing.T) {
	task, _ := NewTask(approvedAuth(), TaskFollowUp, testNow)
	if err := task.applyOptions(TaskOptions{
		Priority:    PriorityLow,
		Title:       "Chase the UMO about visit extension",
		Description: "Member needs four more visits before discharge.",
	}); err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if task.Priority != PriorityLow {
		t.Errorf("priority = %q, want low", task.Priority)
	}
	if task.Title != "Chase the UMO about visit extension" {
		t.Errorf("title = %q", task.Title)
	}
	if task.Description == "" {
		t.Error("description not applied")
	}

	// Empty options leave the derived values alone.
	derived, _ := NewTask(approvedAuth(), TaskFollowUp, testNow)
	title, priority := derived.Title, derived.Priority
	if err := derived.applyOptions(TaskOptions{}); err != nil {
		t.Fatalf("applyOptions: %v", err)
	}
	if derived.Title != title || derived.Priority != priority {
		t.Errorf("zero options mutated task: %+v", derived)
	}

	if err := task.applyOptions(TaskOptions{Priority: Priority("asap")}); err == nil {
		t.Error("unknown priority accepted")
	}
}

func TestHoldAndResume(t *testing.T) {
	task, _ := NewTask(approvedAuth(), TaskReview, testNow)
	if err := task.Hold(); err != nil {
		t.Fatalf("Hold: %v", err)
	}
	if task.Status != TaskStatusOnHold {
		t.Errorf("status = %q, want on_hold", task.Status)
	}
	if err := task.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if task.Status != TaskStatusPending {
		t.Errorf("status = %q, want pending", task.Status)
	}

	if err := task.SetProgress(30); err != nil {
		t.Fatal(err)
	}
	if err := task.Hold(); err != nil {
		t.Fatal(err)
	}
	if err := task.Resume(); err != nil {
		t.Fatal(err)
	}
	if task.Status != TaskStatusInProgress {
		t.Errorf("status = %q, want in_progress after partial work", task.Status)
	}

	if err := task.Complete(testNow); err != nil {
		t.Fatal(err)
	}
	if err := task.Hold(); err == nil {
		t.Error("completed task put on hold")
	}
	if err := task.Resume(); err == nil {
		t.Error("resumed a task that was not on hold")
	}
}

func TestOverdue(t *testing.T) {
	task, _ := NewTask(approvedAuth(), TaskReview, testNow)
	if task.Overdue(testNow) {
		t.Error("fresh task overdue")
	}
	late := testNow.AddDate(0, 0, 2)
	if !task.Overdue(late) {
		t.Error("past-due open task not overdue")
	}
	if err := task.Complete(late); err != nil {
		t.Fatal(err)
	}
	if task.Overdue(late.AddDate(0, 0, 1)) {
		t.Error("completed task reported overdue")
	}
}
