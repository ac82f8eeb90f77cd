package services

import (
	"database/sql/driver"
	"regexp"
	"testing"

	"admissions-api/models"
)

func completedTask(decision string) models.ApplicationTask {
	return models.ApplicationTask{Status: models.TaskStatusCompleted, Decision: decision}
}

func TestFinalOutcomeEmptySetIsNoDecision(t *testing.T) {
	if _, ok := FinalOutcome(nil); ok {
		t.Fatal("expected no outcome for an empty task set")
	}
}

func TestFinalOutcomeWaitsForAllReviews(t *testing.T) {
	tasks := []models.ApplicationTask{
		completedTask(models.TaskDecisionRejected),
		{Status: models.TaskStatusAssigned, Decision: models.TaskDecisionPending},
	}
	if _, ok := FinalOutcome(tasks); ok {
		t.Fatal("expected no outcome while a review is outstanding")
	}
}

func TestFinalOutcomeSingleApprovalWins(t *testing.T) {
	tasks := []models.ApplicationTask{
		completedTask(models.TaskDecisionRejected),
		completedTask(models.TaskDecisionRejected),
		completedTask(models.TaskDecisionApproved),
	}
	status, ok := FinalOutcome(tasks)
	if !ok {
		t.Fatal("expected an outcome for a fully completed set")
	}
	if status != models.AppStatusApproved {
		t.Fatalf("expected APPROVED, got %s", status)
	}
}

func TestFinalOutcomeAllRejectionsReject(t *testing.T) {
	tasks := []models.ApplicationTask{
		completedTask(models.TaskDecisionRejected),
		completedTask(models.TaskDecisionRejected),
	}
	status, ok := FinalOutcome(tasks)
	if !ok {
		t.Fatal("expected an outcome for a fully completed set")
	}
	if status != models.AppStatusRejected {
		t.Fatalf("expected REJECTED, got %s", status)
	}
}

func TestProcessFinalDecisionSkipsTerminalApplication(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .applications. WHERE application_id = \?.*FOR UPDATE`),
			columns: []string{"application_id", "tracking_code", "status"},
			rows: [][]driver.Value{
				{int64(7), "APP-11111111", models.AppStatusApproved},
			},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewFinalDecisionService(db, nil)
	if err := svc.ProcessFinalDecision(7); err != nil {
		t.Fatalf("expected silent no-op for terminal application, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestProcessFinalDecisionSkipsWhileReviewsOutstanding(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .applications. WHERE application_id = \?.*FOR UPDATE`),
			columns: []string{"application_id", "tracking_code", "status"},
			rows: [][]driver.Value{
				{int64(7), "APP-11111111", models.AppStatusPendingReview},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .application_tasks. WHERE application_id = \?`),
			columns: []string{"task_id", "application_id", "university_id", "status", "decision"},
			rows: [][]driver.Value{
				{int64(1), int64(7), int64(1), models.TaskStatusCompleted, models.TaskDecisionRejected},
				{int64(2), int64(7), int64(2), models.TaskStatusAssigned, models.TaskDecisionPending},
			},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewFinalDecisionService(db, nil)
	if err := svc.ProcessFinalDecision(7); err != nil {
		t.Fatalf("expected silent no-op while reviews are outstanding, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestProcessFinalDecisionFinalizesAndLogsOnce(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .applications. WHERE application_id = \?.*FOR UPDATE`),
			columns: []string{"application_id", "tracking_code", "status"},
			rows: [][]driver.Value{
				{int64(7), "APP-11111111", models.AppStatusPendingReview},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .application_tasks. WHERE application_id = \?`),
			columns: []string{"task_id", "application_id", "university_id", "status", "decision"},
			rows: [][]driver.Value{
				{int64(1), int64(7), int64(1), models.TaskStatusCompleted, models.TaskDecisionRejected},
				{int64(2), int64(7), int64(2), models.TaskStatusCompleted, models.TaskDecisionApproved},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("(?i)UPDATE .applications. SET"),
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("(?i)INSERT INTO .application_logs."),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	svc := NewFinalDecisionService(db, nil)
	if err := svc.ProcessFinalDecision(7); err != nil {
		t.Fatalf("expected finalization to succeed, got %v", err)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}
