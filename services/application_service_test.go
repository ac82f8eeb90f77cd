package services

import (
	"database/sql/driver"
	"regexp"
	"sort"
	"testing"

	"admissions-api/models"
)

func TestNewApplicationFromPayloadCopiesFormData(t *testing.T) {
	payload := &SubmissionPayload{
		ApplicationType: models.AppTypeNewAdmission,
		FullName:        "Amina Yusuf",
		Email:           "amina@example.com",
		FormData:        map[string]interface{}{"motivation": "research"},
	}

	first := newApplicationFromPayload(payload, 10, nil)
	second := newApplicationFromPayload(payload, 10, nil)

	first.FormData["motivation"] = "changed"
	if second.FormData["motivation"] != "research" {
		t.Fatalf("form data shared between fanned-out applications: %v", second.FormData)
	}
	if payload.FormData["motivation"] != "research" {
		t.Fatalf("payload form data mutated: %v", payload.FormData)
	}

	if first.Status != models.AppStatusPendingReview {
		t.Fatalf("new application status = %q, want %q", first.Status, models.AppStatusPendingReview)
	}
	if first.ApplicantID != 10 || first.SubmittedByInstitutionID != nil {
		t.Fatalf("unexpected ownership: applicant %d institution %v", first.ApplicantID, first.SubmittedByInstitutionID)
	}
}

func TestNewApplicationFromPayloadRecordsSubmittingInstitution(t *testing.T) {
	payload := &SubmissionPayload{ApplicationType: models.AppTypeNewAdmission, Email: "amina@example.com"}
	institutionID := 4

	app := newApplicationFromPayload(payload, 10, &institutionID)
	if app.SubmittedByInstitutionID == nil || *app.SubmittedByInstitutionID != 4 {
		t.Fatalf("submitting institution not recorded: %v", app.SubmittedByInstitutionID)
	}
}

func TestResolveOrCreateApplicantNormalizesEmail(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .users. WHERE LOWER\(email\) = \?`),
			args:    []driver.Value{"amina@example.com", int64(1)},
			columns: []string{"user_id", "email", "full_name"},
			rows: [][]driver.Value{
				{int64(12), "Amina@Example.com", "Amina Yusuf"},
			},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	user, err := resolveOrCreateApplicant(db, "  Amina@Example.COM ", "Amina Yusuf")
	if err != nil {
		t.Fatalf("expected lookup to succeed, got %v", err)
	}
	if user.UserID != 12 {
		t.Fatalf("resolved wrong user: %+v", user)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestResolveOrCreateApplicantRejectsInvalidEmail(t *testing.T) {
	_, err := resolveOrCreateApplicant(nil, "not-an-email", "Amina Yusuf")
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPlanHistoryMergeUpdatesCreatesAndDeletes(t *testing.T) {
	existing := []models.AcademicHistory{
		{HistoryID: 1, ApplicationID: 7, DegreeLevel: "BACHELOR"},
		{HistoryID: 2, ApplicationID: 7, DegreeLevel: "MASTER"},
	}
	incoming := []AcademicHistoryInput{
		{HistoryID: 1, DegreeLevel: "BACHELOR", GPA: 3.4},
		{DegreeLevel: "PHD", UniversityName: "University of Tehran"},
	}

	plan := planHistoryMerge(7, existing, incoming)

	if len(plan.updates) != 1 || plan.updates[0].HistoryID != 1 || plan.updates[0].GPA != 3.4 {
		t.Fatalf("unexpected updates: %+v", plan.updates)
	}
	if len(plan.creates) != 1 || plan.creates[0].HistoryID != 0 || plan.creates[0].DegreeLevel != "PHD" {
		t.Fatalf("unexpected creates: %+v", plan.creates)
	}
	if len(plan.deleteIDs) != 1 || plan.deleteIDs[0] != 2 {
		t.Fatalf("unexpected deletes: %v", plan.deleteIDs)
	}
	if plan.creates[0].ApplicationID != 7 {
		t.Fatalf("created row not bound to application: %+v", plan.creates[0])
	}
}

func TestPlanHistoryMergeIgnoresForeignIDs(t *testing.T) {
	// An id the application does not own is treated as a new row, not
	// an update against someone else's data.
	plan := planHistoryMerge(7, nil, []AcademicHistoryInput{{HistoryID: 999, DegreeLevel: "BACHELOR"}})
	if len(plan.updates) != 0 {
		t.Fatalf("foreign id produced an update: %+v", plan.updates)
	}
	if len(plan.creates) != 1 || plan.creates[0].HistoryID != 0 {
		t.Fatalf("unexpected creates: %+v", plan.creates)
	}
}

func TestPlanChoiceMergeTracksUniversityChurn(t *testing.T) {
	existing := []models.UniversityChoice{
		{ChoiceID: 1, ApplicationID: 7, UniversityID: 3, Priority: 1},
	}
	incoming := []UniversityChoiceInput{
		{ChoiceID: 1, UniversityID: 3, Priority: 2},
		{UniversityID: 5, Priority: 1},
	}

	plan := planChoiceMerge(7, existing, incoming)

	if len(plan.updates) != 1 || plan.updates[0].Priority != 2 {
		t.Fatalf("unexpected updates: %+v", plan.updates)
	}
	if len(plan.creates) != 1 || plan.creates[0].UniversityID != 5 {
		t.Fatalf("unexpected creates: %+v", plan.creates)
	}
	if len(plan.deleteIDs) != 0 {
		t.Fatalf("unexpected deletes: %v", plan.deleteIDs)
	}
	if len(plan.addedUniversityIDs) != 1 || plan.addedUniversityIDs[0] != 5 {
		t.Fatalf("unexpected added universities: %v", plan.addedUniversityIDs)
	}
	if len(plan.removedUniversityIDs) != 0 {
		t.Fatalf("unexpected removed universities: %v", plan.removedUniversityIDs)
	}
}

func TestPlanChoiceMergeRemovesDroppedUniversity(t *testing.T) {
	existing := []models.UniversityChoice{
		{ChoiceID: 1, ApplicationID: 7, UniversityID: 3, Priority: 1},
		{ChoiceID: 2, ApplicationID: 7, UniversityID: 5, Priority: 2},
	}
	incoming := []UniversityChoiceInput{
		{ChoiceID: 1, UniversityID: 3, Priority: 1},
	}

	plan := planChoiceMerge(7, existing, incoming)

	if len(plan.deleteIDs) != 1 || plan.deleteIDs[0] != 2 {
		t.Fatalf("unexpected deletes: %v", plan.deleteIDs)
	}
	if len(plan.removedUniversityIDs) != 1 || plan.removedUniversityIDs[0] != 5 {
		t.Fatalf("unexpected removed universities: %v", plan.removedUniversityIDs)
	}
	if len(plan.addedUniversityIDs) != 0 {
		t.Fatalf("unexpected added universities: %v", plan.addedUniversityIDs)
	}
}

func TestResubmitResetsOnlyCompletedTasks(t *testing.T) {
	// A resubmission must reopen completed reviews (expert unassigned,
	// decision back to PENDING) while leaving in-flight tasks alone,
	// so the reset predicate targets COMPLETED rows only.
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .applications. WHERE tracking_code = \?.*FOR UPDATE`),
			columns: []string{"application_id", "tracking_code", "application_type", "status", "applicant_id"},
			rows: [][]driver.Value{
				{int64(7), "APP-11111111", models.AppTypeNewAdmission, models.AppStatusPendingCorrection, int64(10)},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?i)UPDATE .applications. SET`),
			argAt:   map[int]driver.Value{7: models.AppStatusPendingReview},
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .academic_histories. WHERE application_id = \?`),
			columns: []string{"history_id", "application_id", "degree_level"},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?i)INSERT INTO .academic_histories.`),
			result:  scriptedResult{lastInsertID: 5, rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .university_choices. WHERE application_id = \?`),
			columns: []string{"choice_id", "application_id", "university_id", "program_id", "priority"},
			rows: [][]driver.Value{
				{int64(1), int64(7), int64(3), int64(2), int64(1)},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?i)UPDATE .university_choices. SET`),
			result:  scriptedResult{rowsAffected: 1},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?i)UPDATE .application_tasks. SET .assigned_expert_id.=\?,.decision.=\?,.status.=\?,.updated_at.=\? WHERE application_id = \? AND status = \?`),
			argAt: map[int]driver.Value{
				0: nil,
				1: models.TaskDecisionPending,
				2: models.TaskStatusUnclaimed,
				4: int64(7),
				5: models.TaskStatusCompleted,
			},
			result: scriptedResult{rowsAffected: 2},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile(`(?i)INSERT INTO .application_logs.`),
			result:  scriptedResult{lastInsertID: 1, rowsAffected: 1},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .applications. WHERE application_id = \?`),
			columns: []string{"application_id", "tracking_code", "status"},
			rows: [][]driver.Value{
				{int64(7), "APP-11111111", models.AppStatusPendingReview},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .academic_histories.`),
			columns: []string{"history_id"},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .application_documents.`),
			columns: []string{"document_id"},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .application_tasks.`),
			columns: []string{"task_id"},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile(`(?i)SELECT .* FROM .university_choices.`),
			columns: []string{"choice_id"},
		},
	}

	db, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	payload := &ResubmitPayload{
		FullName: "Amina Yusuf",
		Email:    "amina@example.com",
		AcademicHistories: []AcademicHistoryInput{
			{DegreeLevel: "BACHELOR", Country: "IR", UniversityName: "Tehran", FieldOfStudy: "CS", GPA: 3.4},
		},
		UniversityChoices: []UniversityChoiceInput{
			{ChoiceID: 1, UniversityID: 3, ProgramID: 2, Priority: 1},
		},
	}

	svc := NewApplicationService(db)
	updated, err := svc.Resubmit(&models.User{UserID: 10}, "APP-11111111", payload)
	if err != nil {
		t.Fatalf("expected resubmission to succeed, got %v", err)
	}
	if updated.Status != models.AppStatusPendingReview {
		t.Fatalf("expected status %s, got %s", models.AppStatusPendingReview, updated.Status)
	}
	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestPlanChoiceMergeSwapWithinSameUniversities(t *testing.T) {
	// Re-prioritizing the same universities must not churn tasks.
	existing := []models.UniversityChoice{
		{ChoiceID: 1, ApplicationID: 7, UniversityID: 3, Priority: 1},
		{ChoiceID: 2, ApplicationID: 7, UniversityID: 5, Priority: 2},
	}
	incoming := []UniversityChoiceInput{
		{ChoiceID: 1, UniversityID: 3, Priority: 2},
		{ChoiceID: 2, UniversityID: 5, Priority: 1},
	}

	plan := planChoiceMerge(7, existing, incoming)
	if len(plan.addedUniversityIDs) != 0 || len(plan.removedUniversityIDs) != 0 {
		t.Fatalf("priority swap churned universities: added %v removed %v",
			plan.addedUniversityIDs, plan.removedUniversityIDs)
	}
	if len(plan.creates) != 0 || len(plan.deleteIDs) != 0 {
		t.Fatalf("priority swap created or deleted rows: %+v %v", plan.creates, plan.deleteIDs)
	}

	priorities := []int{plan.updates[0].Priority, plan.updates[1].Priority}
	sort.Ints(priorities)
	if priorities[0] != 1 || priorities[1] != 2 {
		t.Fatalf("priorities not swapped: %+v", plan.updates)
	}
}
