package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"admissions-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Expert decision actions.
const (
	ActionApprove = "APPROVE"
	ActionReject  = "REJECT"
	ActionCorrect = "CORRECT"
)

// TaskService owns expert-side transitions of review tasks: claiming,
// deciding, correction requests and admin reassignment.
type TaskService struct {
	db            *gorm.DB
	decisions     *FinalDecisionService
	notifications *NotificationService
}

func NewTaskService(db *gorm.DB, decisions *FinalDecisionService) *TaskService {
	svc := &TaskService{db: db, decisions: decisions}
	if decisions != nil {
		svc.notifications = decisions.notifications
	}
	return svc
}

// HasAffiliation reports whether the user is affiliated with the
// university as a reviewer.
func (s *TaskService) HasAffiliation(userID, universityID int) (bool, error) {
	var count int64
	err := s.db.Model(&models.UserUniversity{}).
		Where("user_id = ? AND university_id = ?", userID, universityID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Claim assigns the university's unclaimed task for the application to
// the expert. The transition is a compare-and-swap on the UNCLAIMED
// status, so two experts racing for the same task leave exactly one
// winner; the loser gets a ConflictError.
func (s *TaskService) Claim(expert *models.User, trackingCode string, universityID int) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	application, university, task, err := loadTaskScope(tx, trackingCode, universityID)
	if err != nil {
		tx.Rollback()
		return err
	}

	result := tx.Model(&models.ApplicationTask{}).
		Where("task_id = ? AND status = ?", task.TaskID, models.TaskStatusUnclaimed).
		Updates(map[string]interface{}{
			"status":             models.TaskStatusAssigned,
			"assigned_expert_id": expert.UserID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return NewConflictError("task for %s is no longer unclaimed", university.Name)
	}

	actorID := expert.UserID
	action := fmt.Sprintf("Task for %s claimed.", university.Name)
	if err := appendLog(tx, application.ApplicationID, &actorID, action, ""); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// Decide records the expert's APPROVE or REJECT verdict, completes the
// task and, once the transaction has committed, hands the application
// to the final-decision evaluation.
func (s *TaskService) Decide(expert *models.User, trackingCode string, universityID int, action, comment string) error {
	action = strings.ToUpper(strings.TrimSpace(action))
	if action != ActionApprove && action != ActionReject {
		return NewValidationError("action must be either '%s' or '%s'", ActionApprove, ActionReject)
	}
	comment = strings.TrimSpace(comment)
	if action == ActionReject && comment == "" {
		return NewValidationError("a comment is required when rejecting")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	application, university, task, err := loadTaskScopeForUpdate(tx, trackingCode, universityID)
	if err != nil {
		tx.Rollback()
		return err
	}

	if task.AssignedExpertID == nil || *task.AssignedExpertID != expert.UserID {
		tx.Rollback()
		return NewNotFoundError("assigned task")
	}
	if task.Status == models.TaskStatusCompleted {
		tx.Rollback()
		return NewInvalidStateError("task for %s is already completed", university.Name)
	}

	decision := models.TaskDecisionApproved
	logAction := fmt.Sprintf("Approved for %s", university.Name)
	if action == ActionReject {
		decision = models.TaskDecisionRejected
		logAction = fmt.Sprintf("Rejected for %s", university.Name)
	}

	if err := tx.Model(&models.ApplicationTask{}).
		Where("task_id = ?", task.TaskID).
		Updates(map[string]interface{}{
			"status":     models.TaskStatusCompleted,
			"decision":   decision,
			"updated_at": time.Now(),
		}).Error; err != nil {
		tx.Rollback()
		return err
	}

	actorID := expert.UserID
	if err := appendLog(tx, application.ApplicationID, &actorID, logAction, comment); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	// Runs strictly after the commit above so the evaluation can never
	// observe a task state that might still roll back. Failures here
	// leave the recorded decision intact; a later completion retries
	// the evaluation.
	if err := s.decisions.ProcessFinalDecision(application.ApplicationID); err != nil {
		log.Printf("final decision evaluation failed for application %s: %v", application.TrackingCode, err)
	}
	return nil
}

// RequestCorrection sends the whole application back to the applicant.
// The comment tells the applicant what to fix and is mandatory. Task
// state stays untouched.
func (s *TaskService) RequestCorrection(expert *models.User, trackingCode, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return NewValidationError("a comment is required when requesting a correction")
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var application models.Application
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tracking_code = ? AND deleted_at IS NULL", trackingCode).
		First(&application).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("application")
		}
		return err
	}

	// Only an expert affiliated with one of the application's reviewing
	// universities may send it back. Applications outside the expert's
	// scope stay invisible.
	var related int64
	if err := tx.Model(&models.ApplicationTask{}).
		Joins("JOIN user_universities uu ON uu.university_id = application_tasks.university_id").
		Where("application_tasks.application_id = ? AND uu.user_id = ?", application.ApplicationID, expert.UserID).
		Count(&related).Error; err != nil {
		tx.Rollback()
		return err
	}
	if related == 0 {
		tx.Rollback()
		return NewNotFoundError("application")
	}

	if application.IsTerminal() {
		tx.Rollback()
		return NewInvalidStateError("application already has a final decision")
	}

	if err := tx.Model(&models.Application{}).
		Where("application_id = ?", application.ApplicationID).
		Updates(map[string]interface{}{
			"status":     models.AppStatusPendingCorrection,
			"updated_at": time.Now(),
		}).Error; err != nil {
		tx.Rollback()
		return err
	}

	actorID := expert.UserID
	if err := appendLog(tx, application.ApplicationID, &actorID, "Application requires correction.", comment); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	if s.notifications != nil {
		s.notifications.NotifyCorrectionRequested(&application, comment)
	}
	return nil
}

// Reassign moves a not-yet-completed task to another expert. The new
// expert must hold the expert role and be affiliated with the task's
// university.
func (s *TaskService) Reassign(admin *models.User, taskID, newExpertID int) error {
	var task models.ApplicationTask
	if err := s.db.Preload("University").Preload("AssignedExpert").
		Where("task_id = ?", taskID).
		First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("task")
		}
		return err
	}

	if task.Status == models.TaskStatusCompleted {
		return NewInvalidStateError("cannot reassign a completed task")
	}

	var newExpert models.User
	if err := s.db.Preload("Role").
		Where("user_id = ? AND deleted_at IS NULL", newExpertID).
		First(&newExpert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("user")
		}
		return err
	}

	if !newExpert.HasRole(models.RoleUniversityExpert) {
		return NewValidationError("target user is not a university expert")
	}
	affiliated, err := s.HasAffiliation(newExpert.UserID, task.UniversityID)
	if err != nil {
		return err
	}
	if !affiliated {
		return NewValidationError("target expert is not affiliated with %s", task.University.Name)
	}

	oldExpert := "Unassigned"
	if task.AssignedExpert != nil {
		oldExpert = task.AssignedExpert.Email
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	// Conditional on status: a task completed between the read above
	// and this write must not be reopened as ASSIGNED.
	result := tx.Model(&models.ApplicationTask{}).
		Where("task_id = ? AND status <> ?", task.TaskID, models.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":             models.TaskStatusAssigned,
			"assigned_expert_id": newExpert.UserID,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return NewInvalidStateError("cannot reassign a completed task")
	}

	actorID := admin.UserID
	action := fmt.Sprintf("Task for %s reassigned from %s to %s by admin.",
		task.University.Name, oldExpert, newExpert.Email)
	if err := appendLog(tx, task.ApplicationID, &actorID, action, ""); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// loadTaskScope resolves the (application, university, task) triple a
// per-university operation works on.
func loadTaskScope(tx *gorm.DB, trackingCode string, universityID int) (*models.Application, *models.University, *models.ApplicationTask, error) {
	return loadTaskScopeLocked(tx, trackingCode, universityID, false)
}

func loadTaskScopeForUpdate(tx *gorm.DB, trackingCode string, universityID int) (*models.Application, *models.University, *models.ApplicationTask, error) {
	return loadTaskScopeLocked(tx, trackingCode, universityID, true)
}

func loadTaskScopeLocked(tx *gorm.DB, trackingCode string, universityID int, forUpdate bool) (*models.Application, *models.University, *models.ApplicationTask, error) {
	var application models.Application
	if err := tx.Where("tracking_code = ? AND deleted_at IS NULL", trackingCode).
		First(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, NewNotFoundError("application")
		}
		return nil, nil, nil, err
	}

	var university models.University
	if err := tx.Where("university_id = ? AND deleted_at IS NULL", universityID).
		First(&university).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, NewNotFoundError("university")
		}
		return nil, nil, nil, err
	}

	query := tx.Where("application_id = ? AND university_id = ?", application.ApplicationID, universityID)
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var task models.ApplicationTask
	if err := query.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, nil, NewNotFoundError("task")
		}
		return nil, nil, nil, err
	}

	return &application, &university, &task, nil
}
