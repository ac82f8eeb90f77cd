package services

import (
	"errors"
	"time"

	"admissions-api/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FinalDecisionService derives an application's final verdict from its
// university tasks once every review is in.
//
// Rule: approved if AT LEAST ONE university approved; rejected only if
// all rejected. Invoked explicitly by TaskService.Decide after its
// transaction commits.
type FinalDecisionService struct {
	db            *gorm.DB
	notifications *NotificationService
}

func NewFinalDecisionService(db *gorm.DB, notifications *NotificationService) *FinalDecisionService {
	return &FinalDecisionService{db: db, notifications: notifications}
}

// FinalOutcome computes the verdict for a task set. ok is false while
// the set is empty or any review is still outstanding.
func FinalOutcome(tasks []models.ApplicationTask) (string, bool) {
	if len(tasks) == 0 {
		return "", false
	}
	for _, task := range tasks {
		if task.Status != models.TaskStatusCompleted {
			return "", false
		}
	}
	for _, task := range tasks {
		if task.Decision == models.TaskDecisionApproved {
			return models.AppStatusApproved, true
		}
	}
	return models.AppStatusRejected, true
}

// ProcessFinalDecision re-evaluates the application's task set and
// finalizes the application if every task is completed. The
// application row is re-read under a write lock and the terminal-state
// guard makes the evaluation idempotent, so two racing last
// completions produce exactly one final decision and one audit entry.
// A no-op (reviews outstanding, already finalized) is a normal, silent
// outcome.
func (s *FinalDecisionService) ProcessFinalDecision(applicationID int) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var application models.Application
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_id = ? AND deleted_at IS NULL", applicationID).
		First(&application).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return NewNotFoundError("application")
		}
		return err
	}

	if application.IsTerminal() {
		tx.Rollback()
		return nil
	}

	var tasks []models.ApplicationTask
	if err := tx.Where("application_id = ?", applicationID).Find(&tasks).Error; err != nil {
		tx.Rollback()
		return err
	}

	status, ok := FinalOutcome(tasks)
	if !ok {
		tx.Rollback()
		return nil
	}

	if err := tx.Model(&models.Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error; err != nil {
		tx.Rollback()
		return err
	}

	logAction := "Final decision reached: Approved."
	if status == models.AppStatusRejected {
		logAction = "Final decision reached: Rejected."
	}
	if err := appendLog(tx, applicationID, nil, logAction, ""); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	application.Status = status
	if s.notifications != nil {
		s.notifications.NotifyFinalDecision(&application)
	}
	return nil
}
