package services

import (
	"time"

	"admissions-api/models"

	"gorm.io/gorm"
)

// appendLog writes one audit trail entry inside the caller's
// transaction. A nil actorID records a system-generated action.
func appendLog(tx *gorm.DB, applicationID int, actorID *int, action string, comment string) error {
	entry := models.ApplicationLog{
		ApplicationID: applicationID,
		ActorID:       actorID,
		Action:        action,
		CreatedAt:     time.Now(),
	}
	if comment != "" {
		entry.Comment = &comment
	}
	return tx.Create(&entry).Error
}
