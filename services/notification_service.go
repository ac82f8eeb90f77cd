package services

import (
	"fmt"
	"log"
	"time"

	"admissions-api/config"
	"admissions-api/models"

	"gorm.io/gorm"
)

// NotificationService creates in-app notification rows and mirrors
// them to email. Delivery is best effort: failures are logged, never
// propagated into the workflow.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// NotifyFinalDecision tells the applicant their application reached a
// final verdict.
func (s *NotificationService) NotifyFinalDecision(application *models.Application) {
	verdict := "approved"
	notifType := "success"
	if application.Status == models.AppStatusRejected {
		verdict = "rejected"
		notifType = "error"
	}

	title := fmt.Sprintf("Application %s %s", application.TrackingCode, verdict)
	message := fmt.Sprintf("Your application %s has been %s.", application.TrackingCode, verdict)
	s.create(application.ApplicantID, application.ApplicationID, title, message, notifType)

	var applicant models.User
	if err := s.db.Where("user_id = ?", application.ApplicantID).First(&applicant).Error; err != nil {
		log.Printf("Warning: cannot load applicant %d for decision mail: %v", application.ApplicantID, err)
		return
	}
	go func(to, subject, body string) {
		if err := config.SendMail([]string{to}, subject, body); err != nil {
			log.Printf("Warning: decision mail to %s failed: %v", to, err)
		}
	}(applicant.Email, title, fmt.Sprintf("<p>%s</p>", message))
}

// NotifyCorrectionRequested tells the applicant their application was
// sent back for correction.
func (s *NotificationService) NotifyCorrectionRequested(application *models.Application, comment string) {
	title := fmt.Sprintf("Application %s needs correction", application.TrackingCode)
	message := fmt.Sprintf("Your application %s was sent back for correction: %s", application.TrackingCode, comment)
	s.create(application.ApplicantID, application.ApplicationID, title, message, "warning")
}

func (s *NotificationService) create(userID, applicationID int, title, message, notifType string) {
	row := models.Notification{
		UserID:               userID,
		Title:                title,
		Message:              message,
		Type:                 notifType,
		RelatedApplicationID: &applicationID,
		CreatedAt:            time.Now(),
	}
	if err := s.db.Create(&row).Error; err != nil {
		log.Printf("Warning: failed to create notification for user %d: %v", userID, err)
	}
}
