package services

import (
	"errors"
	"strings"
	"time"

	"admissions-api/models"
	"admissions-api/utils"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationService owns the applicant-facing lifecycle: submission
// fan-out and resubmission after correction.
type ApplicationService struct {
	db *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{db: db}
}

type AcademicHistoryInput struct {
	HistoryID       int     `json:"history_id"`
	DegreeLevel     string  `json:"degree_level"`
	Country         string  `json:"country"`
	UniversityName  string  `json:"university_name"`
	FieldOfStudy    string  `json:"field_of_study"`
	GPA             float64 `json:"gpa"`
	CertificateFile string  `json:"certificate_file"`
}

type UniversityChoiceInput struct {
	ChoiceID     int `json:"choice_id"`
	UniversityID int `json:"university_id"`
	ProgramID    int `json:"program_id"`
	Priority     int `json:"priority"`
}

type DocumentInput struct {
	DocumentID   int    `json:"document_id"`
	DocumentType string `json:"document_type"`
	FilePath     string `json:"file_path"`
}

// SubmissionPayload is one logical submission. N university choices
// fan out into N independent applications.
type SubmissionPayload struct {
	ApplicationType    string                 `json:"application_type"`
	FullName           string                 `json:"full_name"`
	DateOfBirth        *time.Time             `json:"date_of_birth"`
	CountryOfResidence string                 `json:"country_of_residence"`
	FatherName         string                 `json:"father_name"`
	GrandfatherName    string                 `json:"grandfather_name"`
	Email              string                 `json:"email"`
	FormData           map[string]interface{} `json:"form_data"`
	// ApplicantEmail identifies the applicant when an institution
	// submits on their behalf.
	ApplicantEmail    string                  `json:"applicant_email"`
	AcademicHistories []AcademicHistoryInput  `json:"academic_histories"`
	UniversityChoices []UniversityChoiceInput `json:"university_choices"`
	Documents         []DocumentInput         `json:"documents"`
}

type ResubmitPayload struct {
	FullName           string                  `json:"full_name"`
	DateOfBirth        *time.Time              `json:"date_of_birth"`
	CountryOfResidence string                  `json:"country_of_residence"`
	FatherName         string                  `json:"father_name"`
	GrandfatherName    string                  `json:"grandfather_name"`
	Email              string                  `json:"email"`
	FormData           map[string]interface{}  `json:"form_data"`
	AcademicHistories  []AcademicHistoryInput  `json:"academic_histories"`
	UniversityChoices  []UniversityChoiceInput `json:"university_choices"`
	Documents          []DocumentInput         `json:"documents"`
}

// Submit validates the payload and creates one application per
// university choice, each with its own task, inside one transaction.
// All N creations succeed or none do.
func (s *ApplicationService) Submit(actor *models.User, payload *SubmissionPayload) ([]models.Application, error) {
	if err := ValidateSubmission(payload); err != nil {
		return nil, err
	}
	if len(payload.UniversityChoices) == 0 {
		return nil, NewValidationError("at least one university choice is required")
	}

	isInstitution := actor.HasRole(models.RoleInstitution)
	if isInstitution {
		if strings.TrimSpace(payload.ApplicantEmail) == "" {
			return nil, NewValidationError("applicant_email is required for institution submissions")
		}
		if strings.TrimSpace(payload.FullName) == "" {
			return nil, NewValidationError("full_name is required for institution submissions")
		}
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	applicant := actor
	var institutionID *int
	if isInstitution {
		resolved, err := resolveOrCreateApplicant(tx, payload.ApplicantEmail, payload.FullName)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		applicant = resolved
		actorID := actor.UserID
		institutionID = &actorID
	}

	// Every referenced university must exist before any row is written.
	for _, choice := range payload.UniversityChoices {
		var count int64
		if err := tx.Model(&models.University{}).
			Where("university_id = ? AND deleted_at IS NULL", choice.UniversityID).
			Count(&count).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if count == 0 {
			tx.Rollback()
			return nil, NewNotFoundError("university")
		}
	}

	created := make([]models.Application, 0, len(payload.UniversityChoices))
	for _, choice := range payload.UniversityChoices {
		application := newApplicationFromPayload(payload, applicant.UserID, institutionID)

		trackingCode, err := nextTrackingCode(tx)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		application.TrackingCode = trackingCode

		if err := tx.Create(&application).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		uniChoice := models.UniversityChoice{
			ApplicationID: application.ApplicationID,
			UniversityID:  choice.UniversityID,
			ProgramID:     choice.ProgramID,
			Priority:      choice.Priority,
		}
		if err := tx.Create(&uniChoice).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		for _, history := range payload.AcademicHistories {
			row := models.AcademicHistory{
				ApplicationID:  application.ApplicationID,
				DegreeLevel:    history.DegreeLevel,
				Country:        history.Country,
				UniversityName: history.UniversityName,
				FieldOfStudy:   history.FieldOfStudy,
				GPA:            history.GPA,
			}
			if history.CertificateFile != "" {
				file := history.CertificateFile
				row.CertificateFile = &file
			}
			if err := tx.Create(&row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		for _, document := range payload.Documents {
			row := models.ApplicationDocument{
				ApplicationID: application.ApplicationID,
				DocumentType:  document.DocumentType,
				FilePath:      document.FilePath,
				UploadedAt:    time.Now(),
			}
			if err := tx.Create(&row).Error; err != nil {
				tx.Rollback()
				return nil, err
			}
		}

		task := models.ApplicationTask{
			ApplicationID: application.ApplicationID,
			UniversityID:  choice.UniversityID,
			Status:        models.TaskStatusUnclaimed,
			Decision:      models.TaskDecisionPending,
		}
		if err := tx.Create(&task).Error; err != nil {
			tx.Rollback()
			return nil, err
		}

		actorID := actor.UserID
		if err := appendLog(tx, application.ApplicationID, &actorID, "Application submitted.", ""); err != nil {
			tx.Rollback()
			return nil, err
		}

		created = append(created, application)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return created, nil
}

// newApplicationFromPayload builds a fresh application row for one
// fan-out slot. The form_data map is copied so no two applications
// share mutable state.
func newApplicationFromPayload(payload *SubmissionPayload, applicantID int, institutionID *int) models.Application {
	formData := make(datatypes.JSONMap, len(payload.FormData))
	for key, value := range payload.FormData {
		formData[key] = value
	}
	return models.Application{
		ApplicationType:          payload.ApplicationType,
		Status:                   models.AppStatusPendingReview,
		FormData:                 formData,
		ApplicantID:              applicantID,
		SubmittedByInstitutionID: institutionID,
		FullName:                 payload.FullName,
		DateOfBirth:              payload.DateOfBirth,
		CountryOfResidence:       payload.CountryOfResidence,
		FatherName:               payload.FatherName,
		GrandfatherName:          payload.GrandfatherName,
		Email:                    payload.Email,
	}
}

// Resubmit applies the applicant's corrections, moves the application
// back to PENDING_REVIEW and resets every completed task so each
// university reviews the corrected data from scratch. The whole effect
// is one transaction.
func (s *ApplicationService) Resubmit(actor *models.User, trackingCode string, payload *ResubmitPayload) (*models.Application, error) {
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
			return nil, NewNotFoundError("application")
		}
		return nil, err
	}

	if application.ApplicantID != actor.UserID {
		tx.Rollback()
		return nil, NewNotFoundError("application")
	}
	// The route layer already gates on status; the domain check stays
	// as a second line of defense.
	if application.Status != models.AppStatusPendingCorrection {
		tx.Rollback()
		return nil, NewInvalidStateError("application is not awaiting correction")
	}

	if err := ValidateSubmission(&SubmissionPayload{
		ApplicationType:   application.ApplicationType,
		FormData:          payload.FormData,
		AcademicHistories: payload.AcademicHistories,
		UniversityChoices: payload.UniversityChoices,
	}); err != nil {
		tx.Rollback()
		return nil, err
	}

	now := time.Now()
	formData := make(datatypes.JSONMap, len(payload.FormData))
	for key, value := range payload.FormData {
		formData[key] = value
	}
	updates := map[string]interface{}{
		"full_name":            payload.FullName,
		"date_of_birth":        payload.DateOfBirth,
		"country_of_residence": payload.CountryOfResidence,
		"father_name":          payload.FatherName,
		"grandfather_name":     payload.GrandfatherName,
		"email":                payload.Email,
		"form_data":            formData,
		"status":               models.AppStatusPendingReview,
		"updated_at":           now,
	}
	if err := tx.Model(&models.Application{}).
		Where("application_id = ?", application.ApplicationID).
		Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := s.mergeAcademicHistories(tx, application.ApplicationID, payload.AcademicHistories); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := s.mergeUniversityChoices(tx, application.ApplicationID, payload.UniversityChoices); err != nil {
		tx.Rollback()
		return nil, err
	}
	// Documents are append/update only: rows missing from the payload
	// stay untouched so already uploaded files are never dropped.
	if err := s.mergeDocuments(tx, application.ApplicationID, payload.Documents); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Model(&models.ApplicationTask{}).
		Where("application_id = ? AND status = ?", application.ApplicationID, models.TaskStatusCompleted).
		Updates(map[string]interface{}{
			"status":             models.TaskStatusUnclaimed,
			"assigned_expert_id": nil,
			"decision":           models.TaskDecisionPending,
			"updated_at":         now,
		}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	actorID := actor.UserID
	if err := appendLog(tx, application.ApplicationID, &actorID, "Application resubmitted after correction.", ""); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	var updated models.Application
	if err := s.db.Preload("AcademicHistories").
		Preload("UniversityChoices.University").
		Preload("Documents").
		Preload("Tasks").
		Where("application_id = ?", application.ApplicationID).
		First(&updated).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

type historyMergePlan struct {
	creates   []models.AcademicHistory
	updates   []models.AcademicHistory
	deleteIDs []int
}

// planHistoryMerge merges by id: an input with a known id updates in
// place, one without an id is created, and existing rows absent from
// the payload are removed.
func planHistoryMerge(applicationID int, existing []models.AcademicHistory, incoming []AcademicHistoryInput) historyMergePlan {
	known := make(map[int]bool, len(existing))
	for _, row := range existing {
		known[row.HistoryID] = true
	}

	var plan historyMergePlan
	kept := make(map[int]bool, len(incoming))
	for _, input := range incoming {
		row := models.AcademicHistory{
			HistoryID:      input.HistoryID,
			ApplicationID:  applicationID,
			DegreeLevel:    input.DegreeLevel,
			Country:        input.Country,
			UniversityName: input.UniversityName,
			FieldOfStudy:   input.FieldOfStudy,
			GPA:            input.GPA,
		}
		if input.CertificateFile != "" {
			file := input.CertificateFile
			row.CertificateFile = &file
		}
		if input.HistoryID != 0 && known[input.HistoryID] {
			plan.updates = append(plan.updates, row)
			kept[input.HistoryID] = true
			continue
		}
		row.HistoryID = 0
		plan.creates = append(plan.creates, row)
	}
	for _, row := range existing {
		if !kept[row.HistoryID] {
			plan.deleteIDs = append(plan.deleteIDs, row.HistoryID)
		}
	}
	return plan
}

func (s *ApplicationService) mergeAcademicHistories(tx *gorm.DB, applicationID int, incoming []AcademicHistoryInput) error {
	var existing []models.AcademicHistory
	if err := tx.Where("application_id = ?", applicationID).Find(&existing).Error; err != nil {
		return err
	}
	plan := planHistoryMerge(applicationID, existing, incoming)

	for i := range plan.updates {
		if err := tx.Save(&plan.updates[i]).Error; err != nil {
			return err
		}
	}
	for i := range plan.creates {
		if err := tx.Create(&plan.creates[i]).Error; err != nil {
			return err
		}
	}
	if len(plan.deleteIDs) > 0 {
		if err := tx.Where("history_id IN ?", plan.deleteIDs).
			Delete(&models.AcademicHistory{}).Error; err != nil {
			return err
		}
	}
	return nil
}

type choiceMergePlan struct {
	creates   []models.UniversityChoice
	updates   []models.UniversityChoice
	deleteIDs []int
	// Universities that gained or lost a choice; tasks follow so the
	// one-task-per-(application,university) invariant keeps holding.
	addedUniversityIDs   []int
	removedUniversityIDs []int
}

func planChoiceMerge(applicationID int, existing []models.UniversityChoice, incoming []UniversityChoiceInput) choiceMergePlan {
	byID := make(map[int]models.UniversityChoice, len(existing))
	for _, row := range existing {
		byID[row.ChoiceID] = row
	}

	var plan choiceMergePlan
	kept := make(map[int]bool, len(incoming))
	universitiesAfter := make(map[int]bool, len(incoming))
	for _, input := range incoming {
		universitiesAfter[input.UniversityID] = true
		row := models.UniversityChoice{
			ChoiceID:      input.ChoiceID,
			ApplicationID: applicationID,
			UniversityID:  input.UniversityID,
			ProgramID:     input.ProgramID,
			Priority:      input.Priority,
		}
		if input.ChoiceID != 0 {
			if _, ok := byID[input.ChoiceID]; ok {
				plan.updates = append(plan.updates, row)
				kept[input.ChoiceID] = true
				continue
			}
		}
		row.ChoiceID = 0
		plan.creates = append(plan.creates, row)
	}

	universitiesBefore := make(map[int]bool, len(existing))
	for _, row := range existing {
		universitiesBefore[row.UniversityID] = true
		if !kept[row.ChoiceID] {
			plan.deleteIDs = append(plan.deleteIDs, row.ChoiceID)
		}
	}
	for universityID := range universitiesAfter {
		if !universitiesBefore[universityID] {
			plan.addedUniversityIDs = append(plan.addedUniversityIDs, universityID)
		}
	}
	for universityID := range universitiesBefore {
		if !universitiesAfter[universityID] {
			plan.removedUniversityIDs = append(plan.removedUniversityIDs, universityID)
		}
	}
	return plan
}

func (s *ApplicationService) mergeUniversityChoices(tx *gorm.DB, applicationID int, incoming []UniversityChoiceInput) error {
	var existing []models.UniversityChoice
	if err := tx.Where("application_id = ?", applicationID).Find(&existing).Error; err != nil {
		return err
	}
	plan := planChoiceMerge(applicationID, existing, incoming)

	for i := range plan.updates {
		if err := tx.Save(&plan.updates[i]).Error; err != nil {
			return err
		}
	}
	for i := range plan.creates {
		if err := tx.Create(&plan.creates[i]).Error; err != nil {
			return err
		}
	}
	if len(plan.deleteIDs) > 0 {
		if err := tx.Where("choice_id IN ?", plan.deleteIDs).
			Delete(&models.UniversityChoice{}).Error; err != nil {
			return err
		}
	}

	for _, universityID := range plan.addedUniversityIDs {
		task := models.ApplicationTask{
			ApplicationID: applicationID,
			UniversityID:  universityID,
			Status:        models.TaskStatusUnclaimed,
			Decision:      models.TaskDecisionPending,
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
	}
	if len(plan.removedUniversityIDs) > 0 {
		if err := tx.Where("application_id = ? AND university_id IN ?", applicationID, plan.removedUniversityIDs).
			Delete(&models.ApplicationTask{}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *ApplicationService) mergeDocuments(tx *gorm.DB, applicationID int, incoming []DocumentInput) error {
	for _, input := range incoming {
		if input.DocumentID != 0 {
			if err := tx.Model(&models.ApplicationDocument{}).
				Where("document_id = ? AND application_id = ?", input.DocumentID, applicationID).
				Updates(map[string]interface{}{
					"document_type": input.DocumentType,
					"file_path":     input.FilePath,
				}).Error; err != nil {
				return err
			}
			continue
		}
		row := models.ApplicationDocument{
			ApplicationID: applicationID,
			DocumentType:  input.DocumentType,
			FilePath:      input.FilePath,
			UploadedAt:    time.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}

// resolveOrCreateApplicant finds the applicant account by email
// (case-insensitive) or creates it with the base applicant role and a
// random bcrypt-hashed password the applicant resets later.
func resolveOrCreateApplicant(tx *gorm.DB, email, fullName string) (*models.User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !utils.ValidateEmail(normalized) {
		return nil, NewValidationError("'%s' is not a valid applicant email", email)
	}

	var user models.User
	err := tx.Where("LOWER(email) = ? AND deleted_at IS NULL", normalized).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var role models.Role
	if err := tx.Where("role = ?", models.RoleApplicant).First(&role).Error; err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Email:    normalized,
		FullName: fullName,
		Password: string(hashed),
		RoleID:   role.RoleID,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// nextTrackingCode generates a candidate code and retries on the
// unlikely collision with an existing application.
func nextTrackingCode(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code := utils.GenerateTrackingCode()
		var count int64
		if err := tx.Model(&models.Application{}).
			Where("tracking_code = ?", code).
			Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique tracking code")
}
