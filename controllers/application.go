package controllers

import (
	"net/http"

	"admissions-api/config"
	"admissions-api/middleware"
	"admissions-api/models"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// applicationPreloads attaches the full object graph used by detail
// responses.
func applicationPreloads(query *gorm.DB) *gorm.DB {
	return query.Preload("Applicant").
		Preload("AcademicHistories").
		Preload("UniversityChoices.University").
		Preload("UniversityChoices.Program").
		Preload("Documents").
		Preload("Tasks.University").
		Preload("Tasks.AssignedExpert").
		Preload("Logs.Actor")
}

// CreateApplication handles a new submission. One payload with N
// university choices fans out into N application rows.
func CreateApplication(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	var payload services.SubmissionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	created, err := applicationService().Submit(user, &payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	codes := make([]string, 0, len(created))
	for _, application := range created {
		codes = append(codes, application.TrackingCode)
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":        true,
		"message":        "Application submitted",
		"tracking_codes": codes,
		"total":          len(created),
	})
}

// GetApplication returns one application by tracking code. Applicants
// see their own; experts see applications for their universities; org
// heads see everything.
func GetApplication(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	trackingCode := c.Param("tracking_code")

	var application models.Application
	if err := applicationPreloads(config.DB).
		Where("tracking_code = ? AND deleted_at IS NULL", trackingCode).
		First(&application).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	if !canViewApplication(user, &application) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"application": application,
	})
}

func canViewApplication(user *models.User, application *models.Application) bool {
	switch user.Role.Role {
	case models.RoleOrgHead:
		return true
	case models.RoleApplicant:
		return application.ApplicantID == user.UserID
	case models.RoleInstitution:
		if application.ApplicantID == user.UserID {
			return true
		}
		return application.SubmittedByInstitutionID != nil && *application.SubmittedByInstitutionID == user.UserID
	case models.RoleUniversityExpert:
		var count int64
		config.DB.Model(&models.ApplicationTask{}).
			Joins("JOIN user_universities uu ON uu.university_id = application_tasks.university_id").
			Where("application_tasks.application_id = ? AND uu.user_id = ?", application.ApplicationID, user.UserID).
			Count(&count)
		return count > 0
	}
	return false
}

// GetMyApplications lists the caller's own applications.
func GetMyApplications(c *gin.Context) {
	userID, _ := c.Get("userID")

	var applications []models.Application
	if err := applicationPreloads(config.DB).
		Where("applicant_id = ? AND deleted_at IS NULL", userID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// GetSubmittedApplications lists applications this institution account
// submitted on behalf of applicants.
func GetSubmittedApplications(c *gin.Context) {
	userID, _ := c.Get("userID")

	var applications []models.Application
	if err := applicationPreloads(config.DB).
		Where("submitted_by_institution_id = ? AND deleted_at IS NULL", userID).
		Order("created_at DESC").
		Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// GetWorkbench lists applications awaiting this expert's attention:
// tasks unclaimed for one of their universities, or already assigned
// to them, on applications still under review.
func GetWorkbench(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	var universityIDs []int
	if err := config.DB.Model(&models.UserUniversity{}).
		Where("user_id = ?", user.UserID).
		Pluck("university_id", &universityIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve affiliations"})
		return
	}
	if len(universityIDs) == 0 {
		// An expert without affiliations has an empty workbench.
		c.JSON(http.StatusOK, gin.H{"success": true, "applications": []models.Application{}, "total": 0})
		return
	}

	var applicationIDs []int
	if err := config.DB.Model(&models.ApplicationTask{}).
		Distinct("application_tasks.application_id").
		Joins("JOIN applications a ON a.application_id = application_tasks.application_id").
		Where("a.status = ? AND a.deleted_at IS NULL", models.AppStatusPendingReview).
		Where("(application_tasks.university_id IN ? AND application_tasks.status = ?) OR (application_tasks.assigned_expert_id = ? AND application_tasks.status = ?)",
			universityIDs, models.TaskStatusUnclaimed, user.UserID, models.TaskStatusAssigned).
		Pluck("application_tasks.application_id", &applicationIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch workbench"})
		return
	}

	applications := []models.Application{}
	if len(applicationIDs) > 0 {
		if err := applicationPreloads(config.DB).
			Where("application_id IN ?", applicationIDs).
			Order("created_at ASC").
			Find(&applications).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch workbench"})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// GetUniversityApplications lists every application touching one of
// the expert's affiliated universities, regardless of state.
func GetUniversityApplications(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	var universityIDs []int
	if err := config.DB.Model(&models.UserUniversity{}).
		Where("user_id = ?", user.UserID).
		Pluck("university_id", &universityIDs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve affiliations"})
		return
	}
	if len(universityIDs) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "applications": []models.Application{}, "total": 0})
		return
	}

	var applications []models.Application
	if err := applicationPreloads(config.DB).
		Joins("JOIN university_choices uc ON uc.application_id = applications.application_id").
		Where("uc.university_id IN ? AND applications.deleted_at IS NULL", universityIDs).
		Distinct("applications.*").
		Order("applications.created_at DESC").
		Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// GetAllApplications lists everything. Restricted to org heads by the
// route layer.
func GetAllApplications(c *gin.Context) {
	query := applicationPreloads(config.DB).Where("deleted_at IS NULL")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if appType := c.Query("application_type"); appType != "" {
		query = query.Where("application_type = ?", appType)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("full_name LIKE ? OR tracking_code LIKE ? OR email LIKE ?", like, like, like)
	}

	var applications []models.Application
	if err := query.Order("created_at DESC").Find(&applications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch applications"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": applications,
		"total":        len(applications),
	})
}

// ResubmitApplication applies the applicant's corrections and sends
// the application back to review, resetting completed tasks.
func ResubmitApplication(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	trackingCode := c.Param("tracking_code")

	var payload services.ResubmitPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updated, err := applicationService().Resubmit(user, trackingCode, &payload)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "Application resubmitted",
		"application": updated,
	})
}
