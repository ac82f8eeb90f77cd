package controllers

import (
	"errors"
	"net/http"
	"time"

	"admissions-api/config"
	"admissions-api/middleware"
	"admissions-api/models"
	"admissions-api/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GetInternalNotes lists staff-only notes on an application.
func GetInternalNotes(c *gin.Context) {
	trackingCode := c.Param("tracking_code")

	var application models.Application
	if err := config.DB.Where("tracking_code = ? AND deleted_at IS NULL", trackingCode).
		First(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load application"})
		return
	}

	var notes []models.InternalNote
	if err := config.DB.Preload("Author").
		Where("application_id = ?", application.ApplicationID).
		Order("created_at ASC").
		Find(&notes).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch notes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"notes":   notes,
		"total":   len(notes),
	})
}

// CreateInternalNote appends a staff-only note to an application.
func CreateInternalNote(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}
	trackingCode := c.Param("tracking_code")

	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	message := utils.SanitizeInput(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message must not be empty"})
		return
	}

	var application models.Application
	if err := config.DB.Where("tracking_code = ? AND deleted_at IS NULL", trackingCode).
		First(&application).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Application not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load application"})
		return
	}

	note := models.InternalNote{
		ApplicationID: application.ApplicationID,
		AuthorID:      user.UserID,
		Message:       message,
		CreatedAt:     time.Now(),
	}
	if err := config.DB.Create(&note).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save note"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"note":    note,
	})
}
