package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"admissions-api/middleware"
	"admissions-api/services"
	"admissions-api/utils"

	"github.com/gin-gonic/gin"
)

// ClaimTask lets an affiliated expert claim the unclaimed task of one
// university for an application. Losing a claim race returns 409.
func ClaimTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	trackingCode := c.Param("tracking_code")
	universityID, err := strconv.Atoi(c.Param("university_id"))
	if err != nil || universityID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university ID"})
		return
	}

	svc := taskService()
	affiliated, err := svc.HasAffiliation(user.UserID, universityID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check affiliation"})
		return
	}
	if !affiliated {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not an expert for this university"})
		return
	}

	if err := svc.Claim(user, trackingCode, universityID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task successfully claimed",
	})
}

// TakeAction records an expert decision on one university's task:
// APPROVE or REJECT complete the task, CORRECT sends the whole
// application back to the applicant.
func TakeAction(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	trackingCode := c.Param("tracking_code")
	universityID, err := strconv.Atoi(c.Param("university_id"))
	if err != nil || universityID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid university ID"})
		return
	}

	var req struct {
		Action  string `json:"action" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	svc := taskService()
	action := strings.ToUpper(strings.TrimSpace(req.Action))
	comment := utils.SanitizeInput(req.Comment)

	if action == services.ActionCorrect {
		if err := svc.RequestCorrection(user, trackingCode, comment); err != nil {
			respondServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Application sent for correction",
		})
		return
	}

	if err := svc.Decide(user, trackingCode, universityID, action, comment); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Decision '" + action + "' recorded successfully",
	})
}
