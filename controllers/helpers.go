package controllers

import (
	"net/http"

	"admissions-api/config"
	"admissions-api/services"

	"github.com/gin-gonic/gin"
)

func applicationService() *services.ApplicationService {
	return services.NewApplicationService(config.DB)
}

func taskService() *services.TaskService {
	notifications := services.NewNotificationService(config.DB)
	decisions := services.NewFinalDecisionService(config.DB, notifications)
	return services.NewTaskService(config.DB, decisions)
}

// respondServiceError maps the service error taxonomy onto HTTP status
// codes. Unknown errors become a 500 without leaking internals.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case services.IsInvalidState(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
