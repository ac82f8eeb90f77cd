package controllers

import (
	"net/http"
	"strconv"

	"admissions-api/middleware"

	"github.com/gin-gonic/gin"
)

// ReassignTask moves a not-yet-completed task to a different expert.
// Restricted to org heads by the route layer.
func ReassignTask(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User context missing"})
		return
	}

	taskID, err := strconv.Atoi(c.Param("task_id"))
	if err != nil || taskID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := taskService().Reassign(user, taskID, req.UserID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Task successfully reassigned",
	})
}
