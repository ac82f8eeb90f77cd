package routes

import (
	"admissions-api/controllers"
	"admissions-api/middleware"
	"admissions-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Admissions API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Applications
			applications := protected.Group("/applications")
			{
				// Applicants and institutions submit; the fan-out
				// happens inside the service.
				applications.POST("",
					middleware.RequireRole(models.RoleApplicant, models.RoleInstitution),
					controllers.CreateApplication)

				applications.GET("/my",
					middleware.RequireRole(models.RoleApplicant),
					controllers.GetMyApplications)
				applications.GET("/my-submitted",
					middleware.RequireRole(models.RoleInstitution),
					controllers.GetSubmittedApplications)

				// Expert views
				applications.GET("/workbench",
					middleware.RequireRole(models.RoleUniversityExpert),
					controllers.GetWorkbench)
				applications.GET("/university-apps",
					middleware.RequireRole(models.RoleUniversityExpert),
					controllers.GetUniversityApplications)

				// Org head oversight
				applications.GET("/all",
					middleware.RequireRole(models.RoleOrgHead),
					controllers.GetAllApplications)

				applications.GET("/:tracking_code", controllers.GetApplication)

				// Resubmission after correction
				applications.PUT("/:tracking_code",
					middleware.RequireRole(models.RoleApplicant),
					controllers.ResubmitApplication)

				// Expert review actions, scoped per university
				applications.POST("/:tracking_code/claim/:university_id",
					middleware.RequireRole(models.RoleUniversityExpert),
					controllers.ClaimTask)
				applications.POST("/:tracking_code/action/:university_id",
					middleware.RequireRole(models.RoleUniversityExpert),
					controllers.TakeAction)

				// Internal notes (staff only)
				applications.GET("/:tracking_code/notes",
					middleware.RequireRole(models.RoleUniversityExpert, models.RoleOrgHead),
					controllers.GetInternalNotes)
				applications.POST("/:tracking_code/notes",
					middleware.RequireRole(models.RoleUniversityExpert, models.RoleOrgHead),
					controllers.CreateInternalNote)
			}

			// Task administration
			tasks := protected.Group("/tasks")
			{
				tasks.POST("/:task_id/reassign",
					middleware.RequireRole(models.RoleOrgHead),
					controllers.ReassignTask)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.PUT("/:notification_id/read", controllers.MarkNotificationRead)
			}
		}
	}
}
