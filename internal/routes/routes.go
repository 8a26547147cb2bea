package routes

import (
	"github.com/bizadmin/backend/internal/cache"
	"github.com/bizadmin/backend/internal/config"
	"github.com/bizadmin/backend/internal/controllers"
	"github.com/bizadmin/backend/internal/metrics"
	"github.com/bizadmin/backend/internal/middleware"
	"github.com/bizadmin/backend/internal/services"
	"github.com/bizadmin/backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, store storage.Store, c cache.Cache, cfg *config.Config) {
	controllers.ConfigureBinding()

	// Initialize services
	notificationService := services.NewNotificationService(store)
	activityService := services.NewActivityLogService(store)
	complaintService := services.NewComplaintService(store, notificationService, activityService)
	contractService := services.NewContractService(store, c, activityService)
	reminderService := services.NewReminderService(store, notificationService, activityService, cfg.Reminders.RedispatchWindow)

	// Initialize controllers
	healthController := controllers.NewHealthController(store)
	authController := controllers.NewAuthController(store, activityService, cfg.JWTSecret, cfg.JWTExpiration())
	userController := controllers.NewUserController(store)
	complaintController := controllers.NewComplaintController(complaintService)
	contractController := controllers.NewContractController(contractService, reminderService, cfg.Reminders.ExpiringContractDays)
	reminderController := controllers.NewReminderController(reminderService)
	notificationController := controllers.NewNotificationController(notificationService)
	securityLogController := controllers.NewSecurityLogController(activityService)

	r.GET("/health", healthController.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	authRequired := middleware.AuthMiddleware(cfg.JWTSecret)
	currentUser := middleware.CurrentUserMiddleware(store)

	api := r.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
			auth.POST("/register", authController.Register)
			auth.POST("/refresh", authRequired, currentUser, authController.RefreshToken)
		}

		// Scheduler hooks authenticate with the sweep token, not a user JWT
		internal := api.Group("/internal")
		internal.Use(middleware.SweepTokenMiddleware(cfg.Reminders.SweepToken))
		{
			internal.POST("/reminders/sweep", reminderController.Sweep)
		}

		// Protected routes
		protected := api.Group("/")
		protected.Use(authRequired, currentUser)
		{
			protected.GET("/users/me", userController.GetCurrentUser)

			complaints := protected.Group("/complaints")
			{
				complaints.GET("", complaintController.GetComplaints)
				complaints.POST("", complaintController.CreateComplaint)
				complaints.GET("/:id", complaintController.GetComplaint)
				complaints.PATCH("/:id", complaintController.UpdateComplaint)
				complaints.DELETE("/:id", complaintController.DeleteComplaint)
				complaints.PATCH("/:id/status", complaintController.UpdateStatus)
				complaints.PATCH("/:id/assign", complaintController.AssignComplaint)
				complaints.GET("/:id/history", complaintController.GetStatusHistory)
				complaints.GET("/:id/comments", complaintController.GetComments)
				complaints.POST("/:id/comments", complaintController.AddComment)
			}

			contracts := protected.Group("/contracts")
			{
				contracts.GET("", contractController.GetContracts)
				contracts.POST("", contractController.CreateContract)
				contracts.POST("/expiring/check", contractController.CheckExpiring)
				contracts.GET("/:id", contractController.GetContract)
				contracts.PATCH("/:id", contractController.UpdateContract)
				contracts.DELETE("/:id", contractController.DeleteContract)
				contracts.GET("/:id/reminders", contractController.GetReminders)
				contracts.POST("/:id/reminders", contractController.CreateReminder)
			}

			protected.POST("/reminders/sweep", reminderController.TriggerSweep)
			protected.POST("/reminders/:id/acknowledge", reminderController.Acknowledge)

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationController.GetNotifications)
				notifications.PATCH("/read-all", notificationController.MarkAllRead)
				notifications.PATCH("/:id/read", notificationController.MarkRead)
			}

			protected.GET("/security/logs", securityLogController.GetLogs)
		}
	}
}
