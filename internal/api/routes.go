package api

import (
	"alcyxob/fitness-scheduler/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	scheduleService service.ScheduleService,
	undoService service.UndoService,
	historyService service.HistoryService,
	exportService service.ExportService,
) {
	authHandler := NewAuthHandler(authService)
	scheduleHandler := NewScheduleHandler(scheduleService, undoService, historyService, exportService)

	router.Use(RequestIDMiddleware())
	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr})
		})

		scheduleGroup := protected.Group("/schedule")
		{
			// Calendar views
			scheduleGroup.GET("", scheduleHandler.GetSchedule)
			scheduleGroup.GET("/today", scheduleHandler.GetToday)
			scheduleGroup.GET("/upcoming", scheduleHandler.GetUpcoming)

			// Mutations
			scheduleGroup.POST("/:scheduleId/move", scheduleHandler.MoveWorkout)
			scheduleGroup.POST("/:scheduleId/skip", scheduleHandler.SkipWorkout)
			scheduleGroup.POST("/swap", scheduleHandler.SwapWorkouts)

			// Undo and history
			scheduleGroup.POST("/undo", scheduleHandler.UndoLastChange)
			scheduleGroup.GET("/history", scheduleHandler.GetHistory)

			// Export
			scheduleGroup.POST("/export", scheduleHandler.ExportSchedule)
		}
	}
}
