package server

import (
	"github.com/labstack/echo/v4"
)

func (s *Server) SetupRoutes(authMiddleware echo.MiddlewareFunc) {
	e := s.Echo
	api := e.Group("/api/v1")

	// Auth routes (unprotected)
	auth := api.Group("/auth")
	{
		auth.POST("/register", s.AuthHandler.Register)
		auth.POST("/login", s.AuthHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware)
	{
		protected.GET("/user", s.AuthHandler.GetCurrentUser)

		customers := protected.Group("/customers")
		{
			customers.POST("", s.CustomerHandler.CreateCustomer)
			customers.GET("", s.CustomerHandler.ListCustomers)
			customers.GET("/:id", s.CustomerHandler.GetCustomer)
			customers.POST("/import", s.CustomerHandler.ImportCustomers)
		}

		messages := protected.Group("/messages")
		{
			messages.POST("/send", s.MessageHandler.SendMessage, s.messageLimiter)
			messages.GET("/history", s.MessageHandler.GetHistory)
			messages.GET("/memory/stats", s.MessageHandler.GetMemoryStats)
			messages.GET("/notifications/context", s.MessageHandler.GetNotificationContext)
		}
		protected.GET("/chat/:customerId/ws", s.ChatWSHandler.HandleWebSocket)
		protected.POST("/chat/:customerId/end", s.MessageHandler.EndChat)

		notifications := protected.Group("/notifications")
		{
			notifications.POST("/config", s.NotificationHandler.CreateConfig)
			notifications.GET("/config", s.NotificationHandler.ListConfigs)
			notifications.GET("/config/:id", s.NotificationHandler.GetConfig)
			notifications.POST("/send", s.NotificationHandler.SendNotification)
			notifications.GET("/history", s.NotificationHandler.GetHistory)
			notifications.GET("/stats", s.NotificationHandler.GetStats)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", s.TaskHandler.ListTasks)
			tasks.GET("/:jobId", s.TaskHandler.GetTask)
			tasks.POST("/:jobId/cancel", s.TaskHandler.CancelTask)
			tasks.GET("/stats/overview", s.TaskHandler.GetStats)
		}
	}
}
