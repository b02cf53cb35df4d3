package api

import (
	"github.com/gin-gonic/gin"
)

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	session := s.router.Group("/session")
	{
		session.POST("", s.sessionHandler.Open)
		session.DELETE("", s.sessionHandler.Stop)
		session.POST("/seek", s.sessionHandler.Seek)
		session.PUT("/parking", s.sessionHandler.SetParkingMode)
		session.GET("/status", s.sessionHandler.Status)
		session.GET("/state", s.sessionHandler.State)
		session.GET("/frame", s.sessionHandler.Frame)
		session.GET("/stream", s.sessionHandler.Stream)
	}

	slots := s.router.Group("/slots")
	{
		slots.GET("", s.slotsHandler.List)
		slots.POST("", s.slotsHandler.Add)
		slots.PUT("", s.slotsHandler.Replace)
		slots.DELETE("", s.slotsHandler.Clear)
		slots.DELETE("/:id", s.slotsHandler.Delete)
	}

	templates := s.router.Group("/templates")
	{
		templates.GET("", s.slotsHandler.ListTemplates)
		templates.POST("/load", s.slotsHandler.LoadTemplate)
		templates.POST("/save", s.slotsHandler.SaveTemplate)
	}

	violations := s.router.Group("/violations")
	{
		violations.GET("", s.violationsHandler.List)
		violations.DELETE("", s.violationsHandler.Clear)
		violations.GET("/history", s.violationsHandler.History)
		violations.GET("/:id/snapshot", s.violationsHandler.Snapshot)
		violations.GET("/:id/visualization", s.violationsHandler.Visualization)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}

	if s.config.MetricsEnabled {
		s.router.GET("/metrics", gin.WrapH(s.services.Metrics.Handler()))
	}
}
