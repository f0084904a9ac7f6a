package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/offolaunch/launchtrack/internal/handlers"
	"github.com/offolaunch/launchtrack/internal/health"
	"github.com/offolaunch/launchtrack/internal/middleware"
	"github.com/offolaunch/launchtrack/internal/realtime"
	"go.uber.org/zap"
)

type Deps struct {
	Handler        *handlers.Handler
	Users          middleware.Authenticator
	Hub            *realtime.Hub
	Metrics        *health.Metrics
	Times          *health.ResponseTimes
	Errors         *health.ErrorRate
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Observe(d.Logger, d.Metrics, d.Times, d.Errors))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := d.Handler
	authed := middleware.AuthMiddleware(d.Users)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		healthGroup := api.Group("/health")
		{
			healthGroup.GET("", h.HealthCheck)
			healthGroup.GET("/detailed", h.DetailedHealth)
			healthGroup.GET("/metrics", h.RouteMetrics)
		}

		if d.Hub != nil {
			api.GET("/ws", handlers.WebSocket(d.Hub))
		}

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.GET("/me", authed, h.Me)
			auth.PUT("/profile", authed, h.UpdateProfile)
			auth.PUT("/password", authed, h.ChangePassword)
		}

		projects := api.Group("/projects", authed)
		{
			projects.GET("", h.ListProjects)
			projects.POST("", h.CreateProject)
			projects.GET("/:id", h.GetProject)
			projects.PUT("/:id", h.UpdateProject)
			projects.POST("/:id/team", h.AddTeamMember)
		}

		permits := api.Group("/permits", authed)
		{
			permits.GET("", h.ListPermits)
			permits.POST("", h.CreatePermit)
			permits.GET("/project/:projectId", h.ListProjectPermits)
			permits.GET("/:id", h.GetPermit)
			permits.PUT("/:id", h.UpdatePermit)
			permits.DELETE("/:id", h.DeletePermit)
			permits.PATCH("/:id/status", h.UpdatePermitStatus)
			permits.POST("/:id/documents", h.AddPermitDocument)
			permits.POST("/:id/sync", h.SyncPermit)
			permits.POST("/:id/submit", h.SubmitPermit)
		}

		inspections := api.Group("/inspections", authed)
		{
			inspections.GET("", h.UpcomingInspections)
			inspections.POST("", h.CreateInspection)
			inspections.GET("/permit/:permitId", h.ListPermitInspections)
			inspections.GET("/:id", h.GetInspection)
			inspections.PUT("/:id", h.UpdateInspection)
			inspections.DELETE("/:id", h.DeleteInspection)
			inspections.PATCH("/:id/status", h.UpdateInspectionStatus)
			inspections.POST("/:id/checklist", h.SaveChecklistItem)
			inspections.POST("/:id/findings", h.AddFinding)
			inspections.PATCH("/:id/findings/:findingId", h.UpdateFinding)
			inspections.POST("/:id/attendees", h.AddAttendee)
			inspections.POST("/:id/schedule-external", h.ScheduleExternalInspection)
		}

		notifications := api.Group("/notifications", authed)
		{
			notifications.GET("", h.ListNotifications)
			notifications.GET("/unread", h.UnreadNotifications)
			notifications.PATCH("/read-all", h.MarkAllNotificationsRead)
			notifications.PATCH("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("/:id", h.DeleteNotification)
			notifications.DELETE("", h.DeleteReadNotifications)
		}

		api.GET("/integrations/supported-cities", h.SupportedCities)

		integrations := api.Group("/integrations", authed)
		{
			integrations.POST("/sync/:city", h.SyncCity)
			integrations.GET("/:city/permit/:permitNumber", h.CityPermitStatus)
			integrations.GET("/:city/search", h.SearchCityPermits)
		}
	}

	return r
}
