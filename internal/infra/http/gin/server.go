package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"tutorbook/internal/infra/config"
	"tutorbook/internal/infra/obs"
)

type Handlers struct {
	Availability AvailabilityHandler
	Booking      BookingHandler
	Stats        StatsHandler
	RateLimiter  *RateLimiter
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	router := gin.New()
	router.Use(obsMW.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Idempotency-Key", HeaderPrincipalID, HeaderPrincipalRole},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.RateLimiter != nil {
		api.Use(h.RateLimiter.Middleware())
	}
	api.Use(PrincipalMiddleware())

	api.GET("/providers/:id/slots", h.Availability.ListSlots)

	provider := api.Group("/provider")
	provider.POST("/slots", h.Availability.AddSlot)
	provider.DELETE("/slots/:id", h.Availability.RemoveSlot)
	provider.POST("/days/:date/copy", h.Availability.CopyDay)
	provider.POST("/weeks/:date/copy", h.Availability.CopyWeek)
	provider.POST("/days/:date/close", h.Availability.CloseDay)
	provider.GET("/bookings", h.Booking.ListProvider)
	provider.POST("/bookings/:id/confirm", h.Booking.Confirm)
	provider.POST("/bookings/:id/reject", h.Booking.Reject)
	provider.POST("/bookings/:id/complete", h.Booking.Complete)
	provider.GET("/stats", h.Stats.Rollup)
	provider.GET("/stats/series", h.Stats.Series)

	api.POST("/bookings", h.Booking.Request)
	api.GET("/bookings/:id", h.Booking.Get)
	api.GET("/me/bookings", h.Booking.ListMine)

	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
