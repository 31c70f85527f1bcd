package routes

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"nahio/handlers"
	"nahio/middleware"
	"nahio/utils"
)

// Options carries the HTTP settings the routes need.
type Options struct {
	CORSOrigins       string
	TrustedProxies    []string
	RequestsPerMinute int
	ReadyChecks       []utils.ReadyCheck
}

// RegisterAuthRoutes registers login, logout and password reset.
func RegisterAuthRoutes(r *gin.RouterGroup, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/auth")
	{
		api.POST("/login", hb.Login)
		api.POST("/password-reset", hb.PasswordReset)
		api.POST("/logout", auth, hb.Logout)
	}
}

// RegisterAccountRoutes registers registration and the caller's own account.
func RegisterAccountRoutes(r *gin.RouterGroup, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/accounts")
	{
		api.POST("/scouts", hb.RegisterScout)
		api.POST("/institutions", hb.RegisterInstitution)

		me := api.Group("/me")
		me.Use(auth)
		me.GET("", hb.GetMe)
		me.PATCH("", hb.UpdateMe)
		me.PUT("/fcm-token", hb.RegisterDevice)
	}
	r.GET("/address/:cep", hb.LookupAddress)
}

// RegisterAppointmentRoutes registers the visit scheduling endpoints.
func RegisterAppointmentRoutes(r *gin.RouterGroup, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	r.GET("/institutions", auth, hb.ListInstitutions)

	api := r.Group("/appointments")
	{
		api.Use(auth)
		api.GET("", hb.ListAppointments)
		api.GET("/availability", hb.CheckAvailability)
		api.POST("", hb.CreateAppointment)
		api.GET("/:id", hb.GetAppointment)
		api.POST("/:id/confirm", hb.ConfirmAppointment)
		api.POST("/:id/cancel", hb.CancelAppointment)
		api.POST("/:id/complete", hb.CompleteAppointment)
	}
}

// RegisterNotificationRoutes registers the caller's inbox.
func RegisterNotificationRoutes(r *gin.RouterGroup, hb *handlers.HandlerBundle, auth gin.HandlerFunc) {
	api := r.Group("/notifications")
	{
		api.Use(auth)
		api.GET("", hb.ListNotifications)
		api.POST("/:id/read", hb.MarkNotificationRead)
	}
}

// RegisterHealthRoute registers liveness and readiness endpoints.
func RegisterHealthRoute(r *gin.Engine, checks []utils.ReadyCheck) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Hi, I'm Nahio"})
	})
	r.GET("/ready", func(c *gin.Context) {
		status := utils.RunChecks(c.Request.Context(), checks)
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})
}

func corsOrigins(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
// Forwarding headers are only honored from opts.TrustedProxies, since the
// rate limiter keys on the client IP.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, auth middleware.Authenticator, opts Options) error {
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return fmt.Errorf("invalid trusted proxies: %w", err)
	}

	origins := corsOrigins(opts.CORSOrigins)
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: len(origins) > 1 || origins[0] != "*",
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, opts.ReadyChecks)

	api := r.Group("/api")
	api.Use(middleware.RateLimitMiddleware(opts.RequestsPerMinute))
	sessionAuth := middleware.SessionAuth(auth)

	RegisterAuthRoutes(api, hb, sessionAuth)
	RegisterAccountRoutes(api, hb, sessionAuth)
	RegisterAppointmentRoutes(api, hb, sessionAuth)
	RegisterNotificationRoutes(api, hb, sessionAuth)
	return nil
}
