package router

import (
	"net/http"
	"time"

	"github.com/findit-id/cbt-backend/internal/config"
	"github.com/findit-id/cbt-backend/internal/handler"
	"github.com/findit-id/cbt-backend/internal/middleware"
	"github.com/findit-id/cbt-backend/internal/response"
	"github.com/findit-id/cbt-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	Admin  *handler.AdminHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.TestSessionHeader}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/member/login", handlers.Auth.MemberLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		auth.POST("/member/logout", middleware.RequireMemberJWT(authService), handlers.Auth.MemberLogout)
		auth.GET("/member/me", middleware.RequireMemberJWT(authService), handlers.Auth.MemberMe)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.AdminMe)
	}

	// ─── 2. Team Group (JWT + Single Active Auth Session) ──────────────
	teamAPI := router.Group("/api/v1/team")
	teamAPI.Use(
		middleware.RequireMemberJWT(authService),
		middleware.CheckSingleActiveSession(authService),
	)
	{
		teamAPI.GET("/tests/:slug", handlers.Portal.GetTest)
		teamAPI.POST("/tests/:slug/verify-password", handlers.Portal.VerifyTestPassword)
		teamAPI.POST("/tests/:slug/session", handlers.Portal.EnterTest)
		teamAPI.GET("/tests/:slug/paper", handlers.Portal.GetPaper)
		teamAPI.GET("/tests/:slug/time", handlers.Portal.CheckTime)

		teamAPI.POST("/sessions/:session_id/submit", handlers.Portal.SubmitSession)
		teamAPI.GET("/sessions/:session_id/answers", handlers.Portal.ListAnswers)
		teamAPI.PUT("/sessions/:session_id/questions/:question_id/answer", handlers.Portal.SaveAnswer)
		teamAPI.DELETE("/sessions/:session_id/questions/:question_id/answer", handlers.Portal.ClearAnswer)
		teamAPI.POST("/sessions/:session_id/questions/:question_id/flag", handlers.Portal.ToggleFlag)
		teamAPI.GET("/sessions/:session_id/flags", handlers.Portal.ListFlags)
		teamAPI.GET("/sessions/:session_id/result", handlers.Portal.GetResult)
	}

	// ─── 3. WebSocket Group (Member WS Auth) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireMemberWSAuth(authService))
	{
		ws.GET("/team/sessions/:session_id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/tests", handlers.Admin.ListTests)
		adminAPI.POST("/tests", handlers.Admin.CreateTest)
		adminAPI.PUT("/tests/:id", handlers.Admin.UpdateTest)
		adminAPI.DELETE("/tests/:id", handlers.Admin.DeleteTest)
		adminAPI.PUT("/tests/:id/password", handlers.Admin.SetTestPassword)
		adminAPI.GET("/tests/:id/questions", handlers.Admin.ListQuestions)
		adminAPI.POST("/tests/:id/questions", handlers.Admin.AddQuestion)
		adminAPI.GET("/tests/:id/results", handlers.Admin.ListResults)

		adminAPI.DELETE("/questions/:question_id", handlers.Admin.DeleteQuestion)
		adminAPI.POST("/questions/:question_id/choices", handlers.Admin.AddChoice)
		adminAPI.PUT("/questions/:question_id/correction", handlers.Admin.SetCorrection)

		adminAPI.GET("/sessions", handlers.Admin.ListOngoingSessions)
		adminAPI.POST("/sessions/force-submit", handlers.Admin.ForceSubmit)
	}

	return router
}
