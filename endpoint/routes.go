package endpoint

import (
	"time"

	"github.com/fernanda-avila/MIndCare2025/assistant"
	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/gin-gonic/gin"
)

// RouteOptions carries what the handlers need beyond the request.
type RouteOptions struct {
	Assistant          *assistant.Assistant
	UploadDir          string
	MaxUploadBytes     int64
	LoginRateLimit     int
	RateLimitPerMinute int
}

// RegisterRoutes wires every API route. Authorization that depends on the
// resource is decided in the handlers; RequireRole only guards route groups.
func RegisterRoutes(router *gin.Engine, opts RouteOptions) {
	if opts.Assistant == nil {
		opts.Assistant = assistant.New()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 5 << 20
	}
	loginLimit := middleware.RateLimiter(middleware.RateLimitConfig{Limit: opts.LoginRateLimit, Window: 15 * time.Minute})
	apiLimit := middleware.RateLimiter(middleware.RateLimitConfig{Limit: opts.RateLimitPerMinute, Window: time.Minute})

	router.POST("/auth/register", loginLimit, Register)
	router.POST("/auth/login", loginLimit, Login)
	router.GET("/token/validate", ValidateToken)
	router.GET("/professionals", ListProfessionals)
	router.GET("/professionals/:id", GetProfessional)
	router.GET("/users/helpers", ListHelpers)

	auth := router.Group("/")
	auth.Use(middleware.ValidateLoginToken())
	{
		auth.GET("/auth/me", Me)
		auth.DELETE("/auth/logout", Logout)
		auth.POST("/auth/verify-password", VerifyPassword)
		auth.PATCH("/users/me", UpdateCurrentUser)

		appointments := auth.Group("/appointments")
		{
			appointments.POST("", CreateAppointment)
			appointments.GET("/me", ListMyAppointments)
			appointments.PATCH("/:id", UpdateAppointment)
			appointments.PATCH("/:id/cancel", CancelAppointment)
			appointments.GET("/professional/:id",
				middleware.RequireRole(model.RoleAdmin, model.RoleHelper, model.RoleProfessional),
				ProfessionalAgenda)
		}

		pros := auth.Group("/professionals")
		{
			staff := middleware.RequireRole(model.RoleAdmin, model.RoleHelper)
			admin := middleware.RequireRole(model.RoleAdmin)
			pros.POST("", staff, CreateProfessional)
			pros.PATCH("/:id", staff, UpdateProfessional)
			pros.DELETE("/:id", admin, DeleteProfessional)
			pros.GET("/requests/pending", admin, ListPendingProfessionals)
			pros.POST("/:id/approve", admin, ApproveProfessional)
			pros.POST("/:id/reject", admin, RejectProfessional)
		}

		users := auth.Group("/users")
		users.Use(middleware.RequireRole(model.RoleAdmin))
		{
			users.POST("", CreateUser)
			users.GET("", ListUsers)
			users.POST("/sync-helpers-to-pros", SyncHelpersToProfessionals)
			users.GET("/:id", GetUserInfo)
			users.PATCH("/:id", AdminUpdateUser)
			users.DELETE("/:id", DeleteUser)
		}

		auth.GET("/chat", ListChatMessages)
		auth.POST("/chat", CreateChatMessage)
		auth.POST("/assistant", apiLimit, AskAssistant(opts.Assistant))
		auth.POST("/uploads", apiLimit, UploadFile(opts.UploadDir, opts.MaxUploadBytes))
	}
}
