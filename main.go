// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fernanda-avila/MIndCare2025/assistant"
	"github.com/fernanda-avila/MIndCare2025/config"
	_ "github.com/fernanda-avila/MIndCare2025/docs"
	"github.com/fernanda-avila/MIndCare2025/endpoint"
	"github.com/fernanda-avila/MIndCare2025/middleware"
	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/fernanda-avila/MIndCare2025/util"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// @title           MindCare API
// @version         1.0
// @description     Therapy appointment booking: accounts, professionals, scheduling and chat.
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
// @securityDefinitions.apikey SessionToken
// @in header
// @name session-token
func main() {
	// Load the configuration
	cfg := config.LoadConfig()
	util.SetJWTSecret(cfg.JWTSecret)
	util.RegisterValidators()

	db, err := config.ConnectDatabase()
	if err != nil {
		log.Fatalf("Error connecting to database: %v", err)
	}
	if err := model.Migrate(db); err != nil {
		log.Fatalf("Error migrating database: %v", err)
	}
	seedAdmin(db, cfg)

	if err := util.EnsureGeoIP(context.Background(), cfg.GeoIPDBURL, cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP download skipped: %v", err)
	}
	if err := util.InitGeoIP(cfg.GeoIPDBPath); err != nil {
		log.Printf("GeoIP disabled: %v", err)
	}
	defer util.CloseGeoIP()
	util.SetSecurityLoggerDB(db)
	util.InitUserEmailCache(10 * time.Minute)

	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, using database sessions only: %v", err)
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := newRouter(cfg, db, assistant.FromConfig(cfg))

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

func seedAdmin(db *gorm.DB, cfg *config.Config) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return
	}
	salt, err := util.GenerateSalt()
	if err != nil {
		log.Printf("Admin seed skipped: %v", err)
		return
	}
	hashed, err := util.HashPasswordArgon2(cfg.AdminPassword, salt)
	if err != nil {
		log.Printf("Admin seed skipped: %v", err)
		return
	}
	admin := model.User{Name: "Administrator", Email: cfg.AdminEmail, Password: hashed, PasswordSalt: salt}
	if err := model.SeedAdmin(db, admin); err != nil {
		log.Printf("Admin seed failed: %v", err)
	}
}

// newRouter builds the engine with the global middleware stack.
func newRouter(cfg *config.Config, db *gorm.DB, asst *assistant.Assistant) *gin.Engine {
	router := gin.Default()
	router.Use(middleware.RequestID())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})
	router.Static("/uploads", cfg.UploadDir)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	endpoint.RegisterRoutes(router, endpoint.RouteOptions{
		Assistant:          asst,
		UploadDir:          cfg.UploadDir,
		MaxUploadBytes:     cfg.MaxUploadMB << 20,
		LoginRateLimit:     cfg.LoginRateLimit,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	return router
}
