package routes

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/flexingg/flexingg/config"
	"github.com/flexingg/flexingg/controllers"
	"github.com/flexingg/flexingg/garmin"
	"github.com/flexingg/flexingg/middleware"
	"github.com/flexingg/flexingg/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, client garmin.Client, syncer *garmin.SyncService) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	ginLogPath := cfg.GinPath
	// Use application log level as reference
	gl, err := utils.NewRollingFileLogger(ginLogPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(db)
	garminController := controllers.NewGarminController(db, client, syncer)
	chartController := controllers.NewChartController(db)
	leaderboardController := controllers.NewLeaderboardController(db)
	friendController := controllers.NewFriendController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.PATCH("/profile", middleware.AuthRequired(), authController.UpdateProfile)

	garminGroup := api.Group("/garmin")
	garminGroup.Use(middleware.AuthRequired())
	garminGroup.POST("/connect", garminController.Connect)
	garminGroup.POST("/disconnect", garminController.Disconnect)
	garminGroup.POST("/sync", garminController.Sync)
	garminGroup.POST("/sync/background", garminController.BackgroundSync)

	chartsGroup := api.Group("/charts")
	chartsGroup.Use(middleware.AuthRequired())
	chartsGroup.GET("/steps", chartController.GetStepsChart)
	chartsGroup.GET("/calories", chartController.GetCaloriesChart)
	chartsGroup.GET("/sweat-score", chartController.GetSweatScoreChart)

	api.GET("/leaderboards/:metric/:period", middleware.AuthRequired(), leaderboardController.GetLeaderboard)

	friendsGroup := api.Group("/friends")
	friendsGroup.Use(middleware.AuthRequired())
	friendsGroup.POST("/requests", friendController.CreateRequest)
	friendsGroup.POST("/requests/:id/accept", friendController.Accept)
	friendsGroup.POST("/requests/:id/decline", friendController.Decline)

	// Public stats endpoint
	api.GET("/stats", statsController.GetStats)

	return r
}
