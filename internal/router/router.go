package router

import (
	"log"
	"time"

	"kobo/config"
	"kobo/internal/handler"
	"kobo/internal/middleware"
	"kobo/internal/repository"
	"kobo/internal/service"
	"kobo/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewSlidingWindowLimiter(100, 60*time.Second)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)

	// Registry + services
	registry := ws.NewRegistry()
	authSvc := service.NewAuthService(cfg, userRepo)
	fcmSvc := service.NewFCMService(cfg.Firebase.ServiceAccountPath)
	if fcmSvc != nil {
		log.Printf("[FCM] mobile push fallback enabled")
	} else if cfg.Firebase.ServiceAccountPath != "" {
		log.Printf("[FCM] mobile push disabled: failed to init (check service account file)")
	}
	dispatcher := service.NewDispatcher(notificationRepo, preferenceRepo, userRepo, registry, fcmSvc)

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	meHandler := handler.NewMeHandler(userRepo)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	preferenceHandler := handler.NewPreferenceHandler(preferenceRepo)
	adminHandler := handler.NewAdminHandler(dispatcher)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
		}

		me := api.Group("/me")
		me.Use(authMw)
		{
			me.GET("/profile", meHandler.GetProfile)
			me.POST("/fcm-token", meHandler.RegisterFCMToken)
		}

		notifications := api.Group("/notifications")
		notifications.Use(authMw)
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PATCH("/read-all", notificationHandler.MarkAllRead)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.DELETE("/:id", notificationHandler.Delete)
		}

		api.GET("/notification-preferences", authMw, preferenceHandler.Get)
		api.PATCH("/notification-preferences", authMw, preferenceHandler.Update)

		admin := api.Group("/admin")
		admin.Use(authMw, middleware.AdminRequired())
		{
			admin.POST("/notifications/system", adminHandler.SendSystem)
			admin.POST("/notifications/broadcast", adminHandler.Broadcast)
		}
	}

	r.GET("/ws/notifications", ws.UpgradeNotificationWS(&cfg.JWT, &cfg.Realtime, registry, dispatcher))

	return r
}
