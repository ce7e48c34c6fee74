package router

import (
	"log/slog"
	"time"

	"ecodesk/config"
	"ecodesk/internal/handler"
	"ecodesk/internal/middleware"
	"ecodesk/internal/repository"
	"ecodesk/internal/service"
	"ecodesk/internal/ws"
	"ecodesk/pkg/cloudinary"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func Setup(cfg *config.Config, db *gorm.DB, cloud cloudinary.Client, log *slog.Logger) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewRateLimiter(100, 60*time.Second)))

	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)

	presenceSvc := service.NewPresenceService(presenceRepo, cfg.Presence.RecentWindow, log)
	chatSvc := service.NewChatService(convRepo, msgRepo, userRepo, cfg.Chat.MaxAttachmentBytes, log)

	hub := ws.NewHub(chatSvc, presenceSvc, cfg.Chat.HistoryLimit, cfg.Chat.SendQueueSize, log)

	uploads := handler.NewAttachmentUploader(cloud, cfg.Chat.UploadFolder, cfg.Chat.MaxAttachmentBytes)
	authHandler := handler.NewAuthHandler(&cfg.JWT, userRepo)
	chatHandler := handler.NewChatHandler(chatSvc, presenceSvc, uploads, cfg.Chat.HistoryLimit)
	presenceHandler := handler.NewPresenceHandler(presenceSvc)
	uploadHandler := handler.NewUploadHandler(uploads)

	authMw := middleware.AuthRequired(&cfg.JWT)

	api := r.Group("/api/v1")
	{
		api.POST("/auth/token", authHandler.Token)

		conv := api.Group("/conversations")
		conv.Use(authMw)
		{
			conv.GET("", chatHandler.ListConversations)
			conv.POST("", chatHandler.StartConversation)
			conv.GET("/:id", chatHandler.GetConversation)
			conv.POST("/:id/messages", chatHandler.PostMessage)
			conv.POST("/:id/read", chatHandler.MarkRead)
			conv.GET("/:id/unread-count", chatHandler.UnreadCount)
			conv.DELETE("/:id", chatHandler.DeleteConversation)
		}
		api.GET("/unread-count", authMw, chatHandler.UnreadTotal)
		api.GET("/staff/:id/presence", authMw, presenceHandler.GetStaffPresence)
		api.POST("/presence/heartbeat", authMw, middleware.StaffOnly(), presenceHandler.Heartbeat)
		api.POST("/uploads/chat", authMw, uploadHandler.UploadChatAttachment)
	}

	r.GET("/ws/chat", handler.UpgradeChatWS(cfg, hub))

	return r
}
