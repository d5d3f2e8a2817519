package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/whisperstudio/chat-backend/internal/config"
	"github.com/whisperstudio/chat-backend/internal/db"
	"github.com/whisperstudio/chat-backend/internal/http/handlers"
	"github.com/whisperstudio/chat-backend/internal/http/middleware"
	"github.com/whisperstudio/chat-backend/internal/service"
	"github.com/whisperstudio/chat-backend/internal/session"
	"github.com/whisperstudio/chat-backend/internal/settings"
	"github.com/whisperstudio/chat-backend/internal/tickets"

	_ "github.com/whisperstudio/chat-backend/docs"
)

func Router(cfg config.Config, store *db.Store, pipeline *service.Pipeline, sessions *session.Records, settingsCh *settings.Channel, bridge *tickets.Bridge, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Pipeline:  pipeline,
		Sessions:  sessions,
		Settings:  settingsCh,
		Tickets:   bridge,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	{
		api.GET("/chats/:id", h.GetSession)
		api.GET("/chats/:id/messages", h.ListMessages)
		api.POST("/chats/:id/messages", h.SubmitMessage)
		api.POST("/chats/:id/greet", h.Greet)

		api.POST("/tickets", h.CreateTicket)
		api.GET("/tickets", h.ListTickets)
		api.GET("/tickets/:id", h.GetTicket)
		api.POST("/tickets/:id/messages", h.AppendTicketMessage)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.PATCH("/chats/:id", h.PatchSession)
		admin.POST("/chats/:id/messages", h.PostAdminMessage)
		admin.GET("/settings", h.GetSettings)
		admin.PUT("/settings", h.UpdateSettings)
		admin.GET("/tickets", h.AdminListTickets)
		admin.PATCH("/tickets/:id/status", h.SetTicketStatus)
		admin.GET("/stats", h.AdminStats)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
