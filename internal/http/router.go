package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger verifica dependencias externas para /healthz.
type Pinger func(ctx context.Context) error

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	verifier TokenVerifier,
	chatH *ChatHandler,
	eventsH *EventsHandler,
	aiH *AIHandler,
	ping Pinger,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	r.GET("/healthz", healthHandler(ping))

	r.GET("/chats/events", JWTAuthMiddleware(verifier, true), eventsH.Stream)

	api := r.Group("", JWTAuthMiddleware(verifier, false))

	chats := api.Group("/chats")
	chats.POST("", chatH.CreateChat)
	chats.GET("", chatH.ListChats)
	chats.GET("/:id", chatH.GetChat)
	chats.PATCH("/:id", chatH.RenameChat)
	chats.DELETE("/:id", chatH.DeleteChat)
	chats.PUT("/:id/count", chatH.UpdateMessageCount)
	chats.GET("/:id/messages", chatH.ListMessages)
	chats.POST("/:id/messages", chatH.AddMessage)

	api.POST("/ai", aiH.Stream)
	api.POST("/chat-name", aiH.ChatName)

	return r
}

func healthHandler(ping Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
// Los handlers SSE lo sobreescriben.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
