package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chatline/internal/config"
	"chatline/internal/db"
	apihttp "chatline/internal/http"
	"chatline/internal/llm"
	"chatline/internal/logging"
	"chatline/internal/realtime"
	"chatline/internal/repository"
	"chatline/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger := logging.New(logging.Options{Production: cfg.IsProduction(), FilePath: cfg.LogFile})
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal("db schema", zap.Error(err))
	}

	broker := realtime.NewBroker(logger)
	defer broker.Close()

	rateWindow := time.Duration(cfg.AIRateWindowSeconds) * time.Second
	var (
		publisher realtime.Publisher = broker
		limiter                      = service.NewGenerationLimiter(rateWindow, cfg.AIRateLimit)
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()

		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process realtime", zap.Error(err))
		} else {
			relay := realtime.NewRedisRelay(redisClient, broker, cfg.RealtimeChannel, logger)
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("redis relay stopped", zap.Error(err))
				}
			}()
			publisher = relay
			limiter = service.NewRedisGenerationLimiter(redisClient, rateWindow, cfg.AIRateLimit)
		}
		cancel()
	}

	chatClient, titleClient, err := llm.NewClients(ctx, llm.Options{
		Provider:        cfg.LLMProvider,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		APIKey:          cfg.LLMAPIKey,
		BaseURL:         cfg.LLMBaseURL,
		Model:           cfg.LLMModel,
		TitleModel:      cfg.TitleModel,
		SystemPrompt:    cfg.SystemPrompt,
		MaxOutputTokens: cfg.MaxOutputTokens,
	}, logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	chatRepo := repository.NewPgChatRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)
	chatSvc := service.NewChatService(chatRepo, messageRepo, publisher, logger)
	titleSvc := service.NewTitleService(titleClient, cfg.ChatNameSystemPrompt, logger)
	historySvc := service.NewHistoryService(cfg.ChatContextWindow)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, 0)
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}

	chatHandler := apihttp.NewChatHandler(logger, chatSvc)
	eventsHandler := apihttp.NewEventsHandler(logger, broker)
	aiHandler := apihttp.NewAIHandler(logger, chatClient, titleSvc, chatSvc, historySvc, limiter)
	router := apihttp.NewRouter(logger, jwtSvc, chatHandler, eventsHandler, aiHandler, func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
