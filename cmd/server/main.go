package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"hims.app/advisor/common/id"
	"hims.app/advisor/common/llm"
	"hims.app/advisor/common/logger"
	"hims.app/advisor/common/otel"
	"hims.app/advisor/core/config"
	"hims.app/advisor/internal/advisory"
	"hims.app/advisor/internal/eventbus"
	"hims.app/advisor/internal/http/middleware"
	httprouter "hims.app/advisor/internal/http/router"
	"hims.app/advisor/internal/insight"
	"hims.app/advisor/internal/queue"
	"hims.app/advisor/internal/service"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeGateway)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "advisor gateway starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(cfg.NodeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	var advisorySvc advisory.Service = advisory.NewClient(cfg.Advisory.BaseURL, cfg.Advisory.Timeout, nil)
	if cfg.Chat.UsesLLM() {
		llmClient, err := llm.New(llm.Config{
			Provider:  cfg.Chat.Provider,
			APIKey:    cfg.Chat.LLM.APIKey,
			BaseURL:   cfg.Chat.LLM.BaseURL,
			Model:     cfg.Chat.LLM.Model,
			MaxTokens: cfg.Chat.LLM.MaxTokens,
		})
		if err != nil {
			slog.ErrorContext(ctx, "failed to create llm client", "error", err)
			os.Exit(1)
		}
		advisorySvc = advisory.WithChat(advisorySvc, advisory.NewLLMChat(llmClient))
		slog.InfoContext(ctx, "chat answered by llm", "provider", cfg.Chat.Provider, "model", llmClient.Model())
	}

	bus := eventbus.New("data-changed")
	servicesCfg := service.ServicesConfig{
		Advisory:      advisorySvc,
		Bus:           bus,
		FieldDebounce: cfg.Field.Debounce,
		InsightOptions: insight.Options{
			TTL:         cfg.Insight.TTL,
			SettleDelay: cfg.Insight.SettleDelay,
		},
	}

	if cfg.Bus.Enabled() {
		redisOpts, err := redis.ParseURL(cfg.Bus.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}

		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		slog.InfoContext(ctx, "redis connected", "channel", cfg.Bus.Channel)

		// Each process needs its own origin so the relay can skip its own messages.
		origin := uuid.NewString()
		publisher := queue.NewRedisPublisher(redisClient, cfg.Bus.Channel, origin, slog.Default())
		defer publisher.Close()
		servicesCfg.RemotePublish = publisher

		relay := queue.NewRelay(redisClient, cfg.Bus.Channel, origin, bus)
		go func() {
			if err := relay.Run(ctx); err != nil {
				slog.ErrorContext(ctx, "mutation relay stopped", "error", err)
			}
		}()
		defer relay.Stop()
	} else {
		slog.InfoContext(ctx, "mutation relay disabled (no redis configured)")
	}

	services := service.NewServices(ctx, servicesCfg)
	defer services.Close()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{AllowedOrigins: cfg.AllowedOrigins})

	return router
}

const banner = `
 █████╗ ██████╗ ██╗   ██╗██╗███████╗ ██████╗ ██████╗
██╔══██╗██╔══██╗██║   ██║██║██╔════╝██╔═══██╗██╔══██╗
███████║██║  ██║██║   ██║██║███████╗██║   ██║██████╔╝
██╔══██║██║  ██║╚██╗ ██╔╝██║╚════██║██║   ██║██╔══██╗
██║  ██║██████╔╝ ╚████╔╝ ██║███████║╚██████╔╝██║  ██║
╚═╝  ╚═╝╚═════╝   ╚═══╝  ╚═╝╚══════╝ ╚═════╝ ╚═╝  ╚═╝
`
