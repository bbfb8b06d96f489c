package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claimtriage/roadside/backend/internal/adapters/events"
	"github.com/claimtriage/roadside/backend/internal/adapters/lookup"
	"github.com/claimtriage/roadside/backend/internal/adapters/storage"
	"github.com/claimtriage/roadside/backend/internal/api/handlers"
	"github.com/claimtriage/roadside/backend/internal/api/routes"
	"github.com/claimtriage/roadside/backend/internal/application/services"
	"github.com/claimtriage/roadside/backend/internal/domain/providers"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/clients/openai"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/clients/redis"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/notifications"
	"github.com/claimtriage/roadside/backend/internal/infrastructure/observability"
	"github.com/claimtriage/roadside/backend/pkg/config"
)

func main() {

	// Load configuration

	cfg, err := config.Load()

	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize file stores
	claimStore, err := storage.NewFileStore(cfg.Storage.ClaimsDir())
	if err != nil {
		log.Fatalf("Failed to initialize claim store: %v", err)
	}
	conversationStore, err := storage.NewFileStore(cfg.Storage.ConversationsDir())
	if err != nil {
		log.Fatalf("Failed to initialize conversation store: %v", err)
	}

	claimAdapter := storage.NewClaimAdapter(claimStore)
	conversationAdapter := storage.NewConversationAdapter(conversationStore)

	// Initialize log bus. Redis fanout is optional; without it log entries
	// stay in-process, which is fine for a single replica.
	var logBus providers.LogBus
	if cfg.Redis.Host != "" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Printf("Warning: Failed to initialize Redis client: %v", err)
			logBus = events.NewMemoryLogBus()
		} else {
			logBus = events.NewRedisLogBus(redisClient.Client())
			log.Println("Log bus initialized with Redis fanout")
		}
	} else {
		logBus = events.NewMemoryLogBus()
	}

	// Load the policy and garage lookup dataset
	dataset, err := lookup.Load(cfg.Storage.PoliciesPath())
	if err != nil {
		log.Fatalf("Failed to load policy dataset: %v", err)
	}

	// Initialize OpenAI client. The agent cannot run without it.
	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; claim processing will fail until it is configured")
	}
	chatClient, err := openai.NewClient(&cfg.OpenAI)
	if err != nil {
		log.Fatalf("Failed to initialize OpenAI client: %v", err)
	}

	// Initialize services

	webhookService := services.NewWebhookService(cfg.Webhook)
	claimService := services.NewClaimService(claimAdapter, logBus)
	agentService := services.NewAgentService(chatClient, dataset)
	intakeService := services.NewIntakeService(claimAdapter, conversationAdapter, logBus, agentService)

	// Decision notifications are optional; missing credentials just disable them.
	if notifier, err := notifications.NewWhatsAppNotifier(); err != nil {
		log.Printf("WhatsApp notifications disabled: %v", err)
	} else {
		intakeService.SetNotifier(notifier)
		log.Println("WhatsApp decision notifications enabled")
	}

	// Initialize handlers

	webhookHandler := handlers.NewWebhookHandler(webhookService, intakeService, metrics)
	claimHandler := handlers.NewClaimHandler(claimService, logBus)
	logStreamHandler := handlers.NewLogStreamHandler(logBus)
	conversationHandler := handlers.NewConversationHandler(conversationAdapter, intakeService)

	// Set up router

	router := routes.NewRouter(
		webhookHandler,
		claimHandler,
		logStreamHandler,
		conversationHandler,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server. WriteTimeout stays zero because log streams are
	// long-lived SSE connections.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	// Let in-flight agent runs write their verdicts before the process exits
	intakeService.Wait()

	if err := logBus.Close(); err != nil {
		log.Printf("Error closing log bus: %v", err)
	}

	log.Println("Server stopped")
}
