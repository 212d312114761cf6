// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/config"
	"github.com/resto-ai/support-engine/internal/engine"
	"github.com/resto-ai/support-engine/internal/guardrails"
	"github.com/resto-ai/support-engine/internal/handler"
	"github.com/resto-ai/support-engine/internal/intent"
	"github.com/resto-ai/support-engine/internal/knowledge"
	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/internal/middleware"
	natsclient "github.com/resto-ai/support-engine/internal/nats"
	"github.com/resto-ai/support-engine/internal/notify"
	"github.com/resto-ai/support-engine/internal/orders"
	"github.com/resto-ai/support-engine/internal/proactive"
	"github.com/resto-ai/support-engine/internal/repository"
	"github.com/resto-ai/support-engine/internal/session"
	"github.com/resto-ai/support-engine/internal/state"
	"github.com/resto-ai/support-engine/internal/template"
	"github.com/resto-ai/support-engine/internal/tool"
	"github.com/resto-ai/support-engine/internal/window"
	"github.com/resto-ai/support-engine/pkg/logger"
	"github.com/resto-ai/support-engine/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting support engine")

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "support-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS and ensure the support stream exists.
	natsClient, err := natsclient.Connect(ctx, natsclient.Config{
		URL:      cfg.NATSURL,
		CAFile:   cfg.NATSCAFile,
		CertFile: cfg.NATSCertFile,
		KeyFile:  cfg.NATSKeyFile,
		Token:    cfg.NATSToken,
	}, log)
	if err != nil {
		log.Error("failed to connect to NATS", zap.Error(err))
		os.Exit(1)
	}
	defer natsClient.Close()

	streamManager := natsclient.NewStreamManager(natsClient)
	if err := streamManager.EnsureStream(ctx); err != nil {
		log.Error("failed to ensure stream", zap.Error(err))
		os.Exit(1)
	}

	// LLM clients. The engine degrades to templates and static answers
	// when no provider key is configured.
	var llmClient llm.Client
	switch {
	case cfg.DefaultLLM == "anthropic" && cfg.AnthropicAPIKey != "":
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	case cfg.OpenAIAPIKey != "":
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Warn("failed to create LLM client, model features disabled", zap.Error(err))
		llmClient = nil
	}

	var embedder llm.Embedder
	if cfg.OpenAIAPIKey != "" {
		embedder, err = llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
		if err != nil {
			log.Warn("failed to create embedder, semantic matching disabled", zap.Error(err))
			embedder = nil
		}
	}

	// Persistence and notification collaborators.
	ticketRepo := repository.NewTicketRepository(streamManager, log)
	agentQueue := repository.NewAgentQueue(streamManager, log)
	notifier := notify.NewNotifier(streamManager, cfg.WebhookURL, log)

	// Conversation pipeline collaborators.
	classifier := intent.NewClassifier(embedder, log)
	windowMgr := window.NewManager(cfg.TokenBudget, cfg.IdleTimeout)

	var guardEngine *guardrails.Engine
	if cfg.GuardrailRuleFile != "" {
		guardEngine, err = guardrails.NewEngineWithRules(cfg.GuardrailRuleFile, cfg.HourlyMessageLimit, log)
		if err != nil {
			log.Error("failed to load guardrail rules", zap.Error(err))
			os.Exit(1)
		}
	} else {
		guardEngine = guardrails.NewEngine(cfg.HourlyMessageLimit, log)
	}

	templates := template.NewRegistry(log)
	templates.Freeze()

	toolRegistry := tool.NewRegistry(log)
	tool.RegisterBuiltins(toolRegistry,
		orders.NewClient(cfg.OrderAPIURL, cfg.OrderAPIToken, log),
		ticketRepo,
		tool.NewStaticCatalog(),
	)
	var orchestrator *tool.Orchestrator
	if llmClient != nil {
		orchestrator = tool.NewOrchestrator(toolRegistry, llmClient, cfg.ModelName, tool.DefaultMaxIterations, log)
	}

	machine := state.NewMachine(agentQueue, log)
	proactiveEngine := proactive.NewEngine(log)
	tracker := proactive.NewTracker(cfg.ProactiveInterval, cfg.ProactiveConfidence)
	kbStore := knowledge.NewStore(embedder, knowledge.BuiltinPassages(), log)

	sessions := session.NewStore(windowMgr, log)
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	go sessions.RunJanitor(janitorCtx, cfg.JanitorInterval)

	eng := engine.New(engine.Config{
		Classifier:   classifier,
		Window:       windowMgr,
		Guardrails:   guardEngine,
		Templates:    templates,
		Orchestrator: orchestrator,
		Machine:      machine,
		Proactive:    proactiveEngine,
		Tracker:      tracker,
		Knowledge:    kbStore,
		Client:       llmClient,
		Limiter:      llm.NewLimiter(cfg.LLMCallsPerHour),
		Logger:       log,
		ModelName:    cfg.ModelName,
	})

	// Handlers.
	healthHandler := handler.NewHealthHandler(natsClient)
	sessionHandler := handler.NewSessionHandler(sessions, log)
	messageHandler := handler.NewMessageHandler(sessions, eng, log)
	ticketHandler := handler.NewTicketHandler(ticketRepo, sessions, notifier, log)
	streamHandler := handler.NewStreamHandler(ticketRepo, log)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		// Customer chat endpoints, no auth. The widget is anonymous.
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", sessionHandler.Get)
				r.Delete("/", sessionHandler.Delete)
				r.Post("/messages", messageHandler.Send)
			})
		})

		// Customer ticket endpoints.
		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", ticketHandler.Create)
			r.Route("/{ticketID}", func(r chi.Router) {
				r.Get("/", ticketHandler.Get)
				r.Get("/messages", ticketHandler.ListMessages)
				r.Post("/messages", ticketHandler.CustomerReply)
				r.Get("/stream", streamHandler.Stream)
			})
		})

		// Agent endpoints behind JWT auth.
		r.Route("/agent", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))
			r.Use(middleware.AgentRateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))
			r.Use(middleware.RequireScope("tickets"))

			r.Route("/tickets/{ticketID}", func(r chi.Router) {
				r.Post("/assign", ticketHandler.Assign)
				r.Post("/messages", ticketHandler.AgentReply)
			})
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
