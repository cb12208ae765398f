package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mindhaven-ai/mindhaven/backend/internal/analytics"
	"github.com/mindhaven-ai/mindhaven/backend/internal/config"
	"github.com/mindhaven-ai/mindhaven/backend/internal/handler"
	chatservice "github.com/mindhaven-ai/mindhaven/backend/internal/service/chat"
	"github.com/mindhaven-ai/mindhaven/backend/internal/service/therapist"
	"github.com/mindhaven-ai/mindhaven/backend/internal/telemetry"
	"github.com/mindhaven-ai/mindhaven/backend/internal/upstream"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	// Metrics are best-effort; the service runs without them.
	metrics := telemetry.Disabled()
	if cfg.Telemetry.Enabled {
		m, shutdown, err := telemetry.Init(ctx)
		if err != nil {
			log.Printf("warning: failed to initialize telemetry: %v", err)
		} else {
			metrics = m
			defer shutdown()
			log.Println("telemetry initialized successfully")
		}
	}

	store := analytics.NewFileStore(cfg.Store.Path)
	chatSvc := chatservice.NewService(store)

	var upstreamClient *upstream.Client
	var responder therapist.Responder
	if cfg.Therapist.Remote() {
		upstreamClient = upstream.NewClient(cfg.Therapist.UpstreamBaseURL, cfg.Therapist.UpstreamTimeout)
		responder = therapist.NewRemoteResponder(upstreamClient)
		if upstreamClient.Health(ctx) {
			log.Printf("remote responder enabled against %s", cfg.Therapist.UpstreamBaseURL)
		} else {
			log.Printf("warning: upstream %s is not reachable; turns will surface failures", cfg.Therapist.UpstreamBaseURL)
		}
	} else {
		responder = therapist.NewMockResponder(cfg.Therapist.MockResponseDelay)
		log.Println("mock responder enabled")
	}

	orch := therapist.NewOrchestrator(chatSvc, responder, upstreamClient, metrics,
		cfg.Therapist.UseRAGDefault, cfg.Therapist.RAGExamples)

	router := handler.NewRouter(handler.Deps{
		ChatSvc:         chatSvc,
		Orchestrator:    orch,
		Upstream:        upstreamClient,
		Store:           store,
		MonitorInterval: cfg.Monitor.Interval,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("MindHaven backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
