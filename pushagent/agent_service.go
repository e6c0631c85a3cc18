// Package pushagent assembles the device push agent: the ingestion
// pipeline, the rendering and routing core, the token lifecycle and the
// local HTTP surface.
package pushagent

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-push-agent/internal/api"
	"github.com/tinywideclouds/go-push-agent/internal/ingest"
	"github.com/tinywideclouds/go-push-agent/internal/receive"
	"github.com/tinywideclouds/go-push-agent/internal/render"
	"github.com/tinywideclouds/go-push-agent/internal/route"
	"github.com/tinywideclouds/go-push-agent/internal/session"
	"github.com/tinywideclouds/go-push-agent/internal/token"
	"github.com/tinywideclouds/go-push-agent/pkg/agent"
	"github.com/tinywideclouds/go-push-agent/pushagent/config"
)

// Deps are the external collaborators the agent is assembled around.
// Everything here is an interface so tests can swap in fakes.
type Deps struct {
	Consumer     messagepipeline.MessageConsumer
	Notifiers    []agent.Notifier
	Navigator    agent.Navigator
	TokenSource  agent.TokenSource
	Registrar    agent.Registrar
	TokenCache   agent.TokenCache
	Interactions agent.InteractionStore
	Inbox        agent.Inbox

	AuthMiddleware func(http.Handler) http.Handler
}

type Wrapper struct {
	*microservice.BaseServer
	pipelineService *messagepipeline.StreamingService[agent.InboundMessage]
	renderer        *render.Renderer
	receiver        *receive.Receiver
	coldStart       *route.ColdStart
	logger          *slog.Logger
}

// New assembles the agent.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Wrapper, error) {
	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)

	// 2. Core components
	sessions := session.NewStore()
	renderer := render.New(deps.Notifiers, deps.Inbox, sessions, logger)
	manager := token.NewManager(deps.TokenSource, deps.TokenCache, deps.Registrar, logger)

	bus := receive.NewBus()
	receiver := receive.NewReceiver(bus, renderer, manager, sessions, logger)
	// The background handler is bound exactly once, here, before any
	// subsystem starts. It is deliberately outside Receiver.Init.
	bus.OnBackgroundMessage(receiver.HandleBackground)

	router := route.NewRouter(deps.Navigator, deps.Inbox, logger)
	coldStart := route.NewColdStart(deps.Interactions, router, deps.Navigator, sessions, logger)

	// 3. Pipeline
	processor := ingest.NewProcessor(bus, logger)
	streamingService, err := messagepipeline.NewStreamingService[agent.InboundMessage](
		messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers},
		deps.Consumer,
		ingest.InboundMessageTransformer,
		processor,
		slog.New(slog.DiscardHandler),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create streaming service: %w", err)
	}

	// 4. API
	sessionAPI := api.NewSessionAPI(sessions, manager, router, bus, deps.Inbox, logger)

	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	mux.Handle("OPTIONS /session/login", corsMiddleware(noop))
	mux.Handle("OPTIONS /session/logout", corsMiddleware(noop))
	mux.Handle("OPTIONS /interactions", corsMiddleware(noop))
	mux.Handle("OPTIONS /push-token/refresh", corsMiddleware(noop))
	mux.Handle("OPTIONS /notifications", corsMiddleware(noop))

	// Protected: login and the notification list carry a user identity.
	mux.Handle("POST /session/login", corsMiddleware(deps.AuthMiddleware(http.HandlerFunc(sessionAPI.Login))))
	mux.Handle("GET /notifications", corsMiddleware(deps.AuthMiddleware(http.HandlerFunc(sessionAPI.ListNotifications))))

	// Companion-local: logout, taps and token rotation arrive from the
	// device side of the bridge.
	mux.Handle("POST /session/logout", corsMiddleware(http.HandlerFunc(sessionAPI.Logout)))
	mux.Handle("POST /interactions", corsMiddleware(http.HandlerFunc(sessionAPI.Interaction)))
	mux.Handle("POST /push-token/refresh", corsMiddleware(http.HandlerFunc(sessionAPI.TokenRefresh)))

	return &Wrapper{
		BaseServer:      baseServer,
		pipelineService: streamingService,
		renderer:        renderer,
		receiver:        receiver,
		coldStart:       coldStart,
		logger:          logger,
	}, nil
}

// Start brings the agent up: channels first, then listeners, then the
// ingestion pipeline, then the deferred cold-start dispatch.
func (w *Wrapper) Start(ctx context.Context) error {
	w.renderer.EnsureChannels(ctx)
	w.receiver.Init(ctx)

	w.logger.Info("Core processing pipeline starting...")
	if err := w.pipelineService.Start(ctx); err != nil {
		return fmt.Errorf("failed to start processing service: %w", err)
	}

	go w.coldStart.Run(context.WithoutCancel(ctx))

	w.SetReady(true)
	w.logger.Info("Agent is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down agent components...")
	var finalErr error
	w.receiver.Close()
	if err := w.pipelineService.Stop(ctx); err != nil {
		w.logger.Error("Processing pipeline shutdown failed.", "err", err)
		finalErr = err
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Agent shutdown complete.")
	return finalErr
}
