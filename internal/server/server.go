// Package server exposes the orchestration layer over HTTP for the editor UI.
//
// Routes:
//
//	POST /v1/generate           compose a feature prompt and generate text
//	POST /v1/images             generate images
//	GET  /v1/services           provider registry listing
//	GET  /v1/features           feature catalog with enabled state
//	GET  /v1/batch/{kind}       poll a batch job kind
//	POST /v1/batch/{kind}/start submit a batch job
//	POST /v1/batch/{kind}/cancel cancel a batch job
//	GET  /v1/batch/{kind}/ws    websocket stream of batch snapshots
//	GET  /healthz               liveness
//
// IMPORTANT: This package may import any internal package except internal/cli
// and internal/tui.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mrz1836/inkwell/internal/ai"
	"github.com/mrz1836/inkwell/internal/batch"
	"github.com/mrz1836/inkwell/internal/constants"
	"github.com/mrz1836/inkwell/internal/domain"
)

// Generator is the generation surface used by the HTTP API.
// *ai.Orchestrator implements it.
type Generator interface {
	ComposeAndGenerate(ctx context.Context, in ai.GenerateInput) (domain.GenerationResult, error)
	GenerateImages(ctx context.Context, in ai.ImageInput) (domain.GenerationResult, error)
	Services(ctx context.Context) ([]domain.ServiceDescriptor, error)
	Settings(ctx context.Context) (domain.Settings, error)
}

// BatchTracker is the batch surface used by the HTTP API.
// *batch.Tracker implements it.
type BatchTracker interface {
	Poll(ctx context.Context, kind domain.JobKind) (domain.BatchJob, error)
	Start(ctx context.Context, kind domain.JobKind, opts batch.StartOptions) (domain.BatchJob, error)
	Cancel(ctx context.Context, kind domain.JobKind) (domain.BatchJob, error)
	Snapshot(kind domain.JobKind) (domain.BatchJob, error)
	Subscribe(kind domain.JobKind, fn batch.Listener) (func(), error)
}

// Options configures the server.
type Options struct {
	Addr            string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Server is the inkwell HTTP API.
type Server struct {
	opts      Options
	generator Generator
	tracker   BatchTracker
	validate  *validator.Validate
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// New creates a server. tracker may be nil when no batch queue is configured;
// batch routes then answer 503.
func New(opts Options, generator Generator, tracker BatchTracker, logger zerolog.Logger) *Server {
	if opts.Addr == "" {
		opts.Addr = constants.DefaultServerAddr
	}
	if opts.RateLimitRPS <= 0 {
		opts.RateLimitRPS = constants.DefaultRateLimitRPS
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = constants.DefaultRateLimitBurst
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = constants.DefaultShutdownTimeout
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	return &Server{
		opts:      opts,
		generator: generator,
		tracker:   tracker,
		validate:  validate,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With().Str("component", "server").Logger(),
	}
}

// jsonFieldName reports validation failures under their JSON names.
func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, requestID, requestLogger(s.logger), middleware.Recoverer)

	r.Get("/healthz", s.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(rateLimit(s.opts.RateLimitRPS, s.opts.RateLimitBurst))

		r.Post("/generate", s.generate)
		r.Post("/images", s.images)
		r.Get("/services", s.services)
		r.Get("/features", s.features)

		r.Route("/batch/{kind}", func(r chi.Router) {
			r.Get("/", s.batchStatus)
			r.Post("/start", s.batchStart)
			r.Post("/cancel", s.batchCancel)
			r.Get("/ws", s.batchStream)
		})
	})

	return r
}

// Run listens on the configured address until ctx is canceled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is canceled. Open websocket streams are closed
// on shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	srv.RegisterOnShutdown(cancelBase)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()
		s.logger.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
