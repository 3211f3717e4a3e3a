package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"parcel/config"
	"parcel/infras/kafka"
	"parcel/infras/otel"
	"parcel/internal/domains/booking/service"
	"parcel/shared/constant"
	"parcel/transport/http/response"
	"parcel/transport/http/router"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

type HTTP struct {
	Config  *config.Config
	Router  router.Router
	Booking service.Booking
	Otel    otel.Otel
	Kafka   kafka.Client

	state  atomic.Int32
	mux    *chi.Mux
	server *http.Server
}

func New(cfg *config.Config, r router.Router, booking service.Booking, ot otel.Otel, producer kafka.Client) *HTTP {
	return &HTTP{
		Config:  cfg,
		Router:  r,
		Booking: booking,
		Otel:    ot,
		Kafka:   producer,
	}
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

// Serve listens until ctx is cancelled, then runs the grace and cleanup periods.
func (h *HTTP) Serve(ctx context.Context) error {
	h.setup()

	h.server = &http.Server{
		Addr:              net.JoinHostPort(h.Config.Server.Host, h.Config.Server.Port),
		Handler:           h.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	return h.shutdown()
}

// ServeHTTP lets the service run behind a serverless adapter.
func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.mux == nil {
		h.setup()
	}

	h.mux.ServeHTTP(w, r)
}

func (h *HTTP) setup() {
	h.mux = chi.NewRouter()

	h.setupCORS()
	h.Router.SetupRoutes(h.mux)
	h.mux.Get("/health", h.health)

	h.state.Store(int32(ServerStateReady))
}

func (h *HTTP) setupCORS() {
	c := h.Config.App.CORS
	if !c.Enable {
		return
	}

	h.mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   c.AllowedOrigins,
		AllowedMethods:   c.AllowedMethods,
		AllowedHeaders:   c.AllowedHeaders,
		AllowCredentials: c.AllowCredentials,
		MaxAge:           c.MaxAgeSeconds,
	}))
}

func (h *HTTP) health(w http.ResponseWriter, _ *http.Request) {
	switch h.State() {
	case ServerStateReady:
		response.WithHealthy(w)
	case ServerStateInGracePeriod:
		response.WithPreparingShutdown(w)
	default:
		response.WithUnhealthy(w)
	}
}

func (h *HTTP) shutdown() error {
	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")

		return h.cleanup(context.Background())
	}

	shutdownConfig := h.Config.Server.Shutdown

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.state.Store(int32(ServerStateInGracePeriod))

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.state.Store(int32(ServerStateInCleanupPeriod))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownConfig.CleanupPeriodSeconds)*time.Second)
	defer cancel()

	return h.cleanup(ctx)
}

// cleanup stops accepting requests, then waits for outstanding backend answers and
// payment redirects before the Kafka writer is closed.
func (h *HTTP) cleanup(ctx context.Context) error {
	err := h.server.Shutdown(ctx)

	if waitErr := h.Booking.Wait(ctx); waitErr != nil {
		log.Warn().Err(waitErr).Msg("Cleanup period over with booking work still in flight.")
	}

	if h.Kafka != nil {
		if closeErr := h.Kafka.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("failed to close kafka writer")
		}
	}

	if shutdownErr := h.Otel.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
		log.Error().Err(shutdownErr).Msg("failed to flush traces")
	}

	log.Info().Msg("Cleaning up completed. Shutting down now.")

	return err
}
