package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	handlers "github.com/de-tools/royalty-ledger/pkg/handlers/royalty"
	ledgermiddleware "github.com/de-tools/royalty-ledger/pkg/server/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const defaultShutdownTimeout = 10 * time.Second

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Archive handlers.ArchiveLister
	Planner handlers.Planner
	Journal handlers.RunJournal
	Catalog handlers.CatalogLister
	Logger  zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

// ConfigureRouter mounts the read-only status API
func ConfigureRouter(config Config) *chi.Mux {
	h := handlers.NewHandler(
		config.Dependencies.Archive,
		config.Dependencies.Planner,
		config.Dependencies.Journal,
		config.Dependencies.Catalog,
	)

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(ledgermiddleware.Logger(&config.Dependencies.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/periods", h.ListPeriods)
		r.Get("/periods/{period}/plan", h.GetPlan)
		r.Get("/runs", h.ListRuns)
		r.Get("/catalog", h.ListProducts)
	})

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	timeout := config.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		shutdownTimeout: timeout,
	}
}

// Start serves until ctx is cancelled, then drains outstanding requests
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(shutdownCtx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}
		return err
	}
}
