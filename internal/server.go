package internal

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/prappser/prappser_upload/internal/artifact"
	"github.com/prappser/prappser_upload/internal/health"
	"github.com/prappser/prappser_upload/internal/middleware"
	"github.com/prappser/prappser_upload/internal/status"
	"github.com/prappser/prappser_upload/internal/storage"
	"github.com/prappser/prappser_upload/internal/upload"
	"github.com/prappser/prappser_upload/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
	"golang.org/x/sync/errgroup"
)

const Version = "1.0.0"

// Server owns the HTTP server, the event hub and the catalogue handle.
type Server struct {
	config *Config
	http   *fasthttp.Server
	hub    *websocket.Hub
	db     *sql.DB
}

func NewServer(config *Config) (*Server, error) {
	backend, err := storage.NewBackend(&config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	db, err := NewDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// The catalogue interfaces stay nil, not typed-nil, when disabled.
	var (
		catalog           upload.ArtifactCatalog
		catalogueStats    status.CatalogueStats
		artifactEndpoints *artifact.Endpoints
	)
	if db != nil {
		repository := artifact.NewRepository(db)
		catalog = repository
		catalogueStats = repository
		artifactEndpoints = artifact.NewEndpoints(repository)
	}

	hub := websocket.NewHub()
	uploadService := upload.NewService(backend, config.Upload, catalog, hub)
	corsMiddleware := middleware.NewCORSMiddleware(config.Server.AllowedOrigins)

	requestHandler := NewRequestHandler(
		corsMiddleware,
		upload.NewEndpoints(uploadService),
		artifactEndpoints,
		health.NewEndpoints(Version, backend),
		status.NewEndpoints(Version, uploadService, catalogueStats, hub),
		websocket.NewHandler(hub, corsMiddleware.AllowsOrigin),
	)

	return &Server{
		config: config,
		hub:    hub,
		db:     db,
		http: &fasthttp.Server{
			Handler:            requestHandler,
			Name:               "prappser-upload",
			MaxRequestBodySize: config.Server.MaxRequestBodySize,
			ReadTimeout:        config.Server.ReadTimeout,
			WriteTimeout:       config.Server.WriteTimeout,
			IdleTimeout:        config.Server.IdleTimeout,
		},
	}, nil
}

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done, then drains
// in-flight requests within the shutdown timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", ln.Addr().String()).Str("version", Version).Msg("Upload server listening")
		return s.http.Serve(ln)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()
		return s.http.ShutdownWithContext(shutdownCtx)
	})

	err := g.Wait()

	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close database")
		}
	}

	return err
}
