package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-geoview/internal/api"
	"github.com/joeblew999/plat-geoview/internal/db"
	"github.com/joeblew999/plat-geoview/internal/logger"
	"github.com/joeblew999/plat-geoview/internal/metrics"
	"github.com/joeblew999/plat-geoview/internal/service"
	"github.com/joeblew999/plat-geoview/internal/tiles"
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	MaxUploadMB int
	TileCacheMB int
	// DuckDBExtensions are loaded into the catalog when available.
	DuckDBExtensions []string
}

// Server is the geoview HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	services *api.Services
	tiles    *tiles.Cache
	stop     context.CancelFunc
	// followed is closed when the catalog follower exits; nil without a
	// catalog.
	followed <-chan struct{}
}

// New creates a new geoview server. Failing to open the catalog is not
// fatal; the SQL routes then answer 503.
func New(cfg Config) (*Server, error) {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-geoview API", api.Version)
	humaConfig.Info.Description = "Load Shapefile and GeoJSON layers, split them by attribute, and select features."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	bus := service.NewEventBus()
	registry := service.NewRegistry(bus)
	selection, err := service.NewSelectionService(registry, bus)
	if err != nil {
		return nil, err
	}
	cache, err := tiles.NewCache(registry, int64(cfg.TileCacheMB)<<20)
	if err != nil {
		return nil, err
	}

	services := &api.Services{
		Registry:       registry,
		Ingest:         service.NewIngestService(registry, 0),
		Selection:      selection,
		Bus:            bus,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
	}

	ctx, stop := context.WithCancel(context.Background())
	var followed <-chan struct{}
	if catalog, err := db.Open(db.Config{Extensions: cfg.DuckDBExtensions}); err != nil {
		logger.L().Warn("catalog unavailable", "error", err)
	} else {
		services.Catalog = catalog
		followed = catalog.Follow(ctx, registry, bus)
	}

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		services: services,
		tiles:    cache,
		stop:     stop,
		followed: followed,
	}
	s.routes()
	s.handler = logger.AccessMiddleware(logger.L())(mux)
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Services exposes the wired services, mainly for tests.
func (s *Server) Services() *api.Services {
	return s.services
}

// Close stops the catalog follower and releases the catalog and tile cache.
func (s *Server) Close() error {
	s.stop()
	if s.followed != nil {
		<-s.followed
	}
	s.tiles.Close()
	return s.services.Catalog.Close()
}

func (s *Server) routes() {
	// Register* methods of APIHandler are discovered by AutoRegister.
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(s.services))
	api.NewDBHandler(s.services.Catalog).RegisterRoutes(s.humaAPI)
	api.NewInfoHandler(s.services.Registry, s.services.Catalog != nil).RegisterRoutes(s.humaAPI)

	s.mux.Handle("GET "+api.TilePattern, api.TileHandler(s.tiles))
	s.mux.Handle("OPTIONS "+api.TilePattern, api.TileHandler(s.tiles))
	s.mux.Handle("GET /metrics", metrics.Handler())
}
