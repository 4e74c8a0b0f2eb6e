package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sofiene-feki/skands-server/internal/cache"
	"github.com/sofiene-feki/skands-server/internal/clients"
	"github.com/sofiene-feki/skands-server/internal/config"
	"github.com/sofiene-feki/skands-server/internal/database"
	"github.com/sofiene-feki/skands-server/internal/metrics"
	custommiddleware "github.com/sofiene-feki/skands-server/internal/middleware"
	"github.com/sofiene-feki/skands-server/internal/repository"
	"github.com/sofiene-feki/skands-server/internal/service"
	"github.com/sofiene-feki/skands-server/internal/storage"
	"github.com/sofiene-feki/skands-server/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serviceName = "skands-server"

// Dependencies are the connections opened by main. Redis may be nil.
type Dependencies struct {
	DB    database.Service
	Redis *redis.Client
	Media storage.MediaStore
}

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	deps   Dependencies
}

func NewServer(cfg *config.Config, logger *zap.Logger, deps Dependencies) *Server {
	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      NewRouter(cfg, logger, deps),
			IdleTimeout:  time.Minute,
			ReadTimeout:  time.Minute,
			WriteTimeout: 2 * time.Minute,
		},
		config: cfg,
		logger: logger,
		deps:   deps,
	}
}

// NewRouter wires repositories, services and handlers onto a chi router
func NewRouter(cfg *config.Config, logger *zap.Logger, deps Dependencies) http.Handler {
	m := metrics.New(serviceName)

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, !cfg.Server.IsProduction()))
	router.Use(m.Middleware)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := deps.DB.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})
	router.Handle("/metrics", m.Handler())

	if local, ok := deps.Media.(*storage.LocalStore); ok {
		prefix := strings.TrimRight(cfg.Media.URLPrefix, "/")
		router.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(local.Root()))))
	}

	// Initialize repositories
	db := deps.DB.DB()
	productRepo := repository.NewProductRepository(db)
	packRepo := repository.NewPackRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	subRepo := repository.NewSubRepository(db)
	bannerRepo := repository.NewBannerRepository(db)
	slideRepo := repository.NewStorySlideRepository(db)
	pixelEventRepo := repository.NewPixelEventRepository(db)

	var catalogCache *cache.CatalogCache
	if deps.Redis != nil {
		catalogCache = cache.NewCatalogCache(deps.Redis, cfg.Cache.TTL, logger)
	}

	// Initialize services
	productService := service.NewProductService(productRepo, deps.Media, catalogCache, logger)
	packService := service.NewPackService(packRepo, deps.Media, logger)
	orderService := service.NewOrderService(orderRepo, clients.NewDeliveryClient(cfg.Delivery), logger)
	categoryService := service.NewCategoryService(categoryRepo, subRepo, productRepo, logger)
	contentService := service.NewContentService(bannerRepo, slideRepo, deps.Media, logger)
	pixelService := service.NewPixelService(
		clients.NewMetaClient(cfg.Meta),
		clients.NewGeoClient(cfg.Geo),
		pixelEventRepo,
		m,
		cfg.Meta.Currency,
		logger,
	)

	// Initialize handlers
	maxBody := cfg.Media.MaxUploadMB << 20
	productHandler := transport.NewProductHandler(productService, maxBody, logger)
	packHandler := transport.NewPackHandler(packService, maxBody, logger)
	orderHandler := transport.NewOrderHandler(orderService, maxBody, logger)
	categoryHandler := transport.NewCategoryHandler(categoryService, logger)
	contentHandler := transport.NewContentHandler(contentService, maxBody, logger)
	pixelHandler := transport.NewPixelHandler(pixelService, logger)

	orderLimit := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.NewRateLimitConfig(cfg.RateLimit, "orders"), logger)
	pixelLimit := custommiddleware.RateLimitMiddleware(deps.Redis, custommiddleware.NewRateLimitConfig(cfg.RateLimit, "pixel"), logger)

	router.Route("/api", func(r chi.Router) {
		productHandler.RegisterRoutes(r)
		packHandler.RegisterRoutes(r)
		orderHandler.RegisterRoutes(r, orderLimit)
		categoryHandler.RegisterRoutes(r)
		contentHandler.RegisterRoutes(r)
		pixelHandler.RegisterRoutes(r, pixelLimit)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusNotFound, "route not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		custommiddleware.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return router
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.deps.Redis != nil {
		if err := s.deps.Redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	// Close database connection
	if s.deps.DB != nil {
		if err := s.deps.DB.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
