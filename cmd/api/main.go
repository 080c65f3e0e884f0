package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postback-ingest-api/internal/cache"
	"postback-ingest-api/internal/config"
	"postback-ingest-api/internal/database"
	"postback-ingest-api/internal/events"
	"postback-ingest-api/internal/features"
	"postback-ingest-api/internal/handler"
	"postback-ingest-api/internal/links"
	"postback-ingest-api/internal/middleware"
	"postback-ingest-api/internal/scheme"
	"postback-ingest-api/internal/service"
	"postback-ingest-api/internal/tracing"
)

func main() {
	configFile := flag.String("config", "", "Path to JSON config file (optional)")
	port := flag.String("port", "", "Server port (overrides config)")
	dbPath := flag.String("db", "", "Database file path (overrides config)")
	offersPath := flag.String("offers", "", "Outbound offers JSON file (overrides config)")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}
	if *offersPath != "" {
		cfg.Offers.Path = *offersPath
	}

	// Initialize tracing
	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Tracing.Environment,
	}); err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer tracing.Shutdown(context.Background())

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize cache: Redis when configured, in-process otherwise
	var store cache.Cache
	if cfg.Cache.RedisAddr != "" {
		redisCache, err := cache.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		store = redisCache
	} else {
		store = cache.NewInMemoryCache()
	}

	// Feature flags, seeded from configuration
	flags := features.NewManager()
	flags.Register(features.FlagRequireClickID, cfg.Postback.RequireClickID, "reject postbacks with no resolvable click id")
	flags.Register(features.FlagAcceptPostBody, cfg.Postback.AcceptPostBody, "merge JSON POST bodies over query parameters")
	flags.Register(features.FlagDedupCache, true, "cache fast-path for duplicate suppression")

	// Event manager with a diagnostic subscriber
	eventManager := events.NewManager(true)
	defer eventManager.Shutdown()
	eventManager.Subscribe(events.EventPostbackReceived, func(ctx context.Context, e events.Event) error {
		if data, ok := e.Data.(events.PostbackReceivedData); ok {
			log.Printf("postback received: partner=%s click_id=%s payout=%s",
				data.Record.Partner, data.Record.ClickID, data.Record.Payout)
		}
		return nil
	})

	// Initialize service
	svcOpts := service.Options{
		Events:   eventManager,
		DedupTTL: time.Duration(cfg.Postback.DedupTTLHours) * time.Hour,
	}
	if flags.IsEnabled(features.FlagDedupCache) {
		svcOpts.Cache = store
	}
	svc := service.NewServiceWithOptions(db, scheme.DefaultMappings(), svcOpts)

	// Outbound offer registry (optional)
	var registry *links.Registry
	if cfg.Offers.Path != "" {
		registry, err = links.LoadRegistry(cfg.Offers.Path)
		if err != nil {
			log.Fatalf("Failed to load offers: %v", err)
		}
		log.Printf("Loaded %d outbound offers", registry.Len())
	}

	// Initialize handlers
	h := handler.NewHandlerWithOptions(svc, handler.Options{
		Offers:         registry,
		Cache:          store,
		Events:         eventManager,
		Flags:          flags,
		MaxBodySize:    cfg.Security.MaxRequestBodySize,
		ResponsePolicy: cfg.Postback.ResponsePolicy,
	})

	// Setup router
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	if cfg.Tracing.Enabled {
		r.Use(middleware.TracingMiddleware())
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.Security.AllowedOrigins},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	// Routes. /postback is registered for every method so the handler owns
	// the 405 response body the networks expect.
	r.Handle("/postback", http.HandlerFunc(h.HandlePostback))

	r.Route("/postbacks", func(r chi.Router) {
		r.Get("/", h.ListPostbacks)
		r.Get("/stats", h.Stats)
	})

	r.Get("/go/{offer_id}", h.Redirect)

	r.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Starting HTTP server on %s", addr)
	log.Printf("Database: %s", cfg.Database.Path)
	log.Printf("Response policy: %s", cfg.Postback.ResponsePolicy)

	server := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down server: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
