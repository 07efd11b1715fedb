package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"github.com/tlog-viewer/backend/internal/api"
	"github.com/tlog-viewer/backend/internal/config"
	"github.com/tlog-viewer/backend/internal/events"
	"github.com/tlog-viewer/backend/internal/ingest"
	"github.com/tlog-viewer/backend/internal/metrics"
	"github.com/tlog-viewer/backend/internal/spool"
	"github.com/tlog-viewer/backend/internal/storage"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to TlogIngest.config (XML) or a .yaml file")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Printf("Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if *configPath == "" {
		// Get the executable's directory for config resolution
		exePath, err := os.Executable()
		if err != nil {
			fmt.Printf("Failed to get executable path: %v\n", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(exePath), "TlogIngest.config")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		fmt.Printf("Failed to create directories: %v\n", err)
		os.Exit(1)
	}
	maxUpload, _ := cfg.MaxUploadBytes()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	sqlStore, err := storage.Open(ctx, storage.Options{
		Driver:  cfg.Storage.Driver,
		DSN:     cfg.Storage.DSN,
		DataDir: cfg.Storage.DataDirectory,
		DuckDB: storage.DuckDBOptions{
			MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
			Threads:     cfg.Advanced.DuckDBThreads,
		},
	})
	if err != nil {
		fmt.Printf("Failed to initialize storage: %v\n", err)
		os.Exit(1)
	}
	var store ingest.Store = sqlStore
	if cfg.Cache.RedisAddr != "" {
		client, err := storage.NewRedisClient(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			fmt.Printf("Warning: Redis cache disabled: %v\n", err)
		} else {
			store = storage.NewCachedStore(sqlStore, client, cfg.CacheTTL())
		}
	}
	defer store.Close()

	// Event fan-out: WebSocket clients and, when configured, JetStream
	var publishers events.Multi
	var hub *api.Hub
	if cfg.Events.EnableWebSocket {
		hub = api.NewHub(int64(cfg.Advanced.WebSocketMaxMessageSize) * 1024)
		defer hub.Close()
		publishers = append(publishers, hub)
	}
	if cfg.Events.NATSURL != "" {
		natsPub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.StreamMaxAge())
		if err != nil {
			fmt.Printf("Warning: NATS events disabled: %v\n", err)
		} else {
			defer natsPub.Close()
			publishers = append(publishers, natsPub)
		}
	}

	collector := metrics.New(cfg.Advanced.EnableRuntimeMetrics)

	pipeline := ingest.NewPipeline(store,
		ingest.WithEvents(publishers),
		ingest.WithObserver(collector),
		ingest.WithSkipRecordLimit(cfg.Processing.SkipRecordLimit),
	)

	spoolDir, err := spool.NewDir(cfg.Storage.SpoolDirectory)
	if err != nil {
		fmt.Printf("Failed to initialize spool: %v\n", err)
		os.Exit(1)
	}
	jobs := ingest.NewManager(pipeline, spoolDir, cfg.Processing.MaxConcurrentIngests, maxUpload)
	defer jobs.Close()

	// Start background job cleanup
	go func() {
		ticker := time.NewTicker(cfg.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := jobs.CleanupOldJobs(cfg.JobRetention()); n > 0 {
					log.Printf("[IngestJob] Cleaned up %d finished jobs", n)
				}
			}
		}
	}()

	e := echo.New()
	e.HideBanner = true
	api.SetupMiddleware(e, api.MiddlewareConfig{
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
		BodyLimit:      bodyLimit(maxUpload),
		EnableCORS:     cfg.Server.EnableCORS,
		AllowOrigins:   cfg.Server.AllowOrigins,
	})
	deps := &api.Dependencies{
		Ingester:      pipeline,
		Store:         store,
		Jobs:          jobs,
		Spool:         spoolDir,
		Hub:           hub,
		Metrics:       collector.Handler(),
		MaxUploadSize: maxUpload,
		Version:       Version,
	}
	api.RegisterRoutes(e, deps)

	// Configure server with settings from config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Tlog Ingest Server                              ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("║  Storage:    %-45s║\n", sqlStore.Driver())
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", *configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.Storage.DataDirectory)
	fmt.Printf("║  Max Upload: %-45s║\n", humanize.IBytes(uint64(maxUpload)))
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")

	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Server] %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("[Server] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Shutdown error: %v", err)
	}
}

// bodyLimit converts the upload limit to echo's size syntax, leaving room
// for multipart framing.
func bodyLimit(maxUpload int64) string {
	if maxUpload <= 0 {
		return ""
	}
	return fmt.Sprintf("%dK", maxUpload/1024+64)
}
