package main

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"spinwheel/internal/config"
	"spinwheel/internal/engine"
	"spinwheel/internal/handlers"
	"spinwheel/internal/ledger"
	"spinwheel/internal/models"
	"spinwheel/internal/registry"
	"spinwheel/internal/render"
	"spinwheel/internal/services"
	"spinwheel/internal/storage"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/robfig/cron/v3"
)

//go:embed all:templates
var templateFS embed.FS

//go:embed all:assets
var assetsFS embed.FS

func main() {
	// 1. Load configuration
	if err := config.LoadEnv(".env"); err != nil {
		logger.Warningf("Error loading .env file: %v", err)
	}
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		logger.Fatalf("Error parsing flags: %v", err)
	}
	defer logger.Init("spinwheel", cfg.Verbose, false, io.Discard).Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the snapshot store
	var store storage.Store = storage.NewMemoryStore()
	if cfg.DBPath != "" {
		sq, err := storage.OpenSQLite(cfg.DBPath)
		if err != nil {
			logger.Fatalf("Failed to open database: %v", err)
		}
		defer sq.Close()
		store = sq
	} else {
		logger.Warningf("No database path configured, snapshots are kept in memory")
	}

	// 3. Load prizes and winners
	var seed []models.Prize
	if cfg.PrizesFile != "" {
		if seed, err = registry.LoadSeedFile(cfg.PrizesFile); err != nil {
			logger.Fatalf("Failed to load prize seed: %v", err)
		}
	}
	prizes, err := registry.New(ctx, store, seed)
	if err != nil {
		logger.Fatalf("Failed to load prizes: %v", err)
	}
	winners, err := ledger.New(ctx, store)
	if err != nil {
		logger.Fatalf("Failed to load winners: %v", err)
	}

	// 4. Load prize images and hook reloads to prize changes
	images := render.NewImageCache(assetsFS)
	if err := images.Load(ctx, prizes.Prizes()); err != nil {
		logger.Fatalf("Failed to load images: %v", err)
	}
	prizes.OnChange(handlers.ImageReloader(images))

	// 5. Initialize the Wheel Service
	wheelService := services.NewWheelService(ctx, engine.New(nil), prizes, winners,
		engine.IntervalScheduler{Interval: cfg.FrameInterval})

	// 6. Load HTML templates from the embedded filesystem.
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		logger.Fatalf("Failed to parse templates: %v", err)
	}

	// 7. Set up the Gin router
	r := gin.Default()
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/spin/stream"})))

	assetsSubFS, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		logger.Fatalf("Failed to create assets sub-filesystem: %v", err)
	}
	r.StaticFS("/assets", http.FS(assetsSubFS))

	httpHandler := handlers.NewHTTPHandler(wheelService, render.NewRenderer(cfg.WheelSize, images), templates)
	httpHandler.RegisterRoutes(r)

	// 8. Schedule the daily winner reset
	if cfg.DailyReset != "" {
		c := cron.New()
		if _, err := c.AddFunc(cfg.DailyReset, wheelService.ResetWinners); err != nil {
			logger.Fatalf("Failed to schedule daily reset: %v", err)
		}
		c.Start()
		defer c.Stop()
		logger.Infof("Winner ledger resets on schedule %q", cfg.DailyReset)
	}

	// 9. Run the server
	server := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: r,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Infof("Server starting on http://localhost:%d", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("Failed to run server: %v", err)
	}
	logger.Info("Server stopped")
}
