package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"asset-manager/internal/assets"
	"asset-manager/internal/handlers"
	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"
	"asset-manager/internal/middleware"
	"asset-manager/internal/resize"
	"asset-manager/internal/startup"
	"asset-manager/internal/workers"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	startTime := time.Now()

	// Optional .env for local development; the environment wins.
	if err := godotenv.Load(); err == nil {
		logging.Debug("Loaded configuration from .env")
	}

	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Image pipeline
	vipsErr := resize.InitVips()
	startup.LogImagingInit(vipsErr)

	pool := workers.NewPool(workers.ForCPU(8))
	logging.Info("  Resize worker slots: %d", pool.Size())

	// Handlers
	h, err := handlers.New(config, pool)
	if err != nil {
		startup.LogFatal("Failed to initialize handlers: %v", err)
	}

	// Output watcher keeps the watcher metrics current
	startup.LogWatcherInit(config.OutputDir)
	watcher, err := assets.NewWatcher(config.OutputDir)
	if err != nil {
		logging.Warn("Output watcher unavailable: %v", err)
	} else {
		go watcher.Run()
	}

	// Router and middleware chain
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router, config.LogStaticFiles, config.LogHealthChecks)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogStaticFiles = config.LogStaticFiles
	loggingConfig.LogHealthChecks = config.LogHealthChecks

	var handler http.Handler = router
	handler = middleware.Compression(middleware.DefaultCompressionConfig())(handler)
	handler = middleware.Logger(loggingConfig)(handler)
	if config.MetricsEnabled {
		metrics.InitializeMetrics()
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics on a separate port so scrapes never mix with app traffic
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", metrics.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, watcher)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Gallery
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/gallery", h.GetGallery).Methods("GET")
	api.HandleFunc("/image_metadata", h.GetImageMetadata).Methods("GET")
	api.HandleFunc("/delete_images", h.DeleteImages).Methods("POST")
	api.HandleFunc("/open_folder", h.OpenFolder).Methods("GET")
	api.HandleFunc("/view_image", h.ViewImage).Methods("GET")

	// Tools
	api.HandleFunc("/download_zip", h.DownloadZip).Methods("POST")
	api.HandleFunc("/resize", h.ResizeImage).Methods("POST")

	// Prompt library and app state
	api.HandleFunc("/library", h.GetLibrary).Methods("GET")
	api.HandleFunc("/library", h.SaveLibrary).Methods("POST")
	api.HandleFunc("/load_state", h.LoadState).Methods("GET")
	api.HandleFunc("/save_state", h.SaveState).Methods("POST")
	api.HandleFunc("/log", h.AppendLog).Methods("POST")

	// Models
	api.HandleFunc("/checkpoints", h.GetCheckpoints).Methods("GET")
	api.HandleFunc("/loras", h.GetLoras).Methods("GET")
	api.HandleFunc("/models", h.GetAuxModels).Methods("GET")
	api.HandleFunc("/file", h.GetModelFile).Methods("GET")

	// Image serving by gallery reference
	r.HandleFunc("/view", h.View).Methods("GET")

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(config.StaticDir)))

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, watcher *assets.Watcher) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if watcher != nil {
		startup.LogShutdownStep("Stopping output watcher")
		watcher.Stop()
		startup.LogShutdownStepComplete("Output watcher stopped")
	}

	startup.LogShutdownStep("Shutting down image pipeline")
	resize.ShutdownVips()
	startup.LogShutdownStepComplete("Image pipeline stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
