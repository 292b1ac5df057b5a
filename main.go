package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fleet-data/completion.report/internal/api"
	"github.com/fleet-data/completion.report/internal/config"
	"github.com/fleet-data/completion.report/internal/fsutil"
	"github.com/fleet-data/completion.report/internal/groups"
	"github.com/fleet-data/completion.report/internal/timeutil"
	"github.com/fleet-data/completion.report/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS
	devMode     = flag.Bool("dev", false, "Serve static files from ./static instead of the embedded copy")
	listen      = flag.String("listen", ":8080", "Listen address")
	dataDir     = flag.String("data-dir", ".", "Directory holding the group overlay file")
	configPath  = flag.String("config", "", "Optional dashboard config file (JSON)")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg := &config.DashboardConfig{}
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	osFS := fsutil.OSFileSystem{}
	if err := osFS.MkdirAll(*dataDir, 0755); err != nil {
		log.Fatalf("failed to create data directory %s: %v", *dataDir, err)
	}
	overlayPath := filepath.Join(*dataDir, cfg.GetOverlayFile())
	store := groups.NewStore(overlayPath, osFS)

	srv := api.NewServer(store, cfg, timeutil.RealClock{})

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", srv.ServeMux()))

	// read static files from the embedded filesystem in production or from
	// the local ./static in dev for easier iteration without restarting the
	// server
	var staticHandler http.Handler
	if *devMode {
		staticHandler = http.FileServer(http.Dir("./static"))
	} else {
		sub, err := fs.Sub(staticFiles, "static")
		if err != nil {
			log.Fatalf("failed to mount embedded static files: %v", err)
		}
		staticHandler = http.FileServer(http.FS(sub))
	}
	mux.Handle("/", staticHandler)

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(mux),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("completion dashboard %s listening on %s (overlay %s)",
			version.String(), *listen, overlayPath)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for context cancellation to shut down server
	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		os.Exit(1)
	}
	log.Printf("Graceful shutdown complete")
}
