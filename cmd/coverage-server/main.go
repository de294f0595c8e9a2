// Command coverage-server rasterizes a survey once and serves the plan API
// for interactive re-parameterization.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/coverage.planner/internal/api"
	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/coverage/source"
	"github.com/banshee-data/coverage.planner/internal/version"
)

var (
	listen       = flag.String("listen", ":8080", "Listen address")
	configPath   = flag.String("config", "", "planner config JSON (default: "+config.DefaultConfigPath+")")
	boundaryPath = flag.String("boundary", "", "survey boundary GeoJSON")
	featuresPath = flag.String("features", "", "feature collection GeoJSON file")
	featuresURL  = flag.String("features-url", "", "URL of a feature collection GeoJSON")
	dbPath       = flag.String("db", "", "feature database (sqlite)")
	showVersion  = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	path := *configPath
	if path == "" {
		path = config.DefaultConfigPath
	}
	cfg, err := config.LoadPlannerConfig(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	in, err := source.Load(ctx, source.Options{
		FeaturesPath: *featuresPath,
		FeaturesURL:  *featuresURL,
		DBPath:       *dbPath,
		BoundaryPath: *boundaryPath,
	}, cfg)
	if err != nil {
		log.Fatalf("load inputs: %v", err)
	}
	planner, err := pipeline.NewPlanner(ctx, in.Boundary, in.Layers, cfg)
	if err != nil {
		log.Fatalf("rasterize: %v", err)
	}
	log.Printf("coverage-server %s: %d layers rasterized", version.String(), len(planner.Layers()))

	server := &http.Server{
		Addr:    *listen,
		Handler: api.LoggingMiddleware(api.NewServer(planner, cfg).ServeMux()),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()
	log.Printf("listening on %s", *listen)

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("Graceful shutdown complete")
}
