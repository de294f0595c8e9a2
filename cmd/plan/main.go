// Command plan computes coverage paths for a survey area and writes them
// as GeoJSON, optionally with a PNG of the heatmap.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/coverage.planner/internal/config"
	"github.com/banshee-data/coverage.planner/internal/coverage/pipeline"
	"github.com/banshee-data/coverage.planner/internal/coverage/render"
	"github.com/banshee-data/coverage.planner/internal/coverage/source"
	"github.com/banshee-data/coverage.planner/internal/fsutil"
	"github.com/banshee-data/coverage.planner/internal/version"
)

func main() {
	var (
		configPath   string
		boundaryPath string
		featuresPath string
		featuresURL  string
		dbPath       string
		outPath      string
		pngPath      string
		showVersion  bool
	)
	flag.StringVar(&configPath, "config", "", "planner config JSON (default: "+config.DefaultConfigPath+")")
	flag.StringVar(&boundaryPath, "boundary", "", "survey boundary GeoJSON (default: boundary feature of -features)")
	flag.StringVar(&featuresPath, "features", "", "feature collection GeoJSON file")
	flag.StringVar(&featuresURL, "features-url", "", "URL of a feature collection GeoJSON")
	flag.StringVar(&dbPath, "db", "", "feature database (sqlite)")
	flag.StringVar(&outPath, "out", "plan.geojson", "output GeoJSON path (- for stdout)")
	flag.StringVar(&pngPath, "png", "", "optional heatmap image path (.png, .svg or .pdf)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := loadConfig(configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fs := fsutil.OSFileSystem{}
	in, err := source.Load(ctx, source.Options{
		FeaturesPath: featuresPath,
		FeaturesURL:  featuresURL,
		DBPath:       dbPath,
		BoundaryPath: boundaryPath,
		FS:           fs,
	}, cfg)
	if err != nil {
		log.Fatalf("load inputs: %v", err)
	}

	res, err := pipeline.Plan(ctx, in.Boundary, in.Layers, cfg)
	if err != nil {
		log.Fatalf("plan: %v", err)
	}

	data, err := json.MarshalIndent(res.FeatureCollection(), "", "  ")
	if err != nil {
		log.Fatalf("encode geojson: %v", err)
	}
	if outPath == "-" {
		os.Stdout.Write(append(data, '\n'))
	} else if err := fs.WriteFile(outPath, data, 0644); err != nil {
		log.Fatalf("write %s: %v", outPath, err)
	}

	if pngPath != "" {
		if err := render.Save(fs, pngPath, res, render.DefaultOptions()); err != nil {
			log.Fatalf("render: %v", err)
		}
	}

	s := res.Summary()
	log.Printf("run %s: %d regions, %d rings, %d paths, %.1f m total", s.RunID, s.Regions, s.Rings, s.Paths, s.TotalLength)
}

// loadConfig reads path, or the default config file when path is empty.
// A missing default file falls back to the built-in defaults.
func loadConfig(path string) *config.PlannerConfig {
	if path == "" {
		cfg, err := config.LoadPlannerConfig(config.DefaultConfigPath)
		if err != nil {
			log.Printf("no usable %s (%v), using built-in defaults", config.DefaultConfigPath, err)
			return config.EmptyPlannerConfig()
		}
		return cfg
	}
	cfg, err := config.LoadPlannerConfig(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}
