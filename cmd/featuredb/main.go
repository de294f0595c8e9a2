// Command featuredb manages the sqlite feature store: importing GeoJSON
// layers, listing and deleting them, and running schema migrations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/coverage.planner/internal/featuredb"
	"github.com/banshee-data/coverage.planner/internal/version"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: featuredb [-db path] <command> [args]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import <file.geojson> [layer]   Import features; layer applies to features without a layer property")
	fmt.Fprintln(os.Stderr, "  layers                          List stored layers")
	fmt.Fprintln(os.Stderr, "  delete <layer>                  Delete one layer")
	fmt.Fprintln(os.Stderr, "  migrate <action>                Schema migrations (see 'migrate help')")
	fmt.Fprintln(os.Stderr)
	flag.PrintDefaults()
}

func main() {
	dbPath := flag.String("db", "features.db", "path to sqlite db")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if args[0] == "migrate" {
		if err := featuredb.RunMigrateCommand(args[1:], *dbPath, os.Stdout); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		return
	}

	ctx := context.Background()
	store, err := featuredb.Open(*dbPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	switch args[0] {
	case "import":
		if len(args) < 2 {
			log.Fatal("usage: featuredb import <file.geojson> [layer]")
		}
		layer := ""
		if len(args) > 2 {
			layer = args[2]
		}
		data, err := os.ReadFile(args[1])
		if err != nil {
			log.Fatalf("read %s: %v", args[1], err)
		}
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			log.Fatalf("parse %s: %v", args[1], err)
		}
		n, err := store.ImportCollection(ctx, layer, fc)
		if err != nil {
			log.Fatalf("import: %v", err)
		}
		fmt.Printf("imported %d features\n", n)

	case "layers":
		layers, err := store.Layers(ctx)
		if err != nil {
			log.Fatalf("list layers: %v", err)
		}
		for _, l := range layers {
			fmt.Printf("%-20s %-12s %d\n", l.Name, l.Kind, l.Features)
		}

	case "delete":
		if len(args) < 2 {
			log.Fatal("usage: featuredb delete <layer>")
		}
		n, err := store.DeleteLayer(ctx, args[1])
		if err != nil {
			log.Fatalf("delete: %v", err)
		}
		fmt.Printf("deleted %d features from %s\n", n, args[1])

	default:
		usage()
		os.Exit(2)
	}
}
