package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/export"
	"github.com/david/proper-search/internal/models"
	"github.com/david/proper-search/internal/search"
)

func main() {
	query := flag.String("q", "", "free-text query")
	city := flag.String("city", "", "city filter")
	sortKey := flag.String("sort", "", "sort key")
	format := flag.String("format", "csv", "csv or xlsx")
	out := flag.String("out", "", "output file (default listings.<format>)")
	flag.Parse()

	if *format != "csv" && *format != "xlsx" {
		log.Fatalf("Unknown format %q", *format)
	}
	if *out == "" {
		*out = "listings." + *format
	}
	key, err := search.ParseSort(*sortKey)
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	f := models.Filters{City: *city}
	res, err := db.NewStore(pool).ListListings(ctx, search.BuildParams(*query, f, nil, key, db.MaxLimit))
	if err != nil {
		log.Fatalf("Failed to list listings: %v", err)
	}
	items := search.Evaluate(res.Listings, search.Compile(*query, f), key)

	file, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer file.Close()

	if *format == "xlsx" {
		err = export.WriteXLSX(file, items)
	} else {
		err = export.WriteCSV(file, items)
	}
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	log.Printf("Exported %d listings to %s", len(items), *out)
}
