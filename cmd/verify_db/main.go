package main

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	counts, missingCoords, err := db.NewStore(pool).StatusCounts(ctx)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	statuses := make([]string, 0, len(counts))
	total := 0
	for s, n := range counts {
		statuses = append(statuses, s)
		total += n
	}
	sort.Strings(statuses)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Status", "Listings"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s, counts[s]})
	}
	t.AppendFooter(table.Row{"Total", total})
	t.Render()

	if missingCoords > 0 {
		log.Printf("%d listings have no usable coordinates and will not appear on the map", missingCoords)
	}
}
