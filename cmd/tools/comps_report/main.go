package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/david/proper-search/internal/comps"
	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	idFlag := flag.String("id", "", "subject listing ID")
	radius := flag.Float64("radius", 0, "search radius in miles (0 uses the configured default)")
	tolerance := flag.Float64("tolerance", 0, "square footage tolerance as a fraction (0 uses the configured default)")
	limit := flag.Int("limit", 0, "maximum comps (0 uses the configured default)")
	flag.Parse()

	id, err := uuid.Parse(*idFlag)
	if err != nil {
		log.Fatal("Please provide a listing ID using -id")
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

	store := db.NewStore(pool)
	subject, err := store.GetListing(ctx, id)
	if err != nil {
		log.Fatalf("Failed to load listing %s: %v", id, err)
	}

	params := cfg.Tunables.Comps
	if *radius > 0 {
		params.RadiusMiles = *radius
	}
	if *tolerance > 0 {
		params.SqftTolerance = *tolerance
	}
	if *limit > 0 {
		params.Limit = *limit
	}

	res, err := comps.NewEngine(store).Run(ctx, *subject, params)
	if err != nil {
		log.Fatalf("Comps failed: %v", err)
	}

	fmt.Printf("%s, %s (%.0f sqft)\n", subject.Address, subject.City, subject.Sqft)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Address", "Sqft", "Sold Price", "$/Sqft", "Miles", "Sold"})
	for _, c := range res.Comps {
		soldPrice, ppsf, soldOn := "-", "-", "-"
		if c.SoldPrice != nil {
			soldPrice = fmt.Sprintf("%.0f", *c.SoldPrice)
			if c.Sqft > 0 {
				ppsf = fmt.Sprintf("%.2f", *c.SoldPrice/c.Sqft)
			}
		}
		if c.SoldDate != nil {
			soldOn = c.SoldDate.Format("2006-01-02")
		}
		t.AppendRow(table.Row{c.Address, c.Sqft, soldPrice, ppsf, fmt.Sprintf("%.2f", c.DistanceMiles), soldOn})
	}
	t.Render()

	if res.ARV == nil {
		fmt.Println("ARV: insufficient data")
		return
	}
	fmt.Printf("ARV: %.0f (avg $/sqft %.2f, median %.2f, %d comps)\n",
		res.ARV.EstimatedARV, res.ARV.AvgPricePerSqft, res.ARV.MedianPricePerSqft, res.ARV.CompCount)
}
