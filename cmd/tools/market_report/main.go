package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/david/proper-search/internal/config"
	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/market"
	"github.com/david/proper-search/internal/models"
	"github.com/david/proper-search/internal/search"
	"github.com/jedib0t/go-pretty/v6/table"
)

func main() {
	query := flag.String("q", "", "free-text query")
	city := flag.String("city", "", "city filter")
	propertyType := flag.String("type", "", "property type filter")
	limit := flag.Int("limit", 0, "maximum listings (0 uses the configured default)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	f := models.Filters{City: *city, PropertyType: models.PropertyType(*propertyType)}
	if f.PropertyType != "" && !f.PropertyType.Valid() {
		log.Fatalf("Unknown property type %q", *propertyType)
	}
	if *limit <= 0 {
		*limit = cfg.Tunables.Search.DefaultLimit
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	res, err := db.NewStore(pool).ListListings(ctx, search.BuildParams(*query, f, nil, search.SortPriceDesc, *limit))
	if err != nil {
		log.Fatalf("Failed to list listings: %v", err)
	}
	items := search.Evaluate(res.Listings, search.Compile(*query, f), search.SortPriceDesc)

	st := market.Compute(items)
	if st == nil {
		fmt.Println("No listings match.")
		return
	}

	summary := table.NewWriter()
	summary.SetOutputMirror(os.Stdout)
	summary.AppendHeader(table.Row{"Metric", "Avg", "Median", "Min", "Max"})
	summary.AppendRow(summaryRow("Price", &st.Price))
	summary.AppendRow(summaryRow("Sqft", &st.Sqft))
	summary.AppendRow(summaryRow("$/Sqft", st.PricePerSqft))
	summary.AppendRow(summaryRow("Days on market", st.DaysOnMarket))
	summary.AppendFooter(table.Row{"Listings", st.Count, "", "", ""})
	summary.Render()

	beds := table.NewWriter()
	beds.SetOutputMirror(os.Stdout)
	beds.AppendHeader(table.Row{"Beds", "Count", "Avg Price"})
	for _, b := range st.Bedrooms {
		beds.AppendRow(table.Row{b.Label, b.Count, fmt.Sprintf("%.0f", b.AvgPrice)})
	}
	beds.Render()

	bands := table.NewWriter()
	bands.SetOutputMirror(os.Stdout)
	bands.AppendHeader(table.Row{"Price Band", "Count"})
	for _, b := range st.PriceBands {
		bands.AppendRow(table.Row{b.Label, b.Count})
	}
	bands.Render()

	types := make([]string, 0, len(st.PropertyTypes))
	for k := range st.PropertyTypes {
		types = append(types, k)
	}
	sort.Strings(types)
	for _, k := range types {
		fmt.Printf("%s: %d\n", k, st.PropertyTypes[k])
	}
	fmt.Printf("absentee: %d, highEquity: %d, vacant: %d\n",
		st.Tags[models.TagAbsentee], st.Tags[models.TagHighEquity], st.Tags[models.TagVacant])
}

func summaryRow(name string, s *market.Summary) table.Row {
	if s == nil {
		return table.Row{name, "-", "-", "-", "-"}
	}
	return table.Row{name, fmt.Sprintf("%.2f", s.Avg), fmt.Sprintf("%.2f", s.Median), fmt.Sprintf("%.2f", s.Min), fmt.Sprintf("%.2f", s.Max)}
}
