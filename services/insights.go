package services

import (
	"fmt"
	"sort"
	"strings"

	"property-feeds/models"
	"property-feeds/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(props []*models.Property) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByRegion: make(map[models.Region]int),
		ListingsByTown:   make(map[string]int),
		ListingsByType:   make(map[string]int),
	}

	if len(props) == 0 {
		return report
	}

	report.TotalListings = len(props)

	var priced []*models.Property
	for _, p := range props {
		if p.Price != nil {
			priced = append(priced, p)
		}
		if p.NearGolf {
			report.NearGolf++
		}
		if p.Region != "" {
			report.ListingsByRegion[p.Region]++
		}
		if p.Town != "" {
			report.ListingsByTown[p.Town]++
		}
		if p.PropertyType != "" {
			report.ListingsByType[p.PropertyType]++
		}
	}

	// Price stats (only listings with a known price)
	report.PricedListings = len(priced)
	if len(priced) > 0 {
		report.MinPrice = *priced[0].Price
		report.MaxPrice = *priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, p := range priced {
			price := *p.Price
			total += price
			if price < report.MinPrice {
				report.MinPrice = price
			}
			if price > report.MaxPrice {
				report.MaxPrice = price
				report.MostExpensive = p
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MinPrice = round2(report.MinPrice)
		report.MaxPrice = round2(report.MaxPrice)
	}

	s.logger.Debug("[insights] %d listings, %d priced", report.TotalListings, report.PricedListings)
	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 PROPERTY FEED INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Total listings   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Priced listings  : \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Printf("  Near golf        : \033[1m%d\033[0m\n", r.NearGolf)
	fmt.Println()

	// Price Stats
	fmt.Printf("\033[1;33m  Price Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Printf("  Average price : \033[1;32m€%.0f\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m€%.0f\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m€%.0f\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	// Most Expensive
	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  Town  : %s\n", r.MostExpensive.Town)
		fmt.Printf("  Price : \033[1;31m€%.0f\033[0m\n", *r.MostExpensive.Price)
		fmt.Println()
	}

	printCounts("Listings by Region", regionCounts(r.ListingsByRegion), thin)
	printCounts("Listings by Type", r.ListingsByType, thin)
	printCounts("Listings by Town", r.ListingsByTown, thin)

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func printCounts(heading string, counts map[string]int, thin string) {
	fmt.Printf("\033[1;33m  %s\033[0m\n", heading)
	fmt.Printf("  %s\n", thin)
	if len(counts) == 0 {
		fmt.Printf("  No data\n\n")
		return
	}

	// Sort by count descending, then name
	type entry struct {
		name  string
		count int
	}
	var entries []entry
	for name, cnt := range counts {
		entries = append(entries, entry{name, cnt})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	for _, e := range entries {
		bar := strings.Repeat("█", min(e.count, 40))
		fmt.Printf("  %-30s %s (%d)\n", truncate(e.name, 28), bar, e.count)
	}
	fmt.Println()
}

func regionCounts(in map[models.Region]int) map[string]int {
	out := make(map[string]int, len(in))
	for r, n := range in {
		out[string(r)] = n
	}
	return out
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
