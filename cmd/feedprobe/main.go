// Command feedprobe fetches provider feeds once and reports how their
// records decode and normalize, without touching the cache or the archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	"property-feeds/config"
	"property-feeds/models"
	"property-feeds/scraper/feed"
	"property-feeds/services"
	"property-feeds/utils"
)

func main() {
	providersFile := flag.String("config", "", "Provider YAML file. Defaults to PROVIDERS_FILE")
	only := flag.String("provider", "", "Probe only the named provider")
	insecure := flag.Bool("insecure", false, "Skip TLS certificate verification (debugging only)")
	timeout := flag.Duration("timeout", time.Minute, "Overall probe timeout")
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLoggerLevel(cfg.LogLevel)
	defer logger.Sync()

	path := *providersFile
	if path == "" {
		path = cfg.ProvidersFile
	}
	providers, err := config.LoadProviders(path)
	if err != nil {
		logger.Error("Failed to load providers: %v", err)
		os.Exit(1)
	}

	if *insecure {
		logger.Warn("!!! TLS certificate verification is DISABLED for this probe !!!")
	}

	opts := feed.Options{
		UserAgent:          cfg.UserAgent,
		MaxAttempts:        cfg.MaxRetries,
		RetryBaseDelay:     cfg.RetryBaseDelay,
		ChromeBin:          cfg.ChromeBin,
		InsecureSkipVerify: *insecure,
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	normalizer := services.NewNormalizer(logger)
	probed := 0
	failed := false
	for _, p := range providers {
		if *only != "" && p.Name != *only {
			continue
		}
		probed++
		if err := probe(ctx, p, opts, normalizer, logger); err != nil {
			logger.Error("[probe] %s: %v", p.Name, err)
			failed = true
		}
	}

	if probed == 0 {
		logger.Error("No provider named %q in %s", *only, path)
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

func probe(ctx context.Context, p config.Provider, opts feed.Options, n *services.Normalizer, logger *utils.Logger) error {
	f, err := feed.New(p, opts, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	doc, err := f.Fetch(ctx)
	if err != nil {
		return err
	}

	schemas := make(map[string]int)
	for _, r := range doc.Listings {
		schemas[r.Schema.String()]++
	}

	var normalized int
	var drops []*models.RecordDropped
	drops = append(drops, doc.Dropped...)
	for _, r := range doc.Listings {
		if _, err := n.NormalizeOne(r); err != nil {
			var d *models.RecordDropped
			if errors.As(err, &d) {
				drops = append(drops, d)
			}
			continue
		}
		normalized++
	}

	fmt.Println()
	fmt.Printf("  %s  (%s via %s, %v)\n", p.Name, p.Format, p.Transport, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  %s\n", p.Endpoint)
	fmt.Println("  ─────────────────────────────────────────")
	fmt.Printf("  Decoded    : %d\n", len(doc.Listings))
	fmt.Printf("  Normalized : %d\n", normalized)
	fmt.Printf("  Dropped    : %d\n", len(drops))

	if len(schemas) > 0 {
		fmt.Println("  Schemas:")
		for _, name := range sortedKeys(schemas) {
			fmt.Printf("    %-12s %d\n", name, schemas[name])
		}
	}

	if len(drops) > 0 {
		reasons := make(map[string]int)
		for _, d := range drops {
			reasons[d.Reason]++
		}
		fmt.Println("  Drop reasons:")
		for _, reason := range sortedKeys(reasons) {
			fmt.Printf("    %-40s %d\n", reason, reasons[reason])
		}
		for _, d := range drops {
			logger.Debug("[probe] %v", d)
		}
	}
	return nil
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
