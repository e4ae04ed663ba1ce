package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"car_tracker/cache"
	"car_tracker/config"
	"car_tracker/httputil"
	"car_tracker/logging"
	"car_tracker/models"
	"car_tracker/normalizer"
	"car_tracker/scheduler"
	"car_tracker/scraper"
	"car_tracker/services"
	"car_tracker/storage"
	"car_tracker/workers"
)

var (
	track     = flag.Bool("track", false, "Track one search and exit")
	location  = flag.String("location", "Faro Airport", "Pickup location for -track")
	start     = flag.String("start", "", "Pickup date (YYYY-MM-DD), default tomorrow")
	pickup    = flag.String("time", "10:00", "Pickup time (HH:MM)")
	end       = flag.String("end", "", "Return date (YYYY-MM-DD)")
	days      = flag.Int("days", 0, "Rental length in days when -end is not given")
	lang      = flag.String("lang", "pt", "Upstream language")
	currency  = flag.String("currency", "EUR", "Upstream currency")
	priority  = flag.String("priority", "", "Supplier to list first within its category")
	rawURL    = flag.String("url", "", "Track an upstream results URL and exit")
	bulk      = flag.Bool("bulk", false, "Run a bulk search and exit")
	locations = flag.String("locations", "", "Comma-separated locations for -bulk, default scheduled locations")
	durations = flag.String("durations", "", "Comma-separated durations in days for -bulk")
	runNow    = flag.Bool("run-now", false, "In daemon mode, run the scheduled bulk search once at startup")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logFile, err := logging.Setup(cfg.LogPath)
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting car_tracker...")
	log.Printf("Loaded %d locations (%d scheduled)", len(cfg.Locations), len(cfg.ScheduledLocations()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := httputil.NewLimiter(cfg.Fetch.RPS)
	clients := httputil.NewClients(cfg, limiter)
	if cfg.Proxy.Enabled() {
		log.Printf("Proxy: %s (%s)", cfg.Proxy.Service, cfg.Proxy.Endpoint)
	}

	var archiver logging.Archiver
	if cfg.S3.Enabled() {
		s3, err := storage.NewS3Archiver(ctx, cfg.S3)
		if err != nil {
			log.Printf("Warning: S3 archiving disabled: %v", err)
		} else {
			archiver = s3
			log.Printf("Archiving debug pages to s3://%s/%s", cfg.S3.Bucket, s3.Key(""))
		}
	}
	var dumper *logging.DebugDumper
	if cfg.DebugDir != "" || archiver != nil {
		dumper = logging.NewDebugDumper(cfg.DebugDir, archiver)
	}

	fetcher := scraper.NewFetcher(scraper.NewStrategies(cfg, clients, limiter), cfg.Fetch.Budget, dumper)
	defer fetcher.Close()

	norm := normalizer.New(cfg.Pricing, normalizer.NewFXProvider(cfg.FX, clients.API))
	pipeline := services.NewPipeline(fetcher, nil, norm)

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	sinks := storage.MultiSink{sqliteStore}
	if cfg.DBURL != "" {
		pgStore, err := storage.NewPostgresStore(ctx, cfg.DBURL)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pgStore.Close()
		log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DBURL))
		sinks = append(sinks, pgStore)
	}

	builder := scraper.NewRequestBuilder(scraper.NewLocationTable(cfg.Locations))
	tracker := services.NewTracker(builder, pipeline, cache.New(cfg.Cache), sinks)
	orchestrator := workers.NewBulkOrchestrator(tracker, cfg.Bulk, sqliteStore)

	switch {
	case *rawURL != "":
		res, err := tracker.TrackURL(ctx, *rawURL, *priority)
		if err != nil {
			log.Fatalf("Track failed: %v", err)
		}
		printJSON(res)
		return

	case *track:
		p := services.TrackParams{
			Location:         *location,
			StartDate:        startDate(),
			StartTime:        *pickup,
			EndDate:          *end,
			Days:             *days,
			Lang:             *lang,
			Currency:         *currency,
			SupplierPriority: *priority,
		}
		if p.EndDate == "" && p.Days == 0 {
			p.Days = 1
		}
		res, err := tracker.TrackListings(ctx, p)
		if err != nil {
			log.Fatalf("Track failed: %v", err)
		}
		printJSON(res)
		return

	case *bulk:
		startAt, err := time.Parse("2006-01-02", startDate())
		if err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
		locs := splitList(*locations)
		if len(locs) == 0 {
			locs = cfg.ScheduledLocations()
		}
		if len(locs) == 0 {
			log.Fatal("No locations: pass -locations or mark locations as scheduled")
		}
		res := orchestrator.BulkTrackListings(ctx, workers.BulkRequest{
			Locations:        locs,
			Durations:        parseDurations(*durations),
			Start:            startAt,
			PickupTime:       *pickup,
			Lang:             *lang,
			Currency:         *currency,
			SupplierPriority: *priority,
		})
		printJSON(res)
		return
	}

	// Daemon mode
	sched := scheduler.New(cfg, orchestrator)
	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	if *runNow {
		go sched.TriggerNow(ctx)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	sched.Stop()
	log.Println("Goodbye!")
}

func startDate() string {
	if *start != "" {
		return *start
	}
	return time.Now().AddDate(0, 0, 1).Format("2006-01-02")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurations(s string) []int {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			log.Printf("Ignoring invalid duration %q", part)
			continue
		}
		out = append(out, n)
	}
	return out
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	if res, ok := v.(models.TrackResult); ok && len(res.Items) == 0 {
		log.Printf("No listings: %s", res.Note)
	}
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	// Simple mask - find :// and mask until @
	begin := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			begin = i + 3
			break
		}
	}
	if begin == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := begin; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
