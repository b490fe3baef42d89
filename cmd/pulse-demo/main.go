// Package main implements a scripted demo session for the Pulse analytics
// facade: it wires a store and a sink set from flags, replays a short app
// session, and dumps the runtime counters.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/arkilian/pulse"
	"github.com/arkilian/pulse/pkg/types"
	"github.com/arkilian/pulse/sink"
	"github.com/arkilian/pulse/sink/console"
	"github.com/arkilian/pulse/sink/s3export"
	"github.com/arkilian/pulse/sink/spool"
	"github.com/arkilian/pulse/sink/webhook"
	"github.com/arkilian/pulse/store"
)

func main() {
	var (
		configFile string
		dbPath     string
		spoolDir   string
		webhookURL string
		s3Bucket   string
		showHelp   bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dbPath, "db", "", "Path to the SQLite property store (in-memory store when empty)")
	flag.StringVar(&spoolDir, "spool-dir", "", "Directory for the on-disk spool sink")
	flag.StringVar(&webhookURL, "webhook-url", "", "Endpoint for the webhook sink")
	flag.StringVar(&s3Bucket, "s3-bucket", "", "Bucket for the S3 export sink")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Pulse demo - scripted analytics session\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pulse-demo [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pulse-demo --db ./pulse.db --spool-dir ./spool\n")
		fmt.Fprintf(os.Stderr, "  pulse-demo --webhook-url http://localhost:8080/events\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PULSE_INTERNAL_PREFIX    Prefix for library-generated names\n")
		fmt.Fprintf(os.Stderr, "  PULSE_MANUAL_PREFIX      Prefix for manually issued names\n")
		fmt.Fprintf(os.Stderr, "  PULSE_ANALYTICS_VERSION  Event taxonomy revision\n")
		fmt.Fprintf(os.Stderr, "  PULSE_START_TIMEOUT      Per-sink startup timeout\n")
		fmt.Fprintf(os.Stderr, "  PULSE_INSTALL_TYPE       Install type override (store, debug, sideload)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	_ = godotenv.Load()

	cfg := pulse.DefaultConfig()
	if configFile != "" {
		loaded, err := pulse.LoadConfig(configFile)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	pulse.LoadConfigFromEnv(cfg)

	st, closeStore, err := buildStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer closeStore()

	sinks := buildSinks(spoolDir, webhookURL, s3Bucket)

	analytics, err := pulse.New(cfg, st, sinks...)
	if err != nil {
		log.Fatalf("failed to create facade: %v", err)
	}
	defer analytics.Close()

	analytics.Start(context.Background())
	runSession(analytics)
	dumpStats(analytics)
}

// buildStore opens the SQLite store at path, or an in-memory one when no
// path is given.
func buildStore(path string) (store.Store, func(), error) {
	if path == "" {
		return store.NewMemory(), func() {}, nil
	}

	sqlite, err := store.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	cached := store.NewCached(sqlite)
	return cached, func() { sqlite.Close() }, nil
}

// buildSinks assembles the sink set for the session. The console sink is
// always present.
func buildSinks(spoolDir, webhookURL, s3Bucket string) []sink.Sink {
	sinks := []sink.Sink{console.New(nil)}

	if spoolDir != "" {
		sinks = append(sinks, spool.New(spool.Config{Dir: spoolDir}))
	}
	if webhookURL != "" {
		sinks = append(sinks, webhook.New(webhook.Config{
			URL:    webhookURL,
			APIKey: os.Getenv("PULSE_WEBHOOK_API_KEY"),
		}))
	}
	if s3Bucket != "" {
		sinks = append(sinks, s3export.New(s3export.Config{
			Bucket:   s3Bucket,
			Region:   os.Getenv("AWS_REGION"),
			Endpoint: os.Getenv("PULSE_S3_ENDPOINT"),
		}))
	}
	return sinks
}

// runSession replays a short scripted app session.
func runSession(a *pulse.Analytics) {
	a.TrackView(pulse.View{Name: "home", Kind: "content", StuckAfter: 2 * time.Second})
	a.TrackButtonTap("open_settings", nil)

	a.TrackView(pulse.View{Name: "paywall", Kind: "paywall", Funnel: "upgrade"})
	a.TrackPaywallShow("settings", "annual_offer")
	a.TrackEngagement("scroll", map[string]types.Value{
		"depth": types.Int32(3),
	})
	a.TrackPaywallDismiss("settings", "maybe_later")

	a.SetUserID("demo-user")
	plan := types.String("free")
	a.Set(types.NewProperty("plan"), &plan)

	a.OnBackground()
}

// dumpStats prints the runtime counters the session produced.
func dumpStats(a *pulse.Analytics) {
	snap := a.Stats()
	fmt.Printf("\nqueued events: %d, queued properties: %d (time to ready %v)\n",
		snap.QueuedEvents, snap.QueuedProperties, snap.TimeToReady)
	for _, s := range snap.Sinks {
		fmt.Printf("sink %s: delivered %d, failed %d\n", s.Sink, s.Delivered, s.Failed)
	}
	for name, id := range a.PseudoIDs() {
		fmt.Printf("pseudo id (%s): %s\n", name, id)
	}
}
