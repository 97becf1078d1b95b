// The poller is the fine-grained dispatch process: each tick submits at
// most one prospect whose scheduled send time has arrived. By default it
// runs one tick and exits (for once-per-minute OS cron); -loop keeps it
// ticking on the configured interval.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/dispatch"
	"github.com/innovareai/outreach-dispatcher/internal/limiter"
	"github.com/innovareai/outreach-dispatcher/internal/scheduler"
	"github.com/innovareai/outreach-dispatcher/internal/store"
	"github.com/innovareai/outreach-dispatcher/internal/template"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the configuration file")
		dryRun     = flag.Bool("dry-run", false, "log submissions instead of calling the webhook")
		loop       = flag.Bool("loop", false, "run continuously instead of one tick")
	)
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
	}

	poller := scheduler.NewPoller(
		st,
		dispatch.NewClient(cfg.Webhook, *dryRun),
		limiter.New(rdb, st),
		template.NewService(),
		cfg.Scheduler,
	)

	if !*loop {
		if err := poller.Tick(ctx); err != nil {
			log.Printf("Tick failed: %v", err)
			poller.Wait()
			os.Exit(1)
		}
		poller.Wait()
		return
	}

	log.Printf("Poller loop started (interval=%s)", cfg.Scheduler.PollInterval())
	ticker := time.NewTicker(cfg.Scheduler.PollInterval())
	defer ticker.Stop()

	for {
		if err := poller.Tick(ctx); err != nil {
			log.Printf("Tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Printf("Shutting down, waiting for in-flight submissions")
			poller.Wait()
			return
		case <-ticker.C:
		}
	}
}
