// The dispatcher runs batch dispatch cycles: select eligible prospects,
// compute humanized delays, submit batches to the workflow engine, and
// record verified status transitions. By default it runs one cycle and
// exits (for OS cron); -loop keeps it running on a fixed interval with an
// operational HTTP endpoint.
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

	"github.com/innovareai/outreach-dispatcher/internal/api"
	"github.com/innovareai/outreach-dispatcher/internal/cadence"
	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/dispatch"
	"github.com/innovareai/outreach-dispatcher/internal/limiter"
	"github.com/innovareai/outreach-dispatcher/internal/pkg/distlock"
	"github.com/innovareai/outreach-dispatcher/internal/scheduler"
	"github.com/innovareai/outreach-dispatcher/internal/store"
)

const campaignLockTTL = 15 * time.Minute

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the configuration file")
		dryRun     = flag.Bool("dry-run", false, "log submissions instead of calling the webhook")
		loop       = flag.Bool("loop", false, "run continuously instead of one cycle")
		mode       = flag.String("mode", "batch", "dispatch mode: batch (submit now) or schedule (stamp send times for the poller)")
	)
	flag.Parse()

	if *mode != "batch" && *mode != "schedule" {
		log.Fatalf("Unknown mode %q (want batch or schedule)", *mode)
	}

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
	log.Printf("Connected to database")

	var rdb *redis.Client
	if cfg.Redis.Enabled() {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid redis URL: %v", err)
		}
		rdb = redis.NewClient(opts)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		cancel()
		defer rdb.Close()
		log.Printf("Connected to redis")
	} else {
		log.Printf("Redis not configured, using PostgreSQL for locks and allowance counting")
	}

	locks := func(key string) distlock.DistLock {
		return distlock.New(rdb, st.DB(), key, campaignLockTTL)
	}

	sched := scheduler.New(
		st,
		dispatch.NewClient(cfg.Webhook, *dryRun),
		limiter.New(rdb, st),
		locks,
		cadence.New(cadence.NewRandSource()),
		cfg.Scheduler,
	)

	runCycle := sched.RunCycle
	if *mode == "schedule" {
		runCycle = sched.RunScheduleCycle
	}

	if !*loop {
		summary, err := runCycle(ctx)
		if err != nil {
			log.Printf("Cycle failed: %v", err)
			os.Exit(1)
		}
		if summary.Failed() {
			os.Exit(1)
		}
		return
	}

	var opsServer *api.Server
	if cfg.HTTP.Addr != "" {
		opsServer = api.NewServer(cfg.HTTP.Addr)
		opsServer.Start()
	}

	log.Printf("Dispatcher loop started (mode=%s, interval=%s)", *mode, cfg.Scheduler.PollInterval())
	ticker := time.NewTicker(cfg.Scheduler.PollInterval())
	defer ticker.Stop()

	failed := false
	for {
		summary, err := runCycle(ctx)
		if err != nil {
			log.Printf("Cycle failed: %v", err)
			failed = true
		} else {
			if summary.Failed() {
				failed = true
			}
			if opsServer != nil {
				opsServer.Record(summary)
			}
		}

		select {
		case <-ctx.Done():
			log.Printf("Shutting down")
			if opsServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				opsServer.Shutdown(shutdownCtx)
				cancel()
			}
			if failed {
				os.Exit(1)
			}
			return
		case <-ticker.C:
		}
	}
}
