package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"absensi/internal/attendance"
	"absensi/internal/config"
	"absensi/internal/queue"
	"absensi/internal/roster"
	"absensi/internal/schedule"
	"absensi/internal/store"
	"absensi/internal/sweep"
)

const lockKey = "absensi:sweep:lock"

// Sweeper runs the absence-marking reconciliation on a fixed cadence, or
// on triggers enqueued by an external scheduler.
func main() {
	cfg := config.Load()
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	sweeper := sweep.New(
		schedule.NewRepository(db.Client),
		roster.NewRepository(db.Client),
		attendance.NewRepository(db.Client),
		cfg.Location(),
		sweep.WithLogger(log),
	)

	run := func() {
		// Lock out overlapping runs; the DB uniqueness constraint is the
		// real duplicate guard, the lock just avoids wasted work.
		held, err := redisClient.AcquireLock(ctx, lockKey, cfg.SweepInterval)
		if err != nil {
			log.Warnf("sweep lock unavailable, running without it: %v", err)
		} else if !held {
			log.Info("previous sweep still running, skipping")
			return
		}
		if held {
			defer func() {
				_ = redisClient.ReleaseLock(ctx, lockKey)
			}()
		}

		if _, err := sweeper.Run(ctx); err != nil {
			log.Errorf("sweep run failed: %v", err)
		}
	}

	if cfg.TriggerBackend == "queue" {
		q := queue.NewRedisQueue(redisClient.Client, "")
		triggers, err := q.Consume(ctx)
		if err != nil {
			log.Fatalf("trigger consume init failed: %v", err)
		}
		log.Info("sweeper started, waiting for triggers...")
		for t := range triggers {
			log.Infof("sweep triggered by %s", t.Source)
			run()
		}
	} else {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		log.Infof("sweeper started, running every %s", cfg.SweepInterval)
		run()
		for {
			select {
			case <-ticker.C:
				run()
			case <-ctx.Done():
				log.Info("sweeper stopped")
				return
			}
		}
	}
}
