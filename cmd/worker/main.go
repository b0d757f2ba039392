package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jeffkershner/subconscious-demo/internal/bus"
	"github.com/jeffkershner/subconscious-demo/internal/config"
	"github.com/jeffkershner/subconscious-demo/internal/queue"
	"github.com/jeffkershner/subconscious-demo/internal/store"
	"github.com/jeffkershner/subconscious-demo/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := queue.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("[worker] %v", err)
	}
	log.Println("[worker] connected to redis")

	plan := worker.DefaultPlan()
	if cfg.PlanPath != "" {
		plan, err = worker.LoadPlan(cfg.PlanPath)
		if err != nil {
			log.Fatalf("[worker] %v", err)
		}
		log.Printf("[worker] loaded plan from %s", cfg.PlanPath)
	}

	warmingWait := cfg.EstimatedWaitSeconds - 5
	if warmingWait < 0 {
		warmingWait = 0
	}

	opts := worker.Options{
		QueuedWaitSeconds:  cfg.EstimatedWaitSeconds,
		WarmingWaitSeconds: warmingWait,
		ClaimDelay:         cfg.ClaimDelay,
		WarmupMin:          cfg.WarmupMin,
		WarmupMax:          cfg.WarmupMax,
		StepDelayMin:       cfg.StepDelayMin,
		StepDelayMax:       cfg.StepDelayMax,
		ReconnectBackoff:   cfg.ReconnectBackoff,
	}

	w := worker.New(store.NewRedis(rdb), bus.NewRedis(rdb), queue.NewRedis(rdb), worker.NewPlanSource(plan), opts)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[worker] %v", err)
	}
	log.Println("[worker] shutting down")
}
