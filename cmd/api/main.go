package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/jeffkershner/subconscious-demo/internal/api"
	"github.com/jeffkershner/subconscious-demo/internal/bus"
	"github.com/jeffkershner/subconscious-demo/internal/config"
	"github.com/jeffkershner/subconscious-demo/internal/queue"
	"github.com/jeffkershner/subconscious-demo/internal/store"
	"github.com/jeffkershner/subconscious-demo/internal/stream"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rdb, err := queue.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("[api] %v", err)
	}

	s := store.NewRedis(rdb)
	b := bus.NewRedis(rdb)
	bridge := stream.New(s, b, cfg.HeartbeatInterval, cfg.PollInterval)

	r := api.NewRouter(api.Deps{
		Store:                s,
		Queue:                queue.NewRedis(rdb),
		Bridge:               bridge,
		EstimatedWaitSeconds: cfg.EstimatedWaitSeconds,
	})

	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("[api] %v", err)
	}
}
