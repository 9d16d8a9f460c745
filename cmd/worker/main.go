package main

import (
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"channelcast/internal/config"
	"channelcast/internal/db"
	"channelcast/internal/logger"
	"channelcast/internal/worker"
	"channelcast/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

func main() {
	cfg, loaded := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if !loaded {
		log.Info("no .env file loaded, using process environment")
	}

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatal("database init failed", "error", err)
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			// Housekeeping only; generation jobs are consumed by the external worker.
			Concurrency: 1,
			Queues: map[string]int{
				"default": 1,
			},
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				delay := time.Minute << n
				if delay > time.Hour {
					delay = time.Hour
				}
				log.Warn("task failed, retrying", "type", task.Type(), "attempt", n+1, "delay", delay, "error", err)
				return delay
			},
			Logger: log.SugaredLogger,
		},
	)

	mux := asynq.NewServeMux()
	taskHandler := worker.NewTaskHandler(log)

	mux.HandleFunc(tasks.TypePruneGuests, taskHandler.HandlePruneGuestsTask)

	log.Info("worker starting", "commit", CommitSHA, "redis", cfg.RedisAddr)
	if err := srv.Run(mux); err != nil {
		log.Fatal("could not run worker", "error", err)
	}
}
