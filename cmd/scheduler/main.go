package main

import (
	"fmt"
	"os"

	"github.com/hibiken/asynq"

	"channelcast/internal/config"
	"channelcast/internal/logger"
	"channelcast/pkg/tasks"
)

// CommitSHA is set at build time via ldflags
var CommitSHA = "unknown"

const pruneSchedule = "@every 1h"

func main() {
	cfg, _ := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		&asynq.SchedulerOpts{Logger: log.SugaredLogger},
	)

	task, err := tasks.NewPruneGuestsTask()
	if err != nil {
		log.Fatal("could not create task", "error", err)
	}

	if _, err := scheduler.Register(pruneSchedule, task); err != nil {
		log.Fatal("could not register task", "error", err)
	}

	log.Info("scheduler starting", "commit", CommitSHA, "schedule", pruneSchedule)
	if err := scheduler.Run(); err != nil {
		log.Fatal("could not run scheduler", "error", err)
	}
}
