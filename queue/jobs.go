package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"

	"fader/config"
)

const (
	// SweepObjectTask retries a stored-object deletion whose inline attempt
	// failed. Catalog rows are deleted first, so a leftover object is the
	// only inconsistency deletion can leave behind.
	SweepObjectTask = "storage:sweep_object"
)

// SweepPayload names the object the worker should remove.
type SweepPayload struct {
	ObjectKey string `json:"object_key"`
}

var (
	clientOnce sync.Once
	client     *asynq.Client
)

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisHost + ":" + cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// InitClient creates the shared enqueue client.
func InitClient(cfg *config.Config) {
	clientOnce.Do(func() {
		client = asynq.NewClient(redisOpt(cfg))
	})
}

// CloseClient releases the shared enqueue client.
func CloseClient() error {
	if client == nil {
		return nil
	}
	return client.Close()
}

// EnqueueSweep schedules an out-of-band deletion for an orphaned object.
func EnqueueSweep(ctx context.Context, objectKey string) error {
	if client == nil {
		return fmt.Errorf("queue client not initialized")
	}
	data, err := json.Marshal(SweepPayload{ObjectKey: objectKey})
	if err != nil {
		return fmt.Errorf("failed to encode sweep payload: %w", err)
	}
	task := asynq.NewTask(SweepObjectTask, data)
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue sweep task: %w", err)
	}
	return nil
}
