package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"fader/config"
	"fader/logger"
)

// ObjectRemover is the slice of the object store the worker needs.
type ObjectRemover interface {
	RemoveObject(ctx context.Context, objectKey string) error
}

// Processor handles queued storage maintenance tasks.
type Processor struct {
	store ObjectRemover
}

// NewProcessor constructs a worker processor over an object store.
func NewProcessor(store ObjectRemover) *Processor {
	return &Processor{store: store}
}

// Handler registers the task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(SweepObjectTask, p.handleSweep)
	return mux
}

func (p *Processor) handleSweep(ctx context.Context, task *asynq.Task) error {
	var payload SweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to decode sweep payload: %w", err)
	}

	if err := p.store.RemoveObject(ctx, payload.ObjectKey); err != nil {
		logger.Warn("sweep attempt failed",
			logger.String("objectKey", payload.ObjectKey),
			logger.ErrorField(err))
		return err
	}

	logger.Info("swept orphaned object", logger.String("objectKey", payload.ObjectKey))
	return nil
}

// RunWorker starts the asynq server and blocks until it stops.
func RunWorker(cfg *config.Config, store ObjectRemover) error {
	server := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Concurrency: 4,
	})
	return server.Run(NewProcessor(store).Handler())
}
