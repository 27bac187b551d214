package storage

import (
	"context"

	"github.com/on-the-ground/reducks_go/ducks/internal/handlers"
	"github.com/on-the-ground/reducks_go/ducks/log"
)

type writeRequest struct {
	storage Storage
	key     string
	value   any
}

func (w writeRequest) PartitionKey() string {
	return w.key
}

// Writer applies writes on key-partitioned workers. Writes to one key keep their order.
// Failed writes are reported through the log handler of the context given to NewWriter.
type Writer struct {
	queue *handlers.Queue[writeRequest]
}

func NewWriter(ctx context.Context, numWorkers, bufferSize int) *Writer {
	return &Writer{
		queue: handlers.NewPartitionedQueue(
			ctx,
			handlers.NewScopeConfig(bufferSize, numWorkers),
			func(ctx context.Context, w writeRequest) {
				if err := w.storage.Set(ctx, w.key, w.value); err != nil {
					log.Effect(ctx, log.LevelError, "failed to persist state", map[string]any{
						"key":   w.key,
						"error": err.Error(),
					})
				}
			},
		),
	}
}

// Write queues value for key. It reports false if the write could not be queued.
func (w *Writer) Write(ctx context.Context, st Storage, key string, value any) bool {
	return w.queue.Send(ctx, writeRequest{storage: st, key: key, value: value})
}

// Close waits for queued writes to finish.
func (w *Writer) Close() {
	w.queue.Close()
}
