package worker

import (
	"context"
	"errors"
	"io"
	"time"

	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/queue"
	"shopcsv/internal/report"
	"shopcsv/internal/worker/processors"

	"github.com/segmentio/kafka-go"
)

// Processor handles one decoded event.
type Processor interface {
	Process(ctx context.Context, event queue.Event) error
}

const (
	retryDelay    = time.Second
	maxRetryDelay = 30 * time.Second
)

type Worker struct {
	config     *config.Config
	logger     *logger.Logger
	reader     *kafka.Reader
	processor  Processor
	retryDelay time.Duration
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, generator *report.Generator) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        queue.SplitBrokers(cfg.KafkaBrokers),
		GroupID:        cfg.KafkaGroupID,
		Topic:          cfg.KafkaTopic,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,
	})

	return &Worker{
		config:     cfg,
		logger:     logger,
		reader:     reader,
		processor:  processors.NewEventProcessor(cfg, logger, db, generator),
		retryDelay: retryDelay,
	}
}

// Start consumes events until ctx is cancelled. An offset is committed only
// once its message was settled, so a message interrupted by shutdown is
// delivered again on the next start.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Worker started, listening on topic %s", w.config.KafkaTopic)

	for {
		message, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			w.logger.Error("Failed to read message: %v", err)
			time.Sleep(time.Second)
			continue
		}

		if !w.handleMessage(ctx, message) {
			return
		}

		if err := w.reader.CommitMessages(ctx, message); err != nil && ctx.Err() == nil {
			w.logger.Error("Failed to commit offset %d: %v", message.Offset, err)
		}
	}
}

// handleMessage reports whether the message is settled and may be committed.
// Failures recorded on the job row settle it. Failures wrapping
// queue.ErrRedeliver are retried with backoff until ctx is cancelled.
func (w *Worker) handleMessage(ctx context.Context, message kafka.Message) bool {
	w.logger.Debug("Received message: %s", string(message.Value))

	event, err := queue.Decode(message.Value)
	if err != nil {
		w.logger.Error("Dropping message at offset %d: %v", message.Offset, err)
		return true
	}

	delay := w.retryDelay
	for {
		err := w.processor.Process(ctx, event)
		switch {
		case err == nil:
			w.logger.Debug("Event processed successfully")
			return true
		case !errors.Is(err, queue.ErrRedeliver):
			w.logger.Error("Failed to process event %s for job %s: %v", event.Type, event.JobID, err)
			return true
		}

		w.logger.Warn("Retrying event %s for job %s in %s: %v", event.Type, event.JobID, delay, err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	if err := w.reader.Close(); err != nil {
		w.logger.Error("Failed to close reader: %v", err)
	}
}
