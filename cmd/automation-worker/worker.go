package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dealerdesk/automation/pkg/automation"
	"github.com/dealerdesk/automation/pkg/eventbus"
	"github.com/dealerdesk/automation/pkg/models"
)

// WorkerManager consumes entity events from the bus and drives the executor.
// Events are deduplicated before execution because the bus redelivers on
// nack and on consumer rebalance.
type WorkerManager struct {
	id       string
	logger   *slog.Logger
	executor *automation.Executor
	eventBus eventbus.EventBus
	deduper  automation.EventDeduper
}

func NewWorkerManager(
	id string,
	executor *automation.Executor,
	eventBus eventbus.EventBus,
	deduper automation.EventDeduper,
	logger *slog.Logger,
) *WorkerManager {
	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "automation-worker", "worker_id", id),
		executor: executor,
		eventBus: eventBus,
		deduper:  deduper,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	err := w.eventBus.Subscribe(ctx, w.handleEntityEvent)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return nil
}

func (w *WorkerManager) handleEntityEvent(ctx context.Context, event *models.AutomationEvent) error {
	logger := w.logger.With(
		"event_id", event.ID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"event_type", event.EventType,
	)

	seen, err := w.deduper.Seen(ctx, event.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Deduplication check failed", "error", err)

		return err
	}

	if seen {
		logger.InfoContext(ctx, "Skipping already-processed event")

		return nil
	}

	runs, err := w.executor.Execute(ctx, event)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to execute automation pass", "error", err)

		// Release the dedup claim so the redelivery after nack is not
		// dropped as already processed.
		if forgetErr := w.deduper.Forget(ctx, event.ID); forgetErr != nil {
			logger.ErrorContext(ctx, "Failed to release dedup claim", "error", forgetErr)
		}

		return err
	}

	logger.InfoContext(ctx, "Automation pass completed", "runs", len(runs))

	return nil
}

// busEmitter publishes the executor's follow-up events back onto the entity
// event bus so chained workflows see automation-caused writes.
type busEmitter struct {
	publisher eventbus.EventPublisher
}

func (b busEmitter) Emit(ctx context.Context, event *models.AutomationEvent) error {
	return b.publisher.Publish(ctx, event)
}
