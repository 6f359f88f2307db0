// Package main provides the automation worker.
package main

import (
	"context"
	"os"
	"time"

	"github.com/dealerdesk/automation/pkg/automation"
	"github.com/dealerdesk/automation/pkg/cmd"
	"github.com/dealerdesk/automation/pkg/log"
	"github.com/dealerdesk/automation/pkg/otelhelper"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "automation-worker",
		EnableShellCompletion: true,
		Usage:                 "Consume CRM entity events and execute matching automation workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (memory:// or postgres://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (gochannel, kafka)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for cross-replica event deduplication (in-memory when empty)",
				Value:   "",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.DurationFlag{
				Name:    "step-timeout",
				Usage:   "Upper bound on a single action execution",
				Value:   30 * time.Second,
				Sources: cli.EnvVars("STEP_TIMEOUT"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing of execution passes",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("automation-worker").With("workerId", workerID)

			logger.InfoContext(ctx, "Initializing automation worker")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, persistence.Entities())

			eventBus := cmd.NewEventBus(command.String("event-bus"), "automation-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			deduper, err := cmd.NewDeduper(command.String("redis-url"))
			if err != nil {
				return err
			}

			opts := []automation.Option{
				automation.WithEmitter(busEmitter{publisher: eventBus}),
				automation.WithStepTimeout(command.Duration("step-timeout")),
			}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "automation-worker")
				if err != nil {
					logger.ErrorContext(ctx, "Failed to initialize tracer", "error", err)
				} else {
					opts = append(opts, automation.WithTracer(tracer))
				}
			}

			executor := automation.NewExecutor(logger, persistence, registry, opts...)

			worker := NewWorkerManager(workerID, executor, eventBus, deduper, logger)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
