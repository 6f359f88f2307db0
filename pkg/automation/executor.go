package automation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dealerdesk/automation/pkg/conditions"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/otelhelper"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/registry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultStepTimeout = 30 * time.Second

// Executor drives one event through workflow matching, condition evaluation
// and action execution, persisting a run and per-step log for each matching
// workflow.
type Executor struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	builder     *ContextBuilder
	emitter     Emitter
	tracer      trace.Tracer
	stepTimeout time.Duration
}

// Option configures optional executor collaborators.
type Option func(*Executor)

// WithEmitter wires follow-up event publication for automation-caused
// writes.
func WithEmitter(emitter Emitter) Option {
	return func(e *Executor) { e.emitter = emitter }
}

// WithTracer enables span creation around execution passes.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Executor) { e.tracer = tracer }
}

// WithStepTimeout bounds each action invocation so one slow write cannot
// stall the run indefinitely.
func WithStepTimeout(timeout time.Duration) Option {
	return func(e *Executor) { e.stepTimeout = timeout }
}

func NewExecutor(logger *slog.Logger, p persistence.Persistence, reg *registry.Registry, opts ...Option) *Executor {
	executor := &Executor{
		logger:      logger.With("module", "workflow_executor"),
		persistence: p,
		registry:    reg,
		builder:     NewContextBuilder(p.Entities(), logger),
		stepTimeout: defaultStepTimeout,
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Execute runs the full automation pass for one event and returns the runs
// it finalized.
//
// The pass is decoupled from the originating business operation: every
// failure mode terminates in a recorded run or step status. The one case
// that creates no records at all is a missing primary entity, because there
// is nothing meaningful to log against.
func (e *Executor) Execute(ctx context.Context, event *models.AutomationEvent) ([]*models.AutomationRun, error) {
	logger := e.logger.With(
		"event_id", event.ID,
		"entity_type", event.EntityType,
		"entity_id", event.EntityID,
		"event_type", event.EventType,
	)

	if e.tracer != nil {
		var span trace.Span

		ctx, span = e.tracer.Start(ctx, "automation.execute", trace.WithAttributes(
			attribute.String(otelhelper.EventIDKey, event.ID),
			attribute.String(otelhelper.EntityTypeKey, string(event.EntityType)),
			attribute.String(otelhelper.EventTypeKey, string(event.EventType)),
		))
		defer span.End()
	}

	if ShouldSkipAutomations(event) {
		logger.DebugContext(ctx, "Skipping automation-originated event")

		return nil, nil
	}

	candidates, err := e.persistence.Workflows().FindEnabledByTrigger(ctx, event.EntityType, event.EventType, event.TenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to find workflows for event %s: %w", event.ID, err)
	}

	matching := make([]*models.AutomationWorkflow, 0, len(candidates))

	for _, workflow := range candidates {
		if MatchesTrigger(event, workflow.Trigger) {
			matching = append(matching, workflow)
		}
	}

	if len(matching) == 0 {
		logger.DebugContext(ctx, "No matching workflows")

		return nil, nil
	}

	// One shared context per event; workflows never see each other's writes.
	ectx, err := e.builder.Build(ctx, event)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			logger.WarnContext(ctx, "Primary entity no longer exists, aborting automation pass", "error", err)

			return nil, err
		}

		return nil, fmt.Errorf("failed to build event context: %w", err)
	}

	logger.InfoContext(ctx, "Executing matching workflows", "count", len(matching))

	runs := make([]*models.AutomationRun, 0, len(matching))

	for _, workflow := range matching {
		runs = append(runs, e.executeWorkflow(ctx, logger, workflow, event, ectx))
	}

	return runs, nil
}

// executeWorkflow runs one workflow against the shared context. It never
// returns an error: every outcome lands in the run record, so one
// workflow's failure cannot prevent its siblings from executing.
func (e *Executor) executeWorkflow(ctx context.Context, logger *slog.Logger, workflow *models.AutomationWorkflow, event *models.AutomationEvent, ectx *models.EventContext) *models.AutomationRun {
	logger = logger.With("workflow_id", workflow.ID, "workflow_name", workflow.Name)

	run := &models.AutomationRun{
		ID:                uuid.New().String(),
		WorkflowID:        workflow.ID,
		EventID:           event.ID,
		TenantID:          event.TenantID,
		PrimaryEntityType: event.EntityType,
		PrimaryEntityID:   event.EntityID,
		Status:            models.StatusPending,
		TriggeredAt:       time.Now().UTC(),
	}

	var span trace.Span

	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "automation.workflow", trace.WithAttributes(
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.WorkflowNameKey, workflow.Name),
			attribute.String(otelhelper.RunIDKey, run.ID),
			attribute.String(otelhelper.TenantIDKey, workflow.TenantID),
		))
		defer span.End()
	}

	result, evalErr := conditions.Evaluate(workflow.Conditions, ectx.Data())
	run.ConditionsMatched = evalErr == nil && result.Matched

	if err := e.persistence.Runs().Create(ctx, run); err != nil {
		logger.ErrorContext(ctx, "Failed to persist run, executing without history", "error", err)
	}

	if evalErr != nil {
		logger.WarnContext(ctx, "Condition evaluation failed", "error", evalErr)

		if span != nil {
			otelhelper.SetError(span, evalErr)
		}

		e.finalize(ctx, logger, run, models.StatusFailed, "condition evaluation failed: "+evalErr.Error())

		return run
	}

	if !result.Matched {
		logger.DebugContext(ctx, "Conditions not matched, skipping workflow")
		e.finalize(ctx, logger, run, models.StatusSkipped, "")

		return run
	}

	run.Status = models.StatusRunning

	actions := make([]models.AutomationAction, len(workflow.Actions))
	copy(actions, workflow.Actions)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].Order < actions[j].Order })

	var succeeded, failed int

	// Actions see the original context unless a step opts into refresh.
	stepCtx := ectx

	for _, action := range actions {
		output, err := e.runAction(ctx, action, stepCtx)

		stepRun := &models.AutomationStepRun{
			ID:         uuid.New().String(),
			RunID:      run.ID,
			ActionID:   action.ID,
			ActionType: action.Type,
			Order:      action.Order,
			ExecutedAt: time.Now().UTC(),
		}

		if err != nil {
			failed++
			stepRun.Status = models.StatusFailed
			stepRun.ErrorMessage = err.Error()
			logger.WarnContext(ctx, "Action failed", "action_type", action.Type, "order", action.Order, "error", err)
		} else {
			succeeded++
			stepRun.Status = models.StatusSuccess
			stepRun.Output = output
			e.emitFollowUp(ctx, logger, action, event, output)

			if action.RefreshContext {
				if refreshed, buildErr := e.builder.Build(ctx, event); buildErr == nil {
					stepCtx = refreshed
				} else {
					logger.WarnContext(ctx, "Context refresh failed, keeping previous context", "error", buildErr)
				}
			}
		}

		if createErr := e.persistence.StepRuns().Create(ctx, stepRun); createErr != nil {
			logger.ErrorContext(ctx, "Failed to persist step run", "error", createErr)
		}
	}

	status := models.StatusSuccess

	switch {
	case failed > 0 && succeeded > 0:
		status = models.StatusPartial
	case failed > 0:
		status = models.StatusFailed
	}

	e.finalize(ctx, logger, run, status, "")
	logger.InfoContext(ctx, "Workflow execution finished", "status", status, "succeeded", succeeded, "failed", failed)

	return run
}

// runAction resolves and invokes one handler under a panic guard and a
// bounded-time guard. All failure modes come back as an error.
func (e *Executor) runAction(ctx context.Context, action models.AutomationAction, ectx *models.EventContext) (map[string]any, error) {
	var span trace.Span

	if e.tracer != nil {
		ctx, span = e.tracer.Start(ctx, "automation.action", trace.WithAttributes(
			attribute.String(otelhelper.ActionTypeKey, string(action.Type)),
		))
		defer span.End()
	}

	output, err := e.invokeAction(ctx, action, ectx)
	if err != nil && span != nil {
		otelhelper.SetError(span, err)
	}

	return output, err
}

func (e *Executor) invokeAction(ctx context.Context, action models.AutomationAction, ectx *models.EventContext) (map[string]any, error) {
	handler, err := e.registry.CreateHandler(action.Type, action.Config)
	if err != nil {
		return nil, err
	}

	guardCtx, cancel := context.WithTimeout(ctx, e.stepTimeout)
	defer cancel()

	type stepResult struct {
		output map[string]any
		err    error
	}

	done := make(chan stepResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- stepResult{err: fmt.Errorf("action panicked: %v", r)}
			}
		}()

		output, execErr := handler.Execute(guardCtx, ectx)
		done <- stepResult{output: output, err: execErr}
	}()

	select {
	case result := <-done:
		return result.output, result.err
	case <-guardCtx.Done():
		if ctx.Err() != nil {
			return nil, fmt.Errorf("action canceled: %w", ctx.Err())
		}

		return nil, fmt.Errorf("action timed out after %s", e.stepTimeout)
	}
}

// emitFollowUp publishes an automation-originated event for an entity the
// step wrote, so downstream consumers observe the change while the skip
// gate keeps it out of this pipeline.
func (e *Executor) emitFollowUp(ctx context.Context, logger *slog.Logger, action models.AutomationAction, source *models.AutomationEvent, output map[string]any) {
	if e.emitter == nil {
		return
	}

	entityType, _ := output["entity_type"].(string)
	entityID, _ := output["entity_id"].(string)

	if entityType == "" || entityID == "" {
		return
	}

	eventType := models.EventTypeCreated

	var changes map[string]any

	if action.Type == models.ActionTypeUpdateRecord {
		eventType = models.EventTypeUpdated
		changes, _ = output["updated_fields"].(map[string]any)
	}

	followUp := &models.AutomationEvent{
		ID:            uuid.New().String(),
		EntityType:    models.EntityType(entityType),
		EntityID:      entityID,
		EventType:     eventType,
		ChangedFields: changes,
		TenantID:      source.TenantID,
		Origin:        models.EventOriginAutomation,
		OccurredAt:    time.Now().UTC(),
	}

	if err := e.emitter.Emit(ctx, followUp); err != nil {
		logger.WarnContext(ctx, "Failed to emit follow-up event", "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}

func (e *Executor) finalize(ctx context.Context, logger *slog.Logger, run *models.AutomationRun, status models.ExecutionStatus, errorMessage string) {
	run.Status = status
	run.ErrorMessage = errorMessage

	now := time.Now().UTC()
	run.FinishedAt = &now

	if err := e.persistence.Runs().Finalize(ctx, run.ID, status, errorMessage); err != nil {
		logger.ErrorContext(ctx, "Failed to finalize run", "run_id", run.ID, "error", err)
	}
}
