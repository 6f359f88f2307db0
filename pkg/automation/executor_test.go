package automation_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dealerdesk/automation/pkg/actions/createtask"
	"github.com/dealerdesk/automation/pkg/actions/updaterecord"
	"github.com/dealerdesk/automation/pkg/automation"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/otelhelper"
	"github.com/dealerdesk/automation/pkg/persistence/memory"
	"github.com/dealerdesk/automation/pkg/protocol"
	"github.com/dealerdesk/automation/pkg/registry"
	"github.com/dealerdesk/automation/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type capturingEmitter struct {
	mu     sync.Mutex
	events []*models.AutomationEvent
}

func (c *capturingEmitter) Emit(_ context.Context, event *models.AutomationEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)

	return nil
}

func (c *capturingEmitter) Events() []*models.AutomationEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]*models.AutomationEvent(nil), c.events...)
}

func setupExecutor(t *testing.T, opts ...automation.Option) (*automation.Executor, *memory.Persistence, *memory.EntityStore) {
	t.Helper()

	p := memory.NewPersistence()

	store, ok := p.Entities().(*memory.EntityStore)
	require.True(t, ok)

	store.Seed(models.EntityTypeOrganisation, "org-1", models.Record{"name": "Acme GmbH", "country": "DE"})
	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{
		"name":            "Acme renewal",
		"amount":          60000.0,
		"status":          "open",
		"organisation_id": "org-1",
	})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(updaterecord.NewFactory(store))
	reg.Register(createtask.NewFactory(store))

	executor := automation.NewExecutor(slog.Default(), p, reg, opts...)

	return executor, p, store
}

func saveWorkflow(t *testing.T, p *memory.Persistence, workflow *models.AutomationWorkflow) {
	t.Helper()
	require.NoError(t, p.Workflows().Save(context.Background(), workflow))
}

func TestExecutor_SuccessfulRun(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithConditions(testutil.AllOf(
			testutil.Leaf("deal.amount", models.OperatorGreaterThan, 50000),
		)),
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.StatusSuccess, runs[0].Status)
	assert.True(t, runs[0].ConditionsMatched)
	require.NotNil(t, runs[0].FinishedAt)

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "qualified", deal["status"])

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, models.StatusSuccess, steps[0].Status)
	assert.Equal(t, "deal-1", steps[0].Output["entity_id"])
}

func TestExecutor_ConditionsNotMatchedSkips(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithConditions(testutil.AllOf(
			testutil.Leaf("deal.amount", models.OperatorGreaterThan, 100000),
		)),
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.StatusSkipped, runs[0].Status)
	assert.False(t, runs[0].ConditionsMatched)

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "open", deal["status"], "skipped workflow must not execute actions")

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestExecutor_VacuousMatch(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "Review {{.deal.name}}",
			}),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusSuccess, runs[0].Status)
	assert.True(t, runs[0].ConditionsMatched)
}

func TestExecutor_FailureIsolation(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}, testutil.WithOrder(1)),
			testutil.CreateTestAction("send_email", map[string]any{}, testutil.WithOrder(2)),
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "Still created",
			}, testutil.WithOrder(3)),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.StatusPartial, runs[0].Status)

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, models.StatusSuccess, steps[0].Status)
	assert.Equal(t, models.StatusFailed, steps[1].Status)
	assert.Contains(t, steps[1].ErrorMessage, "not registered")
	assert.Equal(t, models.StatusSuccess, steps[2].Status, "later steps still run after a failure")

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "qualified", deal["status"])
}

func TestExecutor_AllStepsFailedRunFails(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction("send_email", map[string]any{}),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusFailed, runs[0].Status)
}

func TestExecutor_ConditionEvaluationErrorFailsRun(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithConditions(testutil.AllOf(
			testutil.Leaf("deal.amount", "between", []any{1, 2}),
		)),
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	assert.Equal(t, models.StatusFailed, runs[0].Status)
	assert.False(t, runs[0].ConditionsMatched)
	assert.Contains(t, runs[0].ErrorMessage, "condition evaluation failed")

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "open", deal["status"])
}

func TestExecutor_MultipleWorkflowsAreIndependent(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	failing := testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.CreateTestAction("send_email", map[string]any{})),
	)
	failing.CreatedAt = time.Now().UTC().Add(-time.Minute)
	saveWorkflow(t, p, failing)

	succeeding := testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
			"title": "Independent",
		})),
	)
	saveWorkflow(t, p, succeeding)

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byWorkflow := map[string]models.ExecutionStatus{}
	for _, run := range runs {
		byWorkflow[run.WorkflowID] = run.Status
	}

	assert.Equal(t, models.StatusFailed, byWorkflow[failing.ID])
	assert.Equal(t, models.StatusSuccess, byWorkflow[succeeding.ID])
}

func TestExecutor_MissingPrimaryEntityAborts(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
			"title": "Never created",
		})),
	))

	event := testutil.CreateTestEvent(testutil.WithEntity(models.EntityTypeDeal, "deal-gone"))

	runs, err := executor.Execute(context.Background(), event)
	require.Error(t, err)
	assert.Empty(t, runs)

	history, err := p.Runs().ListByEntity(context.Background(), models.EntityTypeDeal, "deal-gone")
	require.NoError(t, err)
	assert.Empty(t, history, "a vanished primary entity leaves no run records")
}

func TestExecutor_SkipsAutomationOriginatedEvents(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
			"title": "Never created",
		})),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent(
		testutil.WithOrigin(models.EventOriginAutomation),
	))
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExecutor_NoMatchingWorkflows(t *testing.T) {
	t.Parallel()

	executor, _, _ := setupExecutor(t)

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestExecutor_EmitsFollowUpForWrites(t *testing.T) {
	t.Parallel()

	emitter := &capturingEmitter{}
	executor, p, _ := setupExecutor(t, automation.WithEmitter(emitter))

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}, testutil.WithOrder(1)),
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "Follow up",
			}, testutil.WithOrder(2)),
		),
	))

	_, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)

	events := emitter.Events()
	require.Len(t, events, 2)

	assert.Equal(t, models.EventTypeUpdated, events[0].EventType)
	assert.Equal(t, models.EntityTypeDeal, events[0].EntityType)
	assert.Equal(t, map[string]any{"status": "qualified"}, events[0].ChangedFields)

	assert.Equal(t, models.EventTypeCreated, events[1].EventType)
	assert.Equal(t, models.EntityTypeTask, events[1].EntityType)

	for _, event := range events {
		assert.Equal(t, models.EventOriginAutomation, event.Origin)
		assert.True(t, automation.ShouldSkipAutomations(event), "follow-up events must not loop back")
	}
}

func TestExecutor_StaticContextByDefault(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"name": "Renamed deal"},
			}, testutil.WithOrder(1)),
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "About {{.deal.name}}",
			}, testutil.WithOrder(2)),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "About Acme renewal", steps[1].Output["title"], "second step sees the context as hydrated at event time")

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed deal", deal["name"])
}

func TestExecutor_RefreshContextOptIn(t *testing.T) {
	t.Parallel()

	executor, p, _ := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"name": "Renamed deal"},
			}, testutil.WithOrder(1), testutil.WithRefreshContext()),
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "About {{.deal.name}}",
			}, testutil.WithOrder(2)),
		),
	))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "About Renamed deal", steps[1].Output["title"], "refresh re-hydrates the context for later steps")
}

func TestExecutor_StageChangedRoundTrip(t *testing.T) {
	t.Parallel()

	executor, p, store := setupExecutor(t)

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.EntityTypeDeal, models.EventTypeStageChanged),
		testutil.WithStageFilter("", "stage-won"),
		testutil.WithConditions(testutil.AllOf(
			testutil.Leaf("deal.amount", models.OperatorGreaterThan, 50000),
			testutil.Leaf("organisation.country", models.OperatorEquals, "DE"),
		)),
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "won"},
			}, testutil.WithOrder(1)),
			testutil.CreateTestAction(models.ActionTypeCreateTask, map[string]any{
				"title": "Kick off onboarding for {{.organisation.name}}",
			}, testutil.WithOrder(2)),
		),
	))

	event := testutil.CreateTestEvent(
		testutil.WithEventType(models.EventTypeStageChanged),
		testutil.WithPreviousValues(map[string]any{"stage_id": "stage-negotiation"}),
		testutil.WithChangedFields(map[string]any{"stage_id": "stage-won"}),
	)

	runs, err := executor.Execute(context.Background(), event)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusSuccess, runs[0].Status)

	deal, err := store.Get(context.Background(), models.EntityTypeDeal, "deal-1")
	require.NoError(t, err)
	assert.Equal(t, "won", deal["status"])

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "Kick off onboarding for Acme GmbH", steps[1].Output["title"])

	// The same event to a different stage does not fire.
	other := testutil.CreateTestEvent(
		testutil.WithEventType(models.EventTypeStageChanged),
		testutil.WithChangedFields(map[string]any{"stage_id": "stage-lost"}),
	)

	runs, err = executor.Execute(context.Background(), other)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

type blockingActionFactory struct{}

func (blockingActionFactory) Create(_ map[string]any) (protocol.ActionHandler, error) {
	return blockingAction{}, nil
}

func (blockingActionFactory) ID() models.ActionType  { return "hold" }
func (blockingActionFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

type blockingAction struct{}

func (blockingAction) Execute(ctx context.Context, _ *models.EventContext) (map[string]any, error) {
	<-ctx.Done()
	time.Sleep(50 * time.Millisecond)

	return nil, ctx.Err()
}

func setupBlockingExecutor(t *testing.T, opts ...automation.Option) (*automation.Executor, *memory.Persistence) {
	t.Helper()

	p := memory.NewPersistence()

	store, ok := p.Entities().(*memory.EntityStore)
	require.True(t, ok)

	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{"name": "Acme renewal"})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(blockingActionFactory{})

	saveWorkflow(t, p, testutil.CreateTestWorkflow(
		testutil.WithActions(testutil.CreateTestAction("hold", nil)),
	))

	return automation.NewExecutor(slog.Default(), p, reg, opts...), p
}

func TestExecutor_StepTimeoutIsReported(t *testing.T) {
	t.Parallel()

	executor, p := setupBlockingExecutor(t, automation.WithStepTimeout(20*time.Millisecond))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.StatusFailed, runs[0].Status)

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Contains(t, steps[0].ErrorMessage, "timed out after")
}

func TestExecutor_ShutdownCancellationIsReported(t *testing.T) {
	t.Parallel()

	executor, p := setupBlockingExecutor(t, automation.WithStepTimeout(5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	runs, err := executor.Execute(ctx, testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	steps, err := p.StepRuns().ListByRun(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Contains(t, steps[0].ErrorMessage, "action canceled")
	assert.NotContains(t, steps[0].ErrorMessage, "timed out")
}

func TestExecutor_TracerRecordsSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	p := memory.NewPersistence()

	store, ok := p.Entities().(*memory.EntityStore)
	require.True(t, ok)

	store.Seed(models.EntityTypeDeal, "deal-1", models.Record{"name": "Acme renewal", "status": "open"})

	reg := registry.NewRegistry(slog.Default())
	reg.Register(updaterecord.NewFactory(store))

	executor := automation.NewExecutor(slog.Default(), p, reg,
		automation.WithTracer(provider.Tracer("test")))

	workflow := testutil.CreateTestWorkflow(
		testutil.WithActions(
			testutil.CreateTestAction(models.ActionTypeUpdateRecord, map[string]any{
				"fields": map[string]any{"status": "qualified"},
			}, testutil.WithOrder(1)),
			testutil.CreateTestAction("send_email", nil, testutil.WithOrder(2)),
		),
	)
	require.NoError(t, p.Workflows().Save(context.Background(), workflow))

	runs, err := executor.Execute(context.Background(), testutil.CreateTestEvent())
	require.NoError(t, err)
	require.Len(t, runs, 1)

	spans := exporter.GetSpans()

	byName := make(map[string][]tracetest.SpanStub)
	for _, span := range spans {
		byName[span.Name] = append(byName[span.Name], span)
	}

	require.Len(t, byName["automation.execute"], 1)
	require.Len(t, byName["automation.workflow"], 1)
	require.Len(t, byName["automation.action"], 2)

	workflowSpan := byName["automation.workflow"][0]
	assert.Equal(t, workflow.ID, spanAttribute(workflowSpan, otelhelper.WorkflowIDKey))
	assert.Equal(t, runs[0].ID, spanAttribute(workflowSpan, otelhelper.RunIDKey))

	var failedActions int

	for _, span := range byName["automation.action"] {
		if span.Status.Code == codes.Error {
			failedActions++
			assert.Equal(t, "send_email", spanAttribute(span, otelhelper.ActionTypeKey))
		}
	}

	assert.Equal(t, 1, failedActions, "the unregistered action records an error status")
}

func spanAttribute(span tracetest.SpanStub, key string) string {
	for _, kv := range span.Attributes {
		if string(kv.Key) == key {
			return kv.Value.AsString()
		}
	}

	return ""
}
