// Package web provides HTTP handlers and REST API endpoints for workflow
// management and event intake.
package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dealerdesk/automation/pkg/eventbus"
	"github.com/dealerdesk/automation/pkg/models"
	"github.com/dealerdesk/automation/pkg/persistence"
	"github.com/dealerdesk/automation/pkg/registry"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type APIHandlers struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	validator   *validator.Validate
}

func NewAPIHandlers(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	publisher eventbus.EventPublisher,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		publisher:   publisher,
		validator:   validator,
	}
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().List(c.Context(), c.Query("tenant_id"))
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"workflows":   workflows,
		"total_count": len(workflows),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	workflow := &models.AutomationWorkflow{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		Trigger:     req.Trigger,
		Conditions:  req.Conditions,
		Actions:     req.Actions,
		TenantID:    req.TenantID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.validateWorkflow(workflow); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(workflow)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.Trigger != nil {
		existing.Trigger = *req.Trigger
	}

	if req.Conditions != nil {
		existing.Conditions = req.Conditions
	}

	if req.Actions != nil {
		existing.Actions = req.Actions
	}

	if err := h.validateWorkflow(existing); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.persistence.Workflows().Save(c.Context(), existing); err != nil {
		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.Workflows().Delete(c.Context(), id); err != nil {
		return handleRepositoryError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) EnableWorkflow(c fiber.Ctx) error {
	return h.setWorkflowEnabled(c, true)
}

func (h *APIHandlers) DisableWorkflow(c fiber.Ctx) error {
	return h.setWorkflowEnabled(c, false)
}

func (h *APIHandlers) setWorkflowEnabled(c fiber.Ctx, enabled bool) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	workflow.Enabled = enabled

	if err := h.persistence.Workflows().Save(c.Context(), workflow); err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflow)
}

// EmitEvent accepts an entity event from a CRM mutation path and publishes
// it to the bus. The 202 response only acknowledges intake; evaluation
// happens asynchronously in the worker.
func (h *APIHandlers) EmitEvent(c fiber.Ctx) error {
	var req EmitEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if !req.EntityType.Valid() {
		return badRequest(c, fmt.Sprintf("unknown entity type '%s'", req.EntityType))
	}

	event := models.NewEvent(req.EntityType, req.EntityID, req.EventType, req.ChangedFields, req.TenantID)
	event.PreviousValues = req.PreviousValues
	event.ActorUserID = req.ActorUserID

	if req.Origin != "" {
		event.Origin = req.Origin
	}

	if err := h.publisher.Publish(c.Context(), event); err != nil {
		return internalError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"event_id": event.ID,
	})
}

func (h *APIHandlers) GetEntityRuns(c fiber.Ctx) error {
	entityType := models.EntityType(c.Params("type"))
	if !entityType.Valid() {
		return badRequest(c, fmt.Sprintf("unknown entity type '%s'", c.Params("type")))
	}

	entityID := c.Params("id")
	if entityID == "" {
		return badRequest(c, "Entity ID is required")
	}

	runs, err := h.persistence.Runs().ListByEntity(c.Context(), entityType, entityID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"runs":        runs,
		"total_count": len(runs),
	})
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.persistence.Runs().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetRunSteps(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.persistence.Runs().GetByID(c.Context(), id)
	if err != nil {
		return handleRepositoryError(c, err)
	}

	steps, err := h.persistence.StepRuns().ListByRun(c.Context(), run.ID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(RunResponse{Run: run, Steps: steps})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()

	repositoryCheck := "Persistence is healthy"
	repOk := true

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		repositoryCheck = err.Error()
		repOk = false
	}

	status := "unhealthy"
	message := "Automation API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Automation API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// validateWorkflow runs the checks the struct validator cannot express:
// enum membership on the trigger and schema validation on each action
// config, so admins learn about malformed configs before the first event.
func (h *APIHandlers) validateWorkflow(workflow *models.AutomationWorkflow) error {
	if err := h.validator.Struct(workflow); err != nil {
		return err
	}

	if !workflow.Trigger.EntityType.Valid() {
		return fmt.Errorf("unknown trigger entity type '%s'", workflow.Trigger.EntityType)
	}

	for i := range workflow.Actions {
		action := &workflow.Actions[i]

		if action.ID == "" {
			action.ID = uuid.New().String()
		}

		if err := h.registry.ValidateConfig(action.Type, action.Config); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}

	return nil
}
