package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Conceptual-Machines/journey-api/internal/api/middleware"
	"github.com/Conceptual-Machines/journey-api/internal/contract"
	"github.com/Conceptual-Machines/journey-api/internal/generation"
	"github.com/Conceptual-Machines/journey-api/internal/logger"
	"github.com/Conceptual-Machines/journey-api/internal/models"
	"github.com/Conceptual-Machines/journey-api/internal/prompt"
	"github.com/gin-gonic/gin"
)

// Generator produces validated records for a contract.
// Ready fails with config_missing when the model credential is absent.
type Generator interface {
	Ready() error
	Generate(ctx context.Context, prompt string, c *contract.GenerationContract) (*generation.Result, error)
}

// GenerationHandler exposes the generation pipeline over HTTP
type GenerationHandler struct {
	generator Generator
	registry  *contract.Registry
}

// NewGenerationHandler creates a generation handler
func NewGenerationHandler(generator Generator, registry *contract.Registry) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		registry:  registry,
	}
}

// CustomerJourney handles POST /api/openai/customer-journey
func (h *GenerationHandler) CustomerJourney(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	h.generateFromPrompt(c, contract.Journey)
}

// CustomerPains handles POST /api/openai/customer-pains
func (h *GenerationHandler) CustomerPains(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	h.generateFromPrompt(c, contract.PainPoints)
}

// GenerateTask handles POST /api/v1/generations/:task
func (h *GenerationHandler) GenerateTask(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	task := c.Param("task")
	gc, ok := h.registry.Lookup(task)
	if !ok {
		respondError(c, generation.NewError(generation.KindBadRequest, nil).
			WithDetails("unknown task "+task))
		return
	}
	h.generateFromPrompt(c, gc)
}

// Journey handles POST /api/v1/journeys: builds the journey prompt from a persona brief
func (h *GenerationHandler) Journey(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var form models.JourneyFormData
	if err := c.ShouldBindJSON(&form); err != nil {
		respondError(c, badRequest(err, "target_customers, persona_name, business_proposition and customer_scenario are required"))
		return
	}

	formatted, err := prompt.BuildJourneyPrompt(form)
	if err != nil {
		respondError(c, badRequest(err, err.Error()))
		return
	}
	h.generate(c, formatted, contract.Journey)
}

// PainPoints handles POST /api/v1/pain-points: builds the pain-points prompt from journey steps
func (h *GenerationHandler) PainPoints(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req models.PainPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err, "steps must be a list of journey steps"))
		return
	}

	formatted, err := prompt.BuildPainPointsPrompt(req.Steps)
	if err != nil {
		respondError(c, badRequest(err, err.Error()))
		return
	}
	h.generate(c, formatted, contract.PainPoints)
}

func (h *GenerationHandler) generateFromPrompt(c *gin.Context, gc *contract.GenerationContract) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err, "Request body must be a JSON object with formattedPrompt"))
		return
	}
	h.generate(c, req.FormattedPrompt, gc)
}

func (h *GenerationHandler) generate(c *gin.Context, formatted string, gc *contract.GenerationContract) {
	fields := logger.WithContext(c)
	fields["task"] = gc.TaskName()
	if userID, ok := middleware.GetUserIDFromGateway(c); ok {
		fields["user"] = userID
	}
	logger.Debug("Generation requested", fields)

	result, err := h.generator.Generate(c.Request.Context(), formatted, gc)
	if err != nil {
		respondError(c, generation.Classify(err))
		return
	}

	data := make([]map[string]any, len(result.Records))
	for i, rec := range result.Records {
		data[i] = rec
	}
	c.JSON(http.StatusOK, models.GenerationResponse{Data: data})
}

// ready rejects the request with config_missing before the body is read
func (h *GenerationHandler) ready(c *gin.Context) bool {
	err := h.generator.Ready()
	if err == nil {
		return true
	}
	genErr := generation.Classify(err)
	fields := logger.WithContext(c)
	fields["kind"] = string(genErr.Kind)
	logger.Error("Generation unavailable", genErr, fields)
	respondError(c, genErr)
	return false
}

func badRequest(cause error, details string) *generation.Error {
	return generation.NewError(generation.KindBadRequest, cause).WithDetails(details)
}

func respondError(c *gin.Context, err *generation.Error) {
	if err == nil {
		err = generation.NewError(generation.KindUnknown, errors.New("unclassified failure"))
	}
	c.Set("error_kind", string(err.Kind))
	c.JSON(err.HTTPStatus, err)
}
