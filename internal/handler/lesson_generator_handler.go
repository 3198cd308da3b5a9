package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/service"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

type lessonGenerator interface {
	Generate(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerateResult, error)
}

type generationRuns interface {
	Start(ctx context.Context, req dto.GenerateLessonsRequest) (*dto.GenerationRun, error)
	Status(ctx context.Context, id string) (*dto.GenerationRun, error)
}

// LessonGeneratorHandler exposes automatic scheduling endpoints.
type LessonGeneratorHandler struct {
	generator lessonGenerator
	runs      generationRuns
}

// NewLessonGeneratorHandler constructs the handler. runs may be nil when async generation is disabled.
func NewLessonGeneratorHandler(generator *service.LessonGeneratorService, runs *service.GenerationRunService) *LessonGeneratorHandler {
	h := &LessonGeneratorHandler{generator: generator}
	if runs != nil {
		h.runs = runs
	}
	return h
}

// Generate godoc
// @Summary Generate lessons for a class group
// @Description Runs the greedy day scheduler from startDate until every module reaches its planned hours. With async=true the run is queued and a run id is returned.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Class group ID"
// @Param payload body dto.GenerateLessonsRequest true "Generation payload"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /class-groups/{id}/lessons/generate [post]
func (h *LessonGeneratorHandler) Generate(c *gin.Context) {
	var req dto.GenerateLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	req.ClassGroupID = c.Param("id")

	if req.Async {
		if h.runs == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrPreconditionFailed, "async generation disabled"))
			return
		}
		run, err := h.runs.Start(c.Request.Context(), req)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, run)
		return
	}

	// A run is not interrupted mid-way; a dropped client only loses the response.
	result, err := h.generator.Generate(context.WithoutCancel(c.Request.Context()), req)
	if err != nil {
		if errors.Is(err, appErrors.ErrRunLimitExceeded) && result != nil {
			response.Error(c, err, result)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RunStatus godoc
// @Summary Asynchronous generation run status
// @Tags Scheduler
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /generation-runs/{id} [get]
func (h *LessonGeneratorHandler) RunStatus(c *gin.Context) {
	if h.runs == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "generation run not found or expired"))
		return
	}
	run, err := h.runs.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, run, nil)
}
