package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	"github.com/noah-isme/academy-scheduler/internal/service"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
	"github.com/noah-isme/academy-scheduler/pkg/response"
)

type lessonManager interface {
	Create(ctx context.Context, req dto.CreateLessonRequest) (*models.Lesson, error)
	ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context, classGroupID string) (*dto.ClearLessonsResponse, error)
}

// LessonHandler manages individual lessons.
type LessonHandler struct {
	service lessonManager
}

// NewLessonHandler constructs the handler.
func NewLessonHandler(svc *service.LessonService) *LessonHandler {
	return &LessonHandler{service: svc}
}

// Create godoc
// @Summary Book a lesson manually
// @Description Validates duration, trainer availability, resource conflicts and the module budget before persisting.
// @Tags Lessons
// @Accept json
// @Produce json
// @Param payload body dto.CreateLessonRequest true "Lesson payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /lessons [post]
func (h *LessonHandler) Create(c *gin.Context) {
	var req dto.CreateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson payload"))
		return
	}
	lesson, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, lesson)
}

// List godoc
// @Summary List lessons of a class group
// @Tags Lessons
// @Produce json
// @Param id path string true "Class group ID"
// @Success 200 {object} response.Envelope
// @Router /class-groups/{id}/lessons [get]
func (h *LessonHandler) List(c *gin.Context) {
	lessons, err := h.service.ListByClassGroup(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, map[string]interface{}{"total": len(lessons)})
}

// Clear godoc
// @Summary Delete every lesson of a class group
// @Tags Lessons
// @Produce json
// @Param id path string true "Class group ID"
// @Success 200 {object} response.Envelope
// @Router /class-groups/{id}/lessons [delete]
func (h *LessonHandler) Clear(c *gin.Context) {
	result, err := h.service.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Delete godoc
// @Summary Delete a lesson
// @Tags Lessons
// @Param id path string true "Lesson ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /lessons/{id} [delete]
func (h *LessonHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
