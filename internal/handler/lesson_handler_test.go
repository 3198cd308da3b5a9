package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-scheduler/internal/dto"
	"github.com/noah-isme/academy-scheduler/internal/models"
	appErrors "github.com/noah-isme/academy-scheduler/pkg/errors"
)

type lessonManagerMock struct {
	created   *dto.CreateLessonRequest
	createErr error
	lessons   []models.Lesson
	deleted   []string
	cleared   string
}

func (m *lessonManagerMock) Create(ctx context.Context, req dto.CreateLessonRequest) (*models.Lesson, error) {
	m.created = &req
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &models.Lesson{ID: "lesson-1", ModuleAssignmentID: req.ModuleAssignmentID, StartsAt: req.Start, EndsAt: req.End}, nil
}

func (m *lessonManagerMock) ListByClassGroup(ctx context.Context, classGroupID string) ([]models.Lesson, error) {
	return m.lessons, nil
}

func (m *lessonManagerMock) Delete(ctx context.Context, id string) error {
	if id == "missing" {
		return appErrors.Clone(appErrors.ErrNotFound, "lesson not found")
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *lessonManagerMock) Clear(ctx context.Context, classGroupID string) (*dto.ClearLessonsResponse, error) {
	m.cleared = classGroupID
	return &dto.ClearLessonsResponse{ClassGroupID: classGroupID, Deleted: int64(len(m.lessons))}, nil
}

func newLessonRouter(svc lessonManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &LessonHandler{service: svc}
	router := gin.New()
	router.POST("/lessons", h.Create)
	router.DELETE("/lessons/:id", h.Delete)
	router.GET("/class-groups/:id/lessons", h.List)
	router.DELETE("/class-groups/:id/lessons", h.Clear)
	return router
}

func send(router http.Handler, method, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestLessonHandlerCreate(t *testing.T) {
	svc := &lessonManagerMock{}
	router := newLessonRouter(svc)

	w := postJSON(router, "/lessons", `{"moduleAssignmentId":"m1","start":"2025-01-06T08:00:00Z","end":"2025-01-06T11:00:00Z"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "m1", svc.created.ModuleAssignmentID)
	assert.Equal(t, 3*time.Hour, svc.created.End.Sub(svc.created.Start))
}

func TestLessonHandlerCreateErrors(t *testing.T) {
	conflict := appErrors.Wrap(&models.LessonConflictError{Conflict: models.LessonConflict{Dimension: models.DimensionRoom, ResourceID: "room-1"}},
		appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "room room-1 already booked")
	cases := map[string]struct {
		err  error
		code int
	}{
		"too long":    {appErrors.Clone(appErrors.ErrDurationLimit, "lesson longer than 3h"), http.StatusBadRequest},
		"unavailable": {appErrors.Clone(appErrors.ErrAvailability, ""), http.StatusUnprocessableEntity},
		"conflict":    {conflict, http.StatusConflict},
		"budget":      {appErrors.Clone(appErrors.ErrBudgetExceeded, ""), http.StatusUnprocessableEntity},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			router := newLessonRouter(&lessonManagerMock{createErr: tc.err})
			w := postJSON(router, "/lessons", `{"moduleAssignmentId":"m1","start":"2025-01-06T08:00:00Z","end":"2025-01-06T12:00:00Z"}`)
			assert.Equal(t, tc.code, w.Code)
		})
	}

	router := newLessonRouter(&lessonManagerMock{})
	w := postJSON(router, "/lessons", `{"moduleAssignmentId":"m1","start":"monday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLessonHandlerListClearDelete(t *testing.T) {
	svc := &lessonManagerMock{lessons: []models.Lesson{{ID: "l1"}, {ID: "l2"}}}
	router := newLessonRouter(svc)

	list := send(router, http.MethodGet, "/class-groups/cg-1/lessons")
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"total":2`)

	clear := send(router, http.MethodDelete, "/class-groups/cg-1/lessons")
	require.Equal(t, http.StatusOK, clear.Code)
	assert.Equal(t, "cg-1", svc.cleared)
	assert.Contains(t, clear.Body.String(), `"deleted":2`)

	assert.Equal(t, http.StatusNoContent, send(router, http.MethodDelete, "/lessons/l1").Code)
	assert.Equal(t, []string{"l1"}, svc.deleted)
	assert.Equal(t, http.StatusNotFound, send(router, http.MethodDelete, "/lessons/missing").Code)
}
