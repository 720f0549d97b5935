package task

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/tasky/internal/httputil"
	"github.com/redmonkez12/tasky/internal/session"
)

// Handler exposes the task service over HTTP
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the task endpoints. Callers are expected to wrap them with
// authentication middleware; the service rejects requests without a session.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.GetAll)
	r.Post("/", h.Create)
	r.Get("/{id}", h.GetByID)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// GetAll lists the caller's tasks
// @Summary      List tasks
// @Description  List the authenticated user's tasks, newest first. Filters are combined with AND.
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        status   query string false "Status filter" Enums(todo, in-progress, done)
// @Param        priority query string false "Priority filter" Enums(low, medium, high)
// @Param        search   query string false "Case-insensitive text in title or description"
// @Success      200 {array}  Task
// @Failure      400 {object} httputil.ErrorResponse "Invalid filter"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Router       /tasks [get]
func (h *Handler) GetAll(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var f Filter
	if v := query.Get("status"); v != "" {
		status := Status(v)
		f.Status = &status
	}
	if v := query.Get("priority"); v != "" {
		priority := Priority(v)
		f.Priority = &priority
	}
	if v := query.Get("search"); v != "" {
		f.Search = &v
	}

	tasks, err := h.service.GetAll(r.Context(), session.FromContext(r.Context()), f)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, tasks, http.StatusOK)
}

// GetByID returns one task
// @Summary      Get task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} Task
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [get]
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.GetByID(r.Context(), session.FromContext(r.Context()), ByIDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, t, http.StatusOK)
}

// Create adds a task
// @Summary      Create task
// @Description  Create a task. Limited to a fixed number of creations per user per rolling window.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateInput true "Task"
// @Success      201 {object} CreateResult
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      429 {object} httputil.ErrorResponse "Too many requests"
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.service.log(r.Context()).Warn("invalid create task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	res, err := h.service.Create(r.Context(), session.FromContext(r.Context()), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.SetRateLimitHeaders(w, h.service.createPolicy.Limit, res.Remaining)
	httputil.RespondJSON(w, res, http.StatusCreated)
}

// Update changes the supplied fields of a task
// @Summary      Update task
// @Description  Partial update. Send "due_date": null to clear the due date; omit a field to keep it.
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path string      true "Task ID"
// @Param        request body UpdateInput true "Fields to change"
// @Success      200 {object} UpdateResult
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in UpdateInput
	if err := httputil.DecodeJSON(r, &in); err != nil {
		h.service.log(r.Context()).Warn("invalid update task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}
	in.ID = chi.URLParam(r, "id")

	res, err := h.service.Update(r.Context(), session.FromContext(r.Context()), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, res, http.StatusOK)
}

// Delete removes a task
// @Summary      Delete task
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} DeleteResult
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Delete(r.Context(), session.FromContext(r.Context()), ByIDInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	httputil.RespondJSON(w, res, http.StatusOK)
}

func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var tErr *Error
	if !errors.As(err, &tErr) {
		tErr = internalError("process request", err)
	}

	switch tErr.Kind {
	case KindUnauthenticated:
		httputil.RespondErrorWithCode(w, tErr.Message, httputil.CodeUnauthorized, http.StatusUnauthorized)
	case KindValidation:
		httputil.RespondErrorWithCode(w, tErr.Message, httputil.CodeValidationError, http.StatusBadRequest)
	case KindNotFound:
		httputil.RespondErrorWithCode(w, tErr.Message, httputil.CodeTaskNotFound, http.StatusNotFound)
	case KindRateLimited:
		httputil.SetRetryAfter(w, tErr.RetryAfter)
		httputil.SetRateLimitHeaders(w, tErr.Limit, 0)
		httputil.RespondErrorWithCode(w, tErr.Message, httputil.CodeTooManyRequests, http.StatusTooManyRequests)
	default:
		h.service.log(r.Context()).Error("task request failed", "error", err)
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}
