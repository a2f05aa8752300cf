package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"taskboard/internal/schema"
	"taskboard/internal/service"
)

// maxBodyBytes caps request bodies; a full board fits comfortably.
const maxBodyBytes = 1 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	svc        *service.Service
	logger     *log.Logger
	production bool
}

// New creates a new Handlers instance. In production mode error responses
// never include the underlying error detail.
func New(svc *service.Service, logger *log.Logger, production bool) *Handlers {
	return &Handlers{
		svc:        svc,
		logger:     logger,
		production: production,
	}
}

// Routes returns the task board API router, to be mounted under /api.
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, http.StatusNotFound, "Not Found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.respondError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", nil, nil)
	})

	r.Route("/employees/{empId}", func(r chi.Router) {
		r.Get("/", h.GetEmployee)
		r.Get("/tasks", h.GetTasks)
		r.Post("/tasks", h.CreateTask)
		r.Put("/tasks", h.ReplaceTasks)
		r.Delete("/tasks/{taskId}", h.DeleteTask)
	})
	return r
}

// parseEmpID extracts the employee id from the URL. Parsing happens before
// any store access.
func parseEmpID(r *http.Request) (int64, error) {
	return service.ParseEmpID(chi.URLParam(r, "empId"))
}

// decodeBody reads the request body as a generic JSON value for schema
// validation.
func decodeBody(w http.ResponseWriter, r *http.Request) (any, error) {
	v, err := schema.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &service.ValidationError{
			Message: "invalid json",
			Fields:  []schema.FieldError{{Path: "/", Message: err.Error()}},
		}
	}
	return v, nil
}

type errorResponse struct {
	Type    string              `json:"type"`
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Errors  []schema.FieldError `json:"errors,omitempty"`
	Detail  string              `json:"detail,omitempty"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// fail is the single boundary turning service errors into responses.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidArgument):
		message := err.Error()
		var ve *service.ValidationError
		if errors.As(err, &ve) {
			message = ve.Message
		}
		h.respondError(w, r, http.StatusBadRequest, message, service.FieldErrors(err), err)
	case errors.Is(err, service.ErrNotFound):
		h.respondError(w, r, http.StatusNotFound, "Employee not found", nil, err)
	default:
		h.respondError(w, r, http.StatusInternalServerError, "internal server error", nil, err)
	}
}

// respondError sends an error response.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, code int, message string, fields []schema.FieldError, cause error) {
	logFn := h.logger.Warn
	if code >= http.StatusInternalServerError {
		logFn = h.logger.Error
	}
	kv := []any{"status", code, "method", r.Method, "path", r.URL.Path, "requestId", middleware.GetReqID(r.Context())}
	if cause != nil {
		kv = append(kv, "err", cause)
	}
	logFn(message, kv...)

	resp := errorResponse{
		Type:    "error",
		Status:  code,
		Message: message,
		Errors:  fields,
	}
	if cause != nil && !h.production {
		resp.Detail = cause.Error()
	}
	respondJSON(w, code, resp)
}
