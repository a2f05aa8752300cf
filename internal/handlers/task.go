package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"taskboard/internal/models"
)

type tasksResponse struct {
	EmpID int64         `json:"empId"`
	Todo  []models.Task `json:"todo"`
	Done  []models.Task `json:"done"`
}

type createTaskResponse struct {
	ID string `json:"id"`
}

// GetTasks returns both task lists of an employee.
func (h *Handlers) GetTasks(w http.ResponseWriter, r *http.Request) {
	empID, err := parseEmpID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lists, err := h.svc.Get(r.Context(), empID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, tasksResponse{EmpID: empID, Todo: lists.Todo, Done: lists.Done})
}

// CreateTask appends a new task to the employee's todo list.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	empID, err := parseEmpID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	payload, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.svc.Create(r.Context(), empID, payload)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, createTaskResponse{ID: id})
}

// ReplaceTasks overwrites both lists with the submitted snapshot.
func (h *Handlers) ReplaceTasks(w http.ResponseWriter, r *http.Request) {
	empID, err := parseEmpID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	payload, err := decodeBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.svc.ReplaceAll(r.Context(), empID, payload); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask removes a task from whichever list holds it. Deleting a task
// that does not exist still succeeds.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	empID, err := parseEmpID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.svc.Remove(r.Context(), empID, chi.URLParam(r, "taskId")); err != nil {
		h.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
