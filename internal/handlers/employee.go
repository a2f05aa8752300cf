package handlers

import "net/http"

// GetEmployee returns the employee record used to confirm sign-in.
func (h *Handlers) GetEmployee(w http.ResponseWriter, r *http.Request) {
	empID, err := parseEmpID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	emp, err := h.svc.Employee(r.Context(), empID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lists := emp.Lists()
	emp.Todo, emp.Done = lists.Todo, lists.Done
	respondJSON(w, http.StatusOK, emp)
}
