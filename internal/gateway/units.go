package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Ebbbabebba/sermable-54cd6c15-sub000/internal/store"
)

// ListUnits serves the unit catalogue, most recently updated first.
func (h *Handler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.st.ListUnits(r.Context())
	if err != nil {
		h.logger.Error("listing units", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("listing units failed"))
		return
	}
	writeJSON(w, http.StatusOK, units)
}

// GetUnit serves one unit by path id.
func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unit, err := h.st.GetUnit(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("unknown unit "+id))
	case err != nil:
		h.logger.Error("loading unit", "unit", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody("loading unit failed"))
	default:
		writeJSON(w, http.StatusOK, unit)
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
	}
}
