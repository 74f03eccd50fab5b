package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

type generationHistory interface {
	ListRecent(ctx context.Context, status string, limit, offset int) ([]*models.Generation, int, error)
}

type GenerationsHandler struct {
	history generationHistory
}

// NewGenerationsHandler serves the generation history. history may be nil
// when no database is configured.
func NewGenerationsHandler(history generationHistory) *GenerationsHandler {
	return &GenerationsHandler{history: history}
}

func (h *GenerationsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"success": false,
			"error":   "Generation history is not enabled",
		})
		return
	}

	status := r.URL.Query().Get("status")
	if status != "" && status != "completed" && status != "failed" {
		writeValidationError(w, "status must be 'completed' or 'failed'")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.history.ListRecent(r.Context(), status, limit, offset)
	if err != nil {
		log.Printf("[%s] failed to list generations: %v", requestID(r), err)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   "Failed to load generation history",
		})
		return
	}
	if items == nil {
		items = []*models.Generation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
