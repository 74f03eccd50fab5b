package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeValidationError(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, models.GenerateResponse{
		Success: false,
		Error:   message,
		Code:    "VALIDATION_ERROR",
	})
}

// handleGenerationError maps a pipeline failure to the status code and
// user-facing message the client expects.
func handleGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	classified := services.ClassifyError(err)
	if classified.StatusCode >= http.StatusInternalServerError {
		log.Printf("[%s] generation failed: %v", requestID(r), err)
	} else {
		log.Printf("[%s] generation rejected (%d): %v", requestID(r), classified.StatusCode, err)
	}
	writeJSON(w, classified.StatusCode, models.GenerateResponse{
		Success: false,
		Error:   classified.Message,
		Code:    classified.Class,
	})
}

func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return "-"
}
