package models

import (
	"time"

	"github.com/google/uuid"
)

// Generation is one row of the generation history. It never carries the API key.
type Generation struct {
	ID             uuid.UUID `json:"id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model,omitempty"`
	Title          string    `json:"title,omitempty"`
	SlideCount     int       `json:"slide_count"`
	SpeakerNotes   bool      `json:"speaker_notes"`
	TemplateName   string    `json:"template_name"`
	OutputFilename string    `json:"output_filename,omitempty"`
	Status         string    `json:"status"` // "completed" | "failed"
	ErrorMessage   *string   `json:"error_message"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// OutputRecord tracks a generated deck until it expires.
type OutputRecord struct {
	Filename  string    `json:"filename"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
