package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Shubham-Sharma-IITM/Online-presentation-generator/internal/models"
)

var (
	ErrInvalidJSON = errors.New("Invalid JSON response from LLM")

	codeFencePattern = regexp.MustCompile("```(?:json)?\\s*\\n?|\\n?```")
)

// ParseStructure extracts and validates the slide outline from raw model output.
func ParseStructure(raw string) (*models.PresentationStructure, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = codeFencePattern.ReplaceAllString(cleaned, "")

	// Model may wrap the object in prose
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	var parsed interface{}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	obj, ok := parsed.(map[string]interface{})
	if !ok {
		return nil, errors.New("Response is not a valid object")
	}

	title, ok := obj["title"].(string)
	if !ok || strings.TrimSpace(title) == "" {
		return nil, errors.New("Missing or invalid title in response")
	}

	rawSlides, ok := obj["slides"].([]interface{})
	if !ok {
		return nil, errors.New("Missing or invalid slides array in response")
	}

	structure := &models.PresentationStructure{
		Title:  title,
		Slides: make([]models.SlideContent, 0, len(rawSlides)),
	}

	for i, rs := range rawSlides {
		slide, ok := rs.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("Slide %d is not a valid object", i+1)
		}

		slideTitle, ok := slide["title"].(string)
		if !ok || strings.TrimSpace(slideTitle) == "" {
			return nil, fmt.Errorf("Slide %d is missing a valid title", i+1)
		}

		items, ok := slide["content"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("Slide %d is missing a valid content array", i+1)
		}
		if len(items) == 0 {
			return nil, fmt.Errorf("Slide %d has no content", i+1)
		}

		content := make([]string, 0, len(items))
		for _, item := range items {
			content = append(content, bulletText(item))
		}

		notes, _ := slide["speakerNotes"].(string)

		structure.Slides = append(structure.Slides, models.SlideContent{
			Title:        slideTitle,
			Content:      content,
			SpeakerNotes: strings.TrimSpace(notes),
		})
	}

	return structure, nil
}

func bulletText(item interface{}) string {
	switch v := item.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
