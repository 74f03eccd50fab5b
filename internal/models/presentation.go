package models

// PresentationStructure is the slide outline returned by the LLM.
type PresentationStructure struct {
	Title  string         `json:"title"`
	Slides []SlideContent `json:"slides"`
}

type SlideContent struct {
	Title        string   `json:"title"`
	Content      []string `json:"content"`
	SpeakerNotes string   `json:"speakerNotes,omitempty"`
}

// SlidePreview mirrors a generated slide for the client-side preview.
type SlidePreview struct {
	Title        string   `json:"title"`
	Content      []string `json:"content"`
	SpeakerNotes string   `json:"speakerNotes,omitempty"`
	SlideNumber  int      `json:"slideNumber"`
}

// GenerateResponse is the body of every /api/generate reply.
type GenerateResponse struct {
	Success     bool           `json:"success"`
	DownloadURL string         `json:"downloadUrl,omitempty"`
	Preview     []SlidePreview `json:"preview,omitempty"`
	Error       string         `json:"error,omitempty"`
	Code        string         `json:"code,omitempty"`
}

// BuildPreview numbers the slides of a structure starting at 1.
func BuildPreview(structure *PresentationStructure) []SlidePreview {
	preview := make([]SlidePreview, len(structure.Slides))
	for i, slide := range structure.Slides {
		preview[i] = SlidePreview{
			Title:        slide.Title,
			Content:      slide.Content,
			SpeakerNotes: slide.SpeakerNotes,
			SlideNumber:  i + 1,
		}
	}
	return preview
}
