package services

import (
	"fmt"
	"strings"
)

const presentationSystemPrompt = "You are an expert presentation designer. Create structured presentation content from the given text."

// BuildStructurePrompt builds the single-turn prompt asking for a JSON slide outline.
func BuildStructurePrompt(text, guidance string, speakerNotes bool) string {
	var b strings.Builder

	b.WriteString("Please analyze the following text and create a structured presentation.")
	if g := strings.TrimSpace(guidance); g != "" {
		b.WriteString(fmt.Sprintf(" Follow this guidance: %s", g))
	}
	b.WriteString("\n\nText to analyze:\n")
	b.WriteString(text)
	b.WriteString("\n\n")

	b.WriteString("Create a presentation structure with:\n")
	b.WriteString("1. A compelling title for the overall presentation\n")
	b.WriteString("2. 6-10 slides with clear titles and bullet points\n")
	b.WriteString("3. Each slide should have 3-5 bullet points maximum\n")
	b.WriteString("4. Make it engaging and well-structured\n")
	b.WriteString("5. Ensure logical flow between slides\n")
	if speakerNotes {
		b.WriteString("6. Include detailed speaker notes for each slide to help with presentation delivery\n")
	}

	b.WriteString("\nReturn the result as a JSON object with this exact structure:\n")
	b.WriteString("{\n")
	b.WriteString("  \"title\": \"Overall Presentation Title\",\n")
	b.WriteString("  \"slides\": [\n")
	b.WriteString("    {\n")
	b.WriteString("      \"title\": \"Slide Title\",\n")
	b.WriteString("      \"content\": [\"bullet point 1\", \"bullet point 2\", \"bullet point 3\"],\n")
	if speakerNotes {
		b.WriteString("      \"speakerNotes\": \"Detailed speaker notes explaining the slide content, key points to emphasize, and transition to next slide\"\n")
	} else {
		b.WriteString("      \"speakerNotes\": \"\"\n")
	}
	b.WriteString("    }\n")
	b.WriteString("  ]\n")
	b.WriteString("}\n\n")

	b.WriteString("Important:\n")
	b.WriteString("- Keep bullet points concise but informative\n")
	b.WriteString("- Ensure each slide has a clear focus\n")
	b.WriteString("- Create smooth transitions between slides\n")
	if speakerNotes {
		b.WriteString("- Speaker notes should be comprehensive and helpful for presentation delivery\n")
	}
	b.WriteString("- Only return the JSON object, no additional text.")

	return b.String()
}
