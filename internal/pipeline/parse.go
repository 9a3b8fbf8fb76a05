package pipeline

import (
	"encoding/json"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// cleanerResponse is the optional structured payload the cleaner LLM may
// return: cleaned_text plus optional structured metadata. Requested via
// Params.ResponseMIMEType = "application/json".
type cleanerResponse struct {
	CleanedText     string               `json:"cleaned_text"`
	Confidence      models.Confidence    `json:"confidence"`
	CleaningLevel   models.CleaningLevel `json:"cleaning_level"`
	ContextDetected string               `json:"context_detected"`
	Corrections     []models.Correction  `json:"corrections"`
}

// parseCleanerText parses the cleaner LLM's raw text output. A
// well-formed JSON object is used verbatim; plain text (no JSON envelope)
// is treated as the cleaned text itself with conservative defaults. This
// is a best-effort parse, never an error: anything the LLM returns still
// produces a usable CleanedTurn.
func parseCleanerText(text, rawText string) cleanerResponse {
	var parsed cleanerResponse
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed.CleanedText != "" {
		if parsed.Confidence == "" {
			parsed.Confidence = models.ConfidenceMedium
		}
		if parsed.CleaningLevel == "" {
			parsed.CleaningLevel = cleaningLevelFor(rawText, parsed.CleanedText)
		}
		return parsed
	}

	return cleanerResponse{
		CleanedText:   text,
		Confidence:    models.ConfidenceMedium,
		CleaningLevel: cleaningLevelFor(rawText, text),
	}
}

func cleaningLevelFor(rawText, cleanedText string) models.CleaningLevel {
	if rawText == cleanedText {
		return models.CleaningLevelNone
	}
	return models.CleaningLevelFull
}
