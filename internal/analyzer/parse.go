package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"mediator/internal/models"
)

// ErrUnparsable reports that the model's reply could not be decoded into a
// decision, even after fence stripping.
var ErrUnparsable = errors.New("analyzer response not parsable")

// decision is the raw JSON shape the model is instructed to produce.
type decision struct {
	Action     string            `json:"action"`
	Escalation models.Escalation `json:"escalation"`
	Emotion    struct {
		CurrentEmotion string `json:"currentEmotion"`
	} `json:"emotion"`
	Intervention struct {
		Validation       string   `json:"validation"`
		Insight          string   `json:"insight"`
		Tip              string   `json:"tip"`
		RefocusQuestions []string `json:"refocusQuestions"`
		Rewrite1         string   `json:"rewrite1"`
		Rewrite2         string   `json:"rewrite2"`
		Comment          string   `json:"comment"`
	} `json:"intervention"`
}

// StripFences removes a surrounding markdown code fence from an LLM reply.
// Models occasionally wrap JSON in ```json fences even when asked not to;
// stripping is a documented pre-processing step, applied in exactly one place.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseDecision turns a raw model reply into (nil, nil) for approval, an
// Intervention for INTERVENE/COMMENT, or ErrUnparsable.
func ParseDecision(raw string) (*models.Intervention, error) {
	clean := StripFences(raw)

	var d decision
	if err := json.Unmarshal([]byte(clean), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	switch strings.ToUpper(strings.TrimSpace(d.Action)) {
	case "STAY_SILENT", "":
		return nil, nil
	case "COMMENT":
		if strings.TrimSpace(d.Intervention.Comment) == "" {
			// A COMMENT with no text carries nothing worth inserting.
			return nil, nil
		}
		return &models.Intervention{
			Type:       models.InterventionTypeComment,
			Comment:    d.Intervention.Comment,
			Escalation: d.Escalation,
			Emotion:    d.Emotion.CurrentEmotion,
		}, nil
	case "INTERVENE":
		iv := d.Intervention
		if iv.Validation == "" || iv.Rewrite1 == "" || iv.Rewrite2 == "" {
			// Incomplete coaching payloads fall back to approval rather than
			// blocking valid communication.
			return nil, nil
		}
		return &models.Intervention{
			Type:             models.InterventionTypeCoaching,
			Validation:       iv.Validation,
			Insight:          iv.Insight,
			Tip:              iv.Tip,
			RefocusQuestions: iv.RefocusQuestions,
			Rewrite1:         iv.Rewrite1,
			Rewrite2:         iv.Rewrite2,
			Escalation:       d.Escalation,
			Emotion:          d.Emotion.CurrentEmotion,
		}, nil
	default:
		return nil, nil
	}
}

// parseMentions decodes the mention-detection reply.
func parseMentions(raw string) ([]models.MentionCandidate, error) {
	clean := StripFences(raw)

	var out struct {
		Mentions []models.MentionCandidate `json:"mentions"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}
	return out.Mentions, nil
}

// parseExtraction decodes the information-extraction reply and drops low
// confidence entries.
func parseExtraction(raw string) (*models.ExtractionResult, error) {
	clean := StripFences(raw)

	var result models.ExtractionResult
	if err := json.Unmarshal([]byte(clean), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	kept := result.Extractions[:0]
	for _, e := range result.Extractions {
		if e.Confidence == "high" || e.Confidence == "medium" {
			kept = append(kept, e)
		}
	}
	result.Extractions = kept
	result.ShouldUpdate = len(kept) > 0
	return &result, nil
}
