package analyzer

import (
	"testing"

	"mediator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain json", `{"action":"STAY_SILENT"}`, `{"action":"STAY_SILENT"}`},
		{"json fence", "```json\n{\"action\":\"STAY_SILENT\"}\n```", `{"action":"STAY_SILENT"}`},
		{"bare fence", "```\n{}\n```", `{}`},
		{"surrounding whitespace", "  {}  ", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}

func TestParseDecisionStaySilent(t *testing.T) {
	iv, err := ParseDecision(`{"action": "STAY_SILENT", "escalation": {"riskLevel": "none"}}`)
	require.NoError(t, err)
	assert.Nil(t, iv)
}

func TestParseDecisionIntervene(t *testing.T) {
	raw := "```json\n" + `{
		"action": "INTERVENE",
		"escalation": {"riskLevel": "high", "confidence": 90, "reasons": ["blame"]},
		"emotion": {"currentEmotion": "anger"},
		"intervention": {
			"validation": "You sound frustrated.",
			"insight": "Blame invites defensiveness.",
			"tip": "Describe the problem instead.",
			"refocusQuestions": ["What outcome do you want for Emma?"],
			"rewrite1": "I'm concerned about the schedule. Can we talk?",
			"rewrite2": "The schedule isn't working for me. What are our options?"
		}
	}` + "\n```"

	iv, err := ParseDecision(raw)
	require.NoError(t, err)
	require.NotNil(t, iv)
	assert.Equal(t, models.InterventionTypeCoaching, iv.Type)
	assert.Equal(t, "high", iv.Escalation.RiskLevel)
	assert.Equal(t, "anger", iv.Emotion)
	assert.NotEmpty(t, iv.Rewrite1)
	assert.NotEmpty(t, iv.Rewrite2)
	assert.Len(t, iv.RefocusQuestions, 1)
}

func TestParseDecisionIncompleteInterventionFallsBack(t *testing.T) {
	iv, err := ParseDecision(`{"action": "INTERVENE", "intervention": {"validation": "hm"}}`)
	require.NoError(t, err)
	assert.Nil(t, iv)
}

func TestParseDecisionComment(t *testing.T) {
	iv, err := ParseDecision(`{"action": "COMMENT", "intervention": {"comment": "A neutral note."}}`)
	require.NoError(t, err)
	require.NotNil(t, iv)
	assert.Equal(t, models.InterventionTypeComment, iv.Type)
	assert.Equal(t, "A neutral note.", iv.Comment)
}

func TestParseDecisionEmptyCommentFallsBack(t *testing.T) {
	iv, err := ParseDecision(`{"action": "COMMENT", "intervention": {"comment": "  "}}`)
	require.NoError(t, err)
	assert.Nil(t, iv)
}

func TestParseDecisionUnparsable(t *testing.T) {
	_, err := ParseDecision("I think the message is fine.")
	assert.ErrorIs(t, err, ErrUnparsable)
}

func TestParseExtractionFiltersLowConfidence(t *testing.T) {
	result, err := parseExtraction(`{
		"extractions": [
			{"personName": "Emma", "field": "doctor", "value": "Dr. Patel", "confidence": "high"},
			{"personName": "Emma", "field": "school", "value": "maybe Lincoln?", "confidence": "low"}
		],
		"shouldUpdate": true
	}`)
	require.NoError(t, err)
	require.Len(t, result.Extractions, 1)
	assert.Equal(t, "Dr. Patel", result.Extractions[0].Value)
	assert.True(t, result.ShouldUpdate)
}

func TestParseExtractionAllLowConfidence(t *testing.T) {
	result, err := parseExtraction(`{
		"extractions": [{"personName": "Emma", "field": "doctor", "value": "?", "confidence": "low"}],
		"shouldUpdate": true
	}`)
	require.NoError(t, err)
	assert.Empty(t, result.Extractions)
	assert.False(t, result.ShouldUpdate)
}

func TestParseMentions(t *testing.T) {
	mentions, err := parseMentions("```json\n" + `{"mentions": [{"name": "Ms. Rivera", "relationship": "Child's Teacher", "confidence": "high", "suggestion": "Add Ms. Rivera?"}]}` + "\n```")
	require.NoError(t, err)
	require.Len(t, mentions, 1)
	assert.Equal(t, "Ms. Rivera", mentions[0].Name)
}
