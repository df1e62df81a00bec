package mediation

import (
	"context"
	"testing"

	"mediator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractorMergesAdditiveFields(t *testing.T) {
	contacts := &fakeContactRepo{
		contacts: []models.Contact{{
			ID:           7,
			ContactName:  "Emma",
			Relationship: models.RelationshipChild,
			HealthDoctor: "Dr. Lee",
		}},
	}
	llm := &fakeAnalyzer{
		extract: &models.ExtractionResult{
			ShouldUpdate: true,
			Extractions: []models.Extraction{
				{PersonName: "Emma", Field: "doctor", Value: "Dr. Patel", Confidence: "high"},
				{PersonName: "Emma", Field: "school", Value: "Lincoln Elementary", Confidence: "high"},
			},
		},
	}
	e := NewExtractor(llm, contacts, zap.NewNop())
	conn := newFakeConn("alice", 1)

	e.Run(context.Background(), conn, &models.Message{RoomID: "room-1", Username: "alice", Text: "Emma saw Dr. Patel"}, 1)

	updates := contacts.updates[7]
	require.NotNil(t, updates)
	// Doctors accumulate, school overwrites.
	assert.Equal(t, "Dr. Lee, Dr. Patel", updates["health_doctor"])
	assert.Equal(t, "Lincoln Elementary", updates["school"])

	events := conn.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, EventSystemNotice, events[0].event)
}

func TestExtractorSkipsDuplicateAdditiveValue(t *testing.T) {
	contacts := &fakeContactRepo{
		contacts: []models.Contact{{ID: 7, ContactName: "Emma", HealthAllergies: "peanuts, dairy"}},
	}
	llm := &fakeAnalyzer{
		extract: &models.ExtractionResult{
			ShouldUpdate: true,
			Extractions: []models.Extraction{
				{PersonName: "Emma", Field: "allergies", Value: "Peanuts", Confidence: "high"},
			},
		},
	}
	e := NewExtractor(llm, contacts, zap.NewNop())
	conn := newFakeConn("alice", 1)

	e.Run(context.Background(), conn, &models.Message{RoomID: "room-1", Text: "Emma is allergic to peanuts"}, 1)

	updates := contacts.updates[7]
	require.NotNil(t, updates)
	assert.Equal(t, "peanuts, dairy", updates["health_allergies"])
}

func TestExtractorAppointmentsLandInNotes(t *testing.T) {
	contacts := &fakeContactRepo{
		contacts: []models.Contact{{ID: 7, ContactName: "Emma"}},
	}
	llm := &fakeAnalyzer{
		extract: &models.ExtractionResult{
			ShouldUpdate: true,
			Extractions: []models.Extraction{
				{PersonName: "Emma", Field: "appointments", Value: "Dentist on Friday", AdditionalContext: "3pm", Confidence: "medium"},
			},
		},
	}
	e := NewExtractor(llm, contacts, zap.NewNop())
	conn := newFakeConn("alice", 1)

	e.Run(context.Background(), conn, &models.Message{RoomID: "room-1", Text: "Emma has the dentist Friday at 3"}, 1)

	updates := contacts.updates[7]
	require.NotNil(t, updates)
	assert.Equal(t, "Dentist on Friday (3pm)", updates["additional_thoughts"])
}

func TestExtractorMatchesContactsCaseInsensitively(t *testing.T) {
	contacts := &fakeContactRepo{
		contacts: []models.Contact{{ID: 3, ContactName: "Smith"}},
	}
	llm := &fakeAnalyzer{
		extract: &models.ExtractionResult{
			ShouldUpdate: true,
			Extractions: []models.Extraction{
				{PersonName: "dr. smith", Field: "school", Value: "Northside Clinic", Confidence: "high"},
			},
		},
	}
	e := NewExtractor(llm, contacts, zap.NewNop())
	conn := newFakeConn("alice", 1)

	e.Run(context.Background(), conn, &models.Message{RoomID: "room-1", Text: "dr. smith moved offices"}, 1)

	require.NotNil(t, contacts.updates[3])
}

func TestExtractorNoopWithoutContacts(t *testing.T) {
	contacts := &fakeContactRepo{}
	llm := &fakeAnalyzer{
		extract: &models.ExtractionResult{ShouldUpdate: true},
	}
	e := NewExtractor(llm, contacts, zap.NewNop())
	conn := newFakeConn("alice", 1)

	e.Run(context.Background(), conn, &models.Message{RoomID: "room-1", Text: "anything"}, 1)

	assert.Empty(t, contacts.updates)
	assert.Empty(t, conn.emitted())
}
