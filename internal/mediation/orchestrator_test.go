package mediation

import (
	"context"
	"errors"
	"testing"

	"mediator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coachingIntervention() *models.Intervention {
	return &models.Intervention{
		Type:       models.InterventionTypeCoaching,
		Validation: "It sounds like you're frustrated about the schedule.",
		Insight:    "Accusations tend to make the other parent defensive.",
		Tip:        "Name the problem, not the person.",
		Rewrite1:   "I'm worried about the late pickups. Can we talk about the schedule?",
		Rewrite2:   "The pickups have been late recently. What can we do differently?",
		Escalation: models.Escalation{RiskLevel: "medium", Confidence: 80},
	}
}

func TestHandleDraftApproval(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{} // returns nil intervention
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "Can we move pickup to 4pm on Thursday?"})

	require.Equal(t, 1, llm.callCount())

	saved := msgs.savedMessages()
	require.Len(t, saved, 1)
	assert.Equal(t, "Can we move pickup to 4pm on Thursday?", saved[0].Text)
	assert.Equal(t, models.MessageTypeUser, saved[0].Type)
	assert.False(t, saved[0].Flagged)

	sent := h.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, EventNewMessage, sent[0].event)
	assert.Equal(t, "room-1", sent[0].roomID)

	records := stats.recorded()
	require.Len(t, records, 1)
	assert.False(t, records[0].flagged)

	// The sender got the analyzing acknowledgment, then the all-clear.
	events := conn.emitted()
	require.Len(t, events, 2)
	assert.Equal(t, EventDraftCoaching, events[0].event)
	ack, ok := events[0].payload.(CoachingPayload)
	require.True(t, ok)
	assert.True(t, ack.Analyzing)
	assert.False(t, ack.ShouldSend)

	assert.Equal(t, EventDraftCoaching, events[1].event)
	resolved, ok := events[1].payload.(CoachingPayload)
	require.True(t, ok)
	assert.False(t, resolved.Analyzing)
	assert.True(t, resolved.ShouldSend)
	assert.Equal(t, "Can we move pickup to 4pm on Thursday?", resolved.OriginalText)
}

func TestHandleDraftCarriesDisplayName(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	o := newTestPipeline(&fakeAnalyzer{}, msgs, stats, h)
	conn := newFakeConn("alice", 1)
	conn.display = "Alice M."

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "Can we move pickup to 4pm on Thursday?"})

	saved := msgs.savedMessages()
	require.Len(t, saved, 1)
	assert.Equal(t, "alice", saved[0].Username)
	assert.Equal(t, "Alice M.", saved[0].DisplayName)
}

func TestHandleDraftIntervention(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{
		analyzeFn: func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
			return coachingIntervention(), nil
		},
	}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "This is entirely your fault and you know it"})

	// A coached draft is never persisted or broadcast.
	assert.Empty(t, msgs.savedMessages())
	assert.Empty(t, h.sent())

	records := stats.recorded()
	require.Len(t, records, 1)
	assert.True(t, records[0].flagged)

	events := conn.emitted()
	require.Len(t, events, 2)
	assert.Equal(t, EventDraftCoaching, events[1].event)
	payload, ok := events[1].payload.(CoachingPayload)
	require.True(t, ok)
	assert.False(t, payload.Analyzing)
	assert.False(t, payload.ShouldSend)
	require.NotNil(t, payload.ObserverData)
	assert.NotEmpty(t, payload.ObserverData.Rewrite1)
	assert.NotEmpty(t, payload.ObserverData.Rewrite2)
}

func TestHandleDraftCoachingSkippedWhenDisconnected(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{
		analyzeFn: func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
			return coachingIntervention(), nil
		},
	}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)
	o.spawn = func(f func()) {
		conn.disconnect()
		f()
	}

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "This is entirely your fault"})

	// Stats still counted, nothing delivered anywhere.
	require.Len(t, stats.recorded(), 1)
	assert.Empty(t, msgs.savedMessages())
	assert.Empty(t, h.sent())
	events := conn.emitted()
	require.Len(t, events, 1) // only the analyzing ack from before the disconnect
	assert.Equal(t, EventDraftCoaching, events[0].event)
}

func TestHandleDraftComment(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{
		analyzeFn: func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
			return &models.Intervention{
				Type:    models.InterventionTypeComment,
				Comment: "A reminder: decisions about Emma work best when both parents weigh in.",
			}, nil
		},
	}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "I already told the school Emma is switching classes"})

	// Original lands first, then the comment, both persisted and broadcast.
	saved := msgs.savedMessages()
	require.Len(t, saved, 2)
	assert.Equal(t, models.MessageTypeUser, saved[0].Type)
	assert.Equal(t, models.MessageTypeAIComment, saved[1].Type)

	sent := h.sent()
	require.Len(t, sent, 2)
	first, ok := sent[0].payload.(*models.Message)
	require.True(t, ok)
	assert.Equal(t, models.MessageTypeUser, first.Type)
	second, ok := sent[1].payload.(*models.Message)
	require.True(t, ok)
	assert.Equal(t, models.MessageTypeAIComment, second.Type)
}

func TestHandleDraftCommentRateLimited(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{
		analyzeFn: func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
			return &models.Intervention{Type: models.InterventionTypeComment, Comment: "A gentle note."}, nil
		},
	}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "first update about the school schedule"})
	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "second update about the school schedule"})

	// First draft produced original+comment; the second degraded to plain
	// delivery because of the per-room comment interval.
	saved := msgs.savedMessages()
	require.Len(t, saved, 3)
	assert.Equal(t, models.MessageTypeAIComment, saved[1].Type)
	assert.Equal(t, models.MessageTypeUser, saved[2].Type)
}

func TestHandleDraftAcceptedRewriteSkipsAnalysis(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	rewrite := "I'm worried about the late pickups. Can we talk about the schedule?"
	o.HandleDraft(context.Background(), conn, "room-1", Draft{
		Text:                 rewrite,
		IsPreApprovedRewrite: true,
		OriginalRewrite:      rewrite,
	})

	assert.Equal(t, 0, llm.callCount())
	saved := msgs.savedMessages()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].IsRevision)
}

func TestHandleDraftEditedRewriteIsReanalyzed(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{
		Text:                 "You never stick to the schedule and it has to stop",
		IsPreApprovedRewrite: true,
		OriginalRewrite:      "I'm worried about the late pickups. Can we talk about the schedule?",
	})

	assert.Equal(t, 1, llm.callCount())
	saved := msgs.savedMessages()
	require.Len(t, saved, 1)
	assert.False(t, saved[0].IsRevision)
}

func TestHandleDraftBypass(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{
		Text:            "Emergency: Emma's school called, pick her up now",
		BypassMediation: true,
	})

	assert.Equal(t, 0, llm.callCount())
	saved := msgs.savedMessages()
	require.Len(t, saved, 1)
	assert.True(t, saved[0].BypassedMediation)
	require.Len(t, h.sent(), 1)
}

func TestHandleDraftBypassBlockedOnHostility(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{
		Text:            "you are a terrible person",
		BypassMediation: true,
	})

	assert.Equal(t, 0, llm.callCount())
	assert.Empty(t, msgs.savedMessages())
	assert.Empty(t, h.sent())

	events := conn.emitted()
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].event)
	errEvent, ok := events[0].payload.(ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, CodeBypassBlockedDirectHostility, errEvent.Code)
}

func TestHandleDraftFailsOpenOnAnalyzerError(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{
		analyzeFn: func(msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error) {
			return nil, errors.New("model unavailable")
		},
	}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "Can we revisit the holiday schedule?"})

	require.Len(t, msgs.savedMessages(), 1)
	require.Len(t, h.sent(), 1)
}

func TestHandleDraftGreetingSkipsAnalysis(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	llm := &fakeAnalyzer{}
	o := newTestPipeline(llm, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "good morning"})

	assert.Equal(t, 0, llm.callCount())
	require.Len(t, msgs.savedMessages(), 1)
	require.Len(t, h.sent(), 1)
	// No analyzing ack for fast-path drafts.
	assert.Empty(t, conn.emitted())
}

func TestHandleDraftWithoutAnalyzer(t *testing.T) {
	msgs := &fakeMessageRepo{}
	stats := &fakeStatsRepo{}
	h := &fakeHub{}
	o := newTestPipeline(nil, msgs, stats, h)
	conn := newFakeConn("alice", 1)

	o.HandleDraft(context.Background(), conn, "room-1", Draft{Text: "You never listen to me at all"})

	require.Len(t, msgs.savedMessages(), 1)
	require.Len(t, h.sent(), 1)
}
