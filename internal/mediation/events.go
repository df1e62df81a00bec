package mediation

import (
	"context"

	"mediator/internal/models"
)

// Socket event names shared between the orchestrator and the websocket layer.
const (
	EventNewMessage        = "new_message"
	EventDraftCoaching     = "draft_coaching"
	EventContactSuggestion = "contact_suggestion"
	EventSystemNotice      = "system_notice"
	EventError             = "error"
)

// Error codes sent to clients when a draft is rejected outright.
const (
	CodeBypassBlockedDirectHostility = "bypass_blocked_direct_hostility"
)

// Draft is a message submission as it arrives from a client, before any
// mediation decision has been made.
type Draft struct {
	Text                 string
	ThreadID             *string
	IsPreApprovedRewrite bool
	OriginalRewrite      string
	BypassMediation      bool
}

// CoachingPayload is the draft_coaching event body. The first emission per
// draft has Analyzing=true and no ObserverData; the second either carries the
// analyzer's coaching, or has ShouldSend=true when the draft was cleared for
// delivery.
type CoachingPayload struct {
	Analyzing    bool          `json:"analyzing"`
	ShouldSend   bool          `json:"shouldSend"`
	RiskLevel    string        `json:"riskLevel,omitempty"`
	OriginalText string        `json:"originalText,omitempty"`
	ObserverData *ObserverData `json:"observerData,omitempty"`
}

// ObserverData is the coaching content shown privately to the sender.
type ObserverData struct {
	AxiomsFired      []string          `json:"axiomsFired,omitempty"`
	Explanation      string            `json:"explanation"`
	Tip              string            `json:"tip,omitempty"`
	RefocusQuestions []string          `json:"refocusQuestions,omitempty"`
	Rewrite1         string            `json:"rewrite1"`
	Rewrite2         string            `json:"rewrite2"`
	Escalation       models.Escalation `json:"escalation"`
	Emotion          string            `json:"emotion,omitempty"`
}

// ErrorEvent is the error event body.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Conn is the per-client session surface the pipeline emits private events
// through. Alive reports whether the underlying socket is still open; every
// private emission must be preceded by a liveness check because analysis
// outlives many sessions.
type Conn interface {
	ID() string
	Username() string
	DisplayName() string
	UserID() int64
	Alive() bool
	Emit(event string, payload interface{}) error
}

// Broadcaster delivers an event to every open session in a room.
type Broadcaster interface {
	Broadcast(roomID, event string, payload interface{})
}

// SessionLister reports the usernames with at least one open session in a
// room. It backs the participant fallback when room membership is empty.
type SessionLister interface {
	ActiveUsernames(roomID string) []string
}

// Analyzer is the language-model surface of the pipeline. A nil Intervention
// with a nil error means the draft passes unchanged.
type Analyzer interface {
	Analyze(ctx context.Context, msg *models.Message, actx *models.AnalysisContext) (*models.Intervention, error)
	DetectMentions(ctx context.Context, text string, contacts []models.Contact, participants []string) ([]models.MentionCandidate, error)
	ExtractInformation(ctx context.Context, text string, contacts []models.Contact) (*models.ExtractionResult, error)
}
