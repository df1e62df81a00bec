package models

// Intervention variants returned by the analyzer.
const (
	InterventionTypeCoaching = "ai_intervention"
	InterventionTypeComment  = "ai_comment"
)

// Escalation is the analyzer's risk read on a single message.
type Escalation struct {
	RiskLevel  string   `json:"riskLevel"`
	Confidence int      `json:"confidence"`
	Reasons    []string `json:"reasons,omitempty"`
}

// Intervention is the analyzer's decision to not deliver a message as-is.
// Type selects the variant: ai_intervention carries the coaching fields,
// ai_comment carries only Comment.
type Intervention struct {
	Type             string     `json:"type"`
	Validation       string     `json:"validation,omitempty"`
	Insight          string     `json:"insight,omitempty"`
	Tip              string     `json:"tip,omitempty"`
	RefocusQuestions []string   `json:"refocusQuestions,omitempty"`
	Rewrite1         string     `json:"rewrite1,omitempty"`
	Rewrite2         string     `json:"rewrite2,omitempty"`
	Comment          string     `json:"comment,omitempty"`
	Escalation       Escalation `json:"escalation"`
	Emotion          string     `json:"emotion,omitempty"`
}

// RoleContext identifies sender and receiver for role-aware analysis.
// ReceiverID is empty when the room has fewer than two participants.
type RoleContext struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId,omitempty"`
}

// AnalysisContext is everything the analyzer sees besides the message itself.
// Every field degrades independently to its zero value when the backing query
// fails; a partial context never blocks analysis.
type AnalysisContext struct {
	RecentMessages     []Message      // bounded, newest last, len <= 20
	Participants       []string       // stable per room
	ExistingContacts   []string       // contact names only
	ContactSummary     string
	TaskSummary        string
	FlagHistorySummary string
	Thread             *ThreadContext
	Role               RoleContext
}
