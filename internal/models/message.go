package models

import "time"

// Message types as they appear on the wire and in the messages table.
const (
	MessageTypeUser              = "user"
	MessageTypeSystem            = "system"
	MessageTypeAIComment         = "ai_comment"
	MessageTypeContactSuggestion = "contact_suggestion"
)

// Message represents a chat message stored in the 'messages' table. The
// pipeline sets IsRevision/BypassedMediation/Flagged before first persistence;
// after that the row is immutable.
type Message struct {
	ID                string    `db:"id" json:"id"`
	RoomID            string    `db:"room_id" json:"roomId"`
	Username          string    `db:"username" json:"username"`
	DisplayName       string    `db:"display_name" json:"displayName,omitempty"`
	Text              string    `db:"text" json:"text"`
	Type              string    `db:"type" json:"type"`
	ThreadID          *string   `db:"thread_id" json:"threadId,omitempty"`
	Timestamp         time.Time `db:"timestamp" json:"timestamp"`
	IsRevision        bool      `db:"is_revision" json:"isRevision,omitempty"`
	BypassedMediation bool      `db:"bypassed_mediation" json:"bypassedMediation,omitempty"`
	Flagged           bool      `db:"flagged" json:"flagged,omitempty"`
	Private           bool      `db:"private" json:"private,omitempty"`

	// Extra envelope fields for contact_suggestion messages; not persisted.
	DetectedName         string `db:"-" json:"detectedName,omitempty"`
	DetectedRelationship string `db:"-" json:"detectedRelationship,omitempty"`
}

// RoomMember is a row of the 'room_members' table joined with users.
type RoomMember struct {
	UserID   int64  `db:"user_id"`
	Username string `db:"username"`
}

// ThreadContext is the metadata of the thread a message belongs to.
type ThreadContext struct {
	Title    string  `db:"title"`
	Category string  `db:"category"`
	Depth    int     `db:"depth"`
	ParentID *string `db:"parent_id"`
}

// Task is an open shared task surfaced to the analyzer as context.
type Task struct {
	ID      int64     `db:"id"`
	RoomID  string    `db:"room_id"`
	Title   string    `db:"title"`
	DueDate *time.Time `db:"due_date"`
	Done    bool      `db:"done"`
}

// CommunicationStats tracks best-effort flagged/total counters per user and room.
type CommunicationStats struct {
	UserID        int64     `db:"user_id"`
	RoomID        string    `db:"room_id"`
	TotalMessages int64     `db:"total_messages"`
	FlaggedCount  int64     `db:"flagged_count"`
	UpdatedAt     time.Time `db:"updated_at"`
}
