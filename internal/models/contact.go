package models

import (
	"strings"
	"time"
)

// Relationship values a contact suggestion may carry.
const (
	RelationshipChild        = "Child"
	RelationshipCoParent     = "Co-Parent"
	RelationshipPartner      = "Partner"
	RelationshipChildTeacher = "Child's Teacher"
	RelationshipFamily       = "Family"
	RelationshipFriend       = "Friend"
	RelationshipOther        = "Other"
)

// Relationships lists the fixed enumeration in display order.
var Relationships = []string{
	RelationshipChild,
	RelationshipCoParent,
	RelationshipPartner,
	RelationshipChildTeacher,
	RelationshipFamily,
	RelationshipFriend,
	RelationshipOther,
}

// NormalizeRelationship maps free-form analyzer output onto the fixed
// enumeration, defaulting to Other.
func NormalizeRelationship(s string) string {
	for _, r := range Relationships {
		if strings.EqualFold(s, r) {
			return r
		}
	}
	return RelationshipOther
}

// Contact represents a row of the 'contacts' table, including the structured
// profile fields the information extractor merges into.
type Contact struct {
	ID                 int64     `db:"id" json:"id"`
	UserID             int64     `db:"user_id" json:"user_id"`
	ContactName        string    `db:"contact_name" json:"contact_name"`
	Relationship       string    `db:"relationship" json:"relationship"`
	School             string    `db:"school" json:"school,omitempty"`
	HealthDoctor       string    `db:"health_doctor" json:"health_doctor,omitempty"`
	HealthTherapist    string    `db:"health_therapist" json:"health_therapist,omitempty"`
	HealthAllergies    string    `db:"health_allergies" json:"health_allergies,omitempty"`
	HealthMedications  string    `db:"health_medications" json:"health_medications,omitempty"`
	AdditionalThoughts string    `db:"additional_thoughts" json:"additional_thoughts,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// ContactSuggestion is produced per-message by the mention detector. It is
// advisory state only; it may be cached on the originating session until
// consumed or superseded.
type ContactSuggestion struct {
	DetectedName         string `json:"detectedName"`
	DetectedRelationship string `json:"detectedRelationship"`
	SuggestionText       string `json:"suggestionText"`
	MessageContext       string `json:"messageContext"`
}

// MentionCandidate is a raw person mention returned by the analyzer before
// the detector's confidence and exclusion filtering.
type MentionCandidate struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	Confidence   string `json:"confidence"` // high|medium|low
	Suggestion   string `json:"suggestion"`
}

// Extraction is one structured fact pulled out of an approved message.
type Extraction struct {
	PersonName        string `json:"personName"`
	Field             string `json:"field"`
	Value             string `json:"value"`
	AdditionalContext string `json:"additionalContext,omitempty"`
	Confidence        string `json:"confidence"`
}

// ExtractionResult is the analyzer's full extraction response.
type ExtractionResult struct {
	Extractions  []Extraction `json:"extractions"`
	ShouldUpdate bool         `json:"shouldUpdate"`
}
