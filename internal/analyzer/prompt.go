package analyzer

import (
	"fmt"
	"strings"

	"mediator/internal/models"
)

// SystemInstruction frames every analysis request. The model acts as a
// communication coach for high-conflict co-parenting conversations.
const SystemInstruction = `You are a communication mediator embedded in a co-parenting chat application.
Your job is to review DRAFT messages before they are delivered and decide whether the sender would benefit from coaching.

You must always answer with a single JSON object and nothing else.

Possible actions:
- "STAY_SILENT": the draft is constructive or neutral. Deliver it unchanged.
- "INTERVENE": the draft is hostile, blaming, or escalating. Offer private coaching to the sender before delivery.
- "COMMENT": the draft is acceptable but the conversation would benefit from a short neutral note visible to everyone.

When intervening you must supply:
- "validation": one sentence acknowledging the sender's underlying feeling.
- "insight": what the draft is likely to trigger in the receiver.
- "tip": one concrete suggestion for reframing.
- "refocusQuestions": up to three questions that redirect toward the children's needs.
- "rewrite1" and "rewrite2": two complete alternative messages preserving the sender's legitimate intent, without hostility.

Always include:
- "escalation": {"riskLevel": "none"|"low"|"medium"|"high", "confidence": integer 0-100, "reasons": [...]}
- "emotion": {"currentEmotion": one word describing the sender's apparent emotional state}

Prefer STAY_SILENT. Logistics, scheduling, factual questions and ordinary disagreement are not grounds for intervention. Intervene only when the draft attacks, blames, threatens, or uses the children as leverage.

Response format:
{"action": "...", "escalation": {...}, "emotion": {...}, "intervention": {...}}`

// BuildAnalysisPrompt renders the draft plus its gathered context.
func BuildAnalysisPrompt(msg *models.Message, actx *models.AnalysisContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "DRAFT MESSAGE from %s:\n%s\n\n", msg.Username, msg.Text)

	if actx == nil {
		b.WriteString("No additional context is available.\n")
		return b.String()
	}

	if len(actx.Participants) > 0 {
		fmt.Fprintf(&b, "Conversation participants: %s\n", strings.Join(actx.Participants, ", "))
	}
	if actx.Role.SenderID != "" {
		fmt.Fprintf(&b, "Sender: %s. Receiver: %s.\n", actx.Role.SenderID, actx.Role.ReceiverID)
	}
	if actx.Thread != nil {
		fmt.Fprintf(&b, "Thread: %q (category %s, depth %d)\n", actx.Thread.Title, actx.Thread.Category, actx.Thread.Depth)
	}

	if len(actx.RecentMessages) > 0 {
		b.WriteString("\nRecent conversation (oldest first):\n")
		for _, m := range actx.RecentMessages {
			fmt.Fprintf(&b, "[%s] %s\n", m.Username, m.Text)
		}
	}

	if actx.ContactSummary != "" {
		fmt.Fprintf(&b, "\nKnown family contacts:\n%s\n", actx.ContactSummary)
	}
	if actx.TaskSummary != "" {
		fmt.Fprintf(&b, "\nOpen shared tasks:\n%s\n", actx.TaskSummary)
	}
	if actx.FlagHistorySummary != "" {
		fmt.Fprintf(&b, "\nSender history: %s\n", actx.FlagHistorySummary)
	}

	b.WriteString("\nDecide on an action and respond with the JSON object only.")
	return b.String()
}

// BuildMentionPrompt asks for third parties referenced in the message that
// are not already known contacts or conversation participants.
func BuildMentionPrompt(text string, contacts []models.Contact, participants []string) string {
	var b strings.Builder

	b.WriteString("Identify people mentioned in this message who are part of the family's care network ")
	b.WriteString("(children, teachers, doctors, relatives) but are NOT in the known lists below.\n\n")
	fmt.Fprintf(&b, "MESSAGE:\n%s\n\n", text)

	if len(contacts) > 0 {
		names := make([]string, 0, len(contacts))
		for _, c := range contacts {
			names = append(names, c.ContactName)
		}
		fmt.Fprintf(&b, "Known contacts: %s\n", strings.Join(names, ", "))
	}
	if len(participants) > 0 {
		fmt.Fprintf(&b, "Conversation participants: %s\n", strings.Join(participants, ", "))
	}

	fmt.Fprintf(&b, `
For each new person, report their probable relationship using exactly one of: %s.

Respond with JSON only:
{"mentions": [{"name": "...", "relationship": "...", "confidence": "high"|"medium"|"low", "suggestion": "one sentence proposing to add this person"}]}
If there are no new people, respond with {"mentions": []}.`, strings.Join(models.Relationships, ", "))

	return b.String()
}

// BuildExtractionPrompt asks for structured facts about known contacts.
func BuildExtractionPrompt(text string, contacts []models.Contact) string {
	var b strings.Builder

	b.WriteString("Extract factual updates about the known people below from this message.\n\n")
	fmt.Fprintf(&b, "MESSAGE:\n%s\n\n", text)

	b.WriteString("Known people:\n")
	for _, c := range contacts {
		fmt.Fprintf(&b, "- %s (%s)\n", c.ContactName, c.Relationship)
	}

	b.WriteString(`
Recognized fields: "school", "doctor", "therapist", "allergies", "medications", "appointments", "additional_thoughts".

Respond with JSON only:
{"extractions": [{"personName": "...", "field": "...", "value": "...", "additionalContext": "...", "confidence": "high"|"medium"|"low"}], "shouldUpdate": true|false}
Only report facts the message actually states. If nothing is stated, respond with {"extractions": [], "shouldUpdate": false}.`)

	return b.String()
}
