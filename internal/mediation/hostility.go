package mediation

import (
	"regexp"
	"strings"
)

// hostilityPatterns match direct second-person attacks. The list is
// deliberately narrow: it guards the bypass path only, where no analyzer
// review happens, so false positives here block legitimate urgent messages.
var hostilityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\byou\s+(?:are|'re)\s+(?:a\s+|an\s+|such\s+a\s+|so\s+)?(?:\w+\s+){0,2}?(?:idiot|stupid|pathetic|worthless|terrible|horrible|awful|useless|liar|selfish|crazy|insane|disgusting)`),
	regexp.MustCompile(`(?i)\byou\s+(?:always|never)\s+(?:ruin|destroy|fail|lie|screw)`),
	regexp.MustCompile(`(?i)\b(?:shut\s+up|screw\s+you|fuck\s+you|go\s+to\s+hell)\b`),
	regexp.MustCompile(`(?i)\bi\s+hate\s+you\b`),
	regexp.MustCompile(`(?i)\byou(?:'re|\s+are)\s+(?:the\s+)?(?:worst|problem)\b`),
}

// IsDirectlyHostile reports whether the text contains a direct personal
// attack. It is a fast lexical check, not a substitute for analysis.
func IsDirectlyHostile(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" {
		return false
	}
	for _, p := range hostilityPatterns {
		if p.MatchString(t) {
			return true
		}
	}
	return false
}

// greetingPatterns match short pleasantries that never need analysis.
var greetingPattern = regexp.MustCompile(`(?i)^(?:hi|hello|hey|good\s+(?:morning|afternoon|evening|night)|thanks|thank\s+you|ok(?:ay)?|sounds\s+good|yes|no|sure|got\s+it|see\s+you|bye|good\s*bye|np|no\s+problem|you(?:'re|\s+are)\s+welcome)[.!?\s]*$`)

// IsGreetingOrPolite reports whether the text is a short greeting or
// courtesy phrase. Such drafts are approved without an analyzer round trip.
func IsGreetingOrPolite(text string) bool {
	t := strings.TrimSpace(text)
	if t == "" || len(t) > 60 {
		return false
	}
	return greetingPattern.MatchString(t)
}
