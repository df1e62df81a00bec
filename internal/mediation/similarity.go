package mediation

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// RewriteSimilarityThreshold is the minimum Sørensen–Dice similarity between
// a submitted draft and the rewrite it claims to be based on for the draft to
// skip re-analysis. Below it, a "rewrite" has drifted enough to be treated as
// a new message.
const RewriteSimilarityThreshold = 0.95

// RewriteSimilarity measures how close a submitted draft is to the suggested
// rewrite it originated from, on bigrams, case-insensitively.
func RewriteSimilarity(draft, rewrite string) float64 {
	draft = strings.TrimSpace(draft)
	rewrite = strings.TrimSpace(rewrite)
	if draft == "" || rewrite == "" {
		return 0
	}
	if strings.EqualFold(draft, rewrite) {
		return 1
	}

	m := metrics.NewSorensenDice()
	m.CaseSensitive = false
	m.NgramSize = 2
	return strutil.Similarity(draft, rewrite, m)
}

// IsAcceptedRewrite reports whether a draft should be treated as the sender
// accepting a suggested rewrite, possibly with minor edits.
func IsAcceptedRewrite(draft, rewrite string) bool {
	return RewriteSimilarity(draft, rewrite) >= RewriteSimilarityThreshold
}
