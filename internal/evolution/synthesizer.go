package evolution

import (
	"fmt"
	"strings"
	"time"
)

// synthesizeRuleText composes the canonical rule text for a pattern.
//
// The function is pure: identical (PatternID, Category, LastDescription,
// LastSolution, Occurrences) always yields byte-identical text. That
// determinism matters — if the engine replays a triggering call after a
// crash, the regenerated rule must not diverge from the original.
func synthesizeRuleText(p MistakePattern) string {
	var b strings.Builder

	fmt.Fprintf(&b, "[%s] Standing rule for recurring mistake %q:\n", p.Category, p.PatternID)
	fmt.Fprintf(&b, "Mistake: %s\n", strings.TrimSpace(p.LastDescription))
	fmt.Fprintf(&b, "Always: %s\n", strings.TrimSpace(p.LastSolution))
	fmt.Fprintf(&b, "(observed %d times)", p.Occurrences)

	return b.String()
}

// synthesizeRule builds the full Rule record for a pattern that crossed
// its threshold. now is passed in rather than read from the clock so the
// engine controls all timestamps in one place.
func synthesizeRule(p MistakePattern, now time.Time) Rule {
	return Rule{
		RuleID:                RuleIDFor(p.PatternID, p.Category),
		PatternID:             p.PatternID,
		Category:              p.Category,
		RuleText:              synthesizeRuleText(p),
		CreatedAt:             now,
		SourceOccurrenceCount: p.Occurrences,
		Status:                RuleActive,
	}
}
