// Package evolution implements the mistake-to-rule induction engine.
//
// Callers report recurring failure patterns via TrackMistake. The engine
// counts occurrences per (pattern, category) pair and, when a pattern
// reaches the configured threshold, synthesizes a durable corrective rule
// exactly once. Counts and rules are persisted together in a single JSON
// ledger so the ledger file is always the source of truth.
//
// The package follows the same design principles as the rest of the repo:
//   - SRP: types, aggregation, synthesis, persistence, and orchestration
//     live in separate files
//   - DIP: Ledger is an interface; the engine depends on the abstraction
package evolution

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultCategory is used when a caller does not scope a pattern.
const DefaultCategory = "general"

// --- Rule status enum ---

// RuleStatus tracks a rule's lifecycle. Rules are only ever retired by an
// external administrative action — the engine itself never changes status
// after creation.
type RuleStatus string

const (
	RuleActive  RuleStatus = "active"
	RuleRetired RuleStatus = "retired"
)

// --- Core data structures ---

// MistakePattern accumulates evidence for one recurring failure mode,
// identified by (PatternID, Category).
type MistakePattern struct {
	PatternID       string    `json:"pattern_id"`
	Category        string    `json:"category"`
	Occurrences     int       `json:"occurrences"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
	LastDescription string    `json:"last_description"`
	LastSolution    string    `json:"last_solution"`
}

// Rule is the durable corrective guidance synthesized from a pattern that
// crossed its occurrence threshold. Once created it is immutable from the
// engine's perspective: later occurrences of the same pattern update only
// the pattern's evidence fields, never the rule.
type Rule struct {
	RuleID                string     `json:"rule_id"`
	PatternID             string     `json:"pattern_id"`
	Category              string     `json:"category"`
	RuleText              string     `json:"rule_text"`
	CreatedAt             time.Time  `json:"created_at"`
	SourceOccurrenceCount int        `json:"source_occurrence_count"`
	Status                RuleStatus `json:"status"`
}

// State is the ledger's persisted root: every tracked pattern and every
// synthesized rule. Patterns is keyed by PatternKey, Rules by RuleID.
type State struct {
	Patterns map[string]MistakePattern `json:"patterns"`
	Rules    map[string]Rule           `json:"rules"`
}

// NewState returns an empty state with initialized maps.
func NewState() *State {
	return &State{
		Patterns: make(map[string]MistakePattern),
		Rules:    make(map[string]Rule),
	}
}

// TrackResult is returned by Engine.TrackMistake.
type TrackResult struct {
	Tracked       bool   `json:"tracked"`
	RuleGenerated bool   `json:"rule_generated"`
	Occurrences   int    `json:"occurrences"`
	Rule          *Rule  `json:"rule,omitempty"`
	Err           string `json:"error,omitempty"`
}

// --- Identity keys ---

// PatternKey builds the map key for a (pattern, category) pair. The
// category comes first so keys group naturally when the ledger is
// inspected by hand. Its length is prefixed so identifiers containing
// "/" cannot produce the same key from a different split.
func PatternKey(patternID, category string) string {
	return fmt.Sprintf("%d/%s/%s", len(category), category, patternID)
}

// RuleIDFor derives the stable rule identifier for a pattern. The ID is a
// hash of the pattern key, so the same pattern always maps to the same
// rule — this is what makes rule creation idempotent across replays.
func RuleIDFor(patternID, category string) string {
	sum := sha256.Sum256([]byte(PatternKey(patternID, category)))
	return "rule-" + hex.EncodeToString(sum[:])[:16]
}
