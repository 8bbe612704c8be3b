package evolution

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileLedger_LoadMissingFile_ReturnsEmptyState(t *testing.T) {
	l := NewFileLedger(t.TempDir())

	state, err := l.Load()
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(state.Patterns) != 0 || len(state.Rules) != 0 {
		t.Errorf("empty ledger loaded non-empty state: %d patterns, %d rules",
			len(state.Patterns), len(state.Rules))
	}
}

func TestFileLedger_RoundTrip(t *testing.T) {
	l := NewFileLedger(t.TempDir())

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	state := NewState()
	state.Patterns[PatternKey("p1", "general")] = MistakePattern{
		PatternID:       "p1",
		Category:        "general",
		Occurrences:     2,
		FirstSeen:       now,
		LastSeen:        now.Add(time.Hour),
		LastDescription: "desc",
		LastSolution:    "fix",
	}
	rule := synthesizeRule(state.Patterns[PatternKey("p1", "general")], now.Add(time.Hour))
	state.Rules[rule.RuleID] = rule

	if err := l.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p := loaded.Patterns[PatternKey("p1", "general")]
	if p.Occurrences != 2 || p.LastDescription != "desc" || !p.FirstSeen.Equal(now) {
		t.Errorf("pattern did not round-trip: %+v", p)
	}
	r := loaded.Rules[rule.RuleID]
	if r.RuleText != rule.RuleText || r.SourceOccurrenceCount != 2 || r.Status != RuleActive {
		t.Errorf("rule did not round-trip: %+v", r)
	}
}

// save(load()) with no mutation must leave the persisted bytes unchanged.
func TestFileLedger_SaveLoadIsNoOp(t *testing.T) {
	l := NewFileLedger(t.TempDir())

	state := NewState()
	state.Patterns[PatternKey("p", "general")] = MistakePattern{
		PatternID:   "p",
		Category:    "general",
		Occurrences: 1,
		FirstSeen:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		LastSeen:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := l.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	before, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}

	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := l.Save(loaded); err != nil {
		t.Fatalf("re-Save: %v", err)
	}
	after, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("re-reading ledger: %v", err)
	}

	if string(before) != string(after) {
		t.Error("save(load()) changed the persisted state")
	}
}

func TestFileLedger_CorruptFile_IsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLedger(dir)
	if err := os.WriteFile(l.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("writing corrupt ledger: %v", err)
	}

	_, err := l.Load()
	if !errors.Is(err, ErrPersistence) {
		t.Errorf("Load of corrupt file = %v, want ErrPersistence", err)
	}
}

// A crashed save must never leave a truncated ledger: the temp file may
// remain, but the ledger itself holds the previous complete state.
func TestFileLedger_SaveLeavesNoPartialState(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLedger(dir)

	old := NewState()
	old.Patterns[PatternKey("p", "general")] = MistakePattern{PatternID: "p", Category: "general", Occurrences: 1}
	if err := l.Save(old); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Simulate a crash mid-write: a stray temp file next to the ledger.
	stray := filepath.Join(dir, LedgerFile+".tmp-crash")
	if err := os.WriteFile(stray, []byte(`{"patterns":`), 0o600); err != nil {
		t.Fatalf("writing stray temp: %v", err)
	}

	loaded, err := l.Load()
	if err != nil {
		t.Fatalf("Load after simulated crash: %v", err)
	}
	if loaded.Patterns[PatternKey("p", "general")].Occurrences != 1 {
		t.Error("ledger lost state after simulated crash")
	}
}

func TestFileLedger_RuleExists(t *testing.T) {
	l := NewFileLedger(t.TempDir())

	exists, err := l.RuleExists("p1", "general")
	if err != nil || exists {
		t.Errorf("RuleExists on empty ledger = %v, %v; want false, nil", exists, err)
	}

	state := NewState()
	rule := synthesizeRule(MistakePattern{
		PatternID: "p1", Category: "general", Occurrences: 2,
		LastDescription: "d", LastSolution: "s",
	}, time.Now().UTC())
	state.Rules[rule.RuleID] = rule
	if err := l.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	exists, err = l.RuleExists("p1", "general")
	if err != nil || !exists {
		t.Errorf("RuleExists after save = %v, %v; want true, nil", exists, err)
	}
	exists, _ = l.RuleExists("p1", "critical")
	if exists {
		t.Error("RuleExists matched a different category")
	}
}

// Field names must round-trip exactly for external consumers of the
// ledger file.
func TestFileLedger_PersistedFieldNames(t *testing.T) {
	l := NewFileLedger(t.TempDir())

	state := NewState()
	p := MistakePattern{PatternID: "p1", Category: "general", Occurrences: 2, LastDescription: "d", LastSolution: "s"}
	state.Patterns[PatternKey("p1", "general")] = p
	rule := synthesizeRule(p, time.Now().UTC())
	state.Rules[rule.RuleID] = rule
	if err := l.Save(state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("ledger is not a JSON object: %v", err)
	}
	for _, key := range []string{"patterns", "rules"} {
		if _, ok := doc[key]; !ok {
			t.Errorf("ledger missing top-level %q mapping", key)
		}
	}

	var rules map[string]map[string]json.RawMessage
	if err := json.Unmarshal(doc["rules"], &rules); err != nil {
		t.Fatalf("parsing rules mapping: %v", err)
	}
	entry := rules[rule.RuleID]
	for _, field := range []string{"rule_id", "pattern_id", "category", "rule_text", "created_at", "source_occurrence_count", "status"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("rule record missing field %q", field)
		}
	}
}
