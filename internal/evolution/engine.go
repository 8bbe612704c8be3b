package evolution

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config holds evolution engine configuration.
type Config struct {
	// AutoTrack enables forwarding generated rules to the memory store
	// (used by the MCP layer, not by the engine itself).
	AutoTrack bool
	// RuleThreshold is the occurrence count at which a pattern is
	// promoted to a rule when the caller does not supply one.
	RuleThreshold int
}

// DefaultConfig returns the default evolution configuration.
func DefaultConfig() Config {
	return Config{
		AutoTrack:     true,
		RuleThreshold: 2,
	}
}

// TrackParams holds the input for one reported mistake occurrence.
type TrackParams struct {
	PatternID   string
	Description string
	Solution    string
	// Category defaults to DefaultCategory when empty.
	Category string
	// Threshold overrides the configured default when > 0. Zero means
	// "use the default"; negative values are rejected.
	Threshold int
}

// Engine orchestrates pattern aggregation, rule synthesis, and ledger
// persistence. Each TrackMistake call is one load→mutate→save cycle
// against the ledger; the mutex serializes those cycles so concurrent
// in-process callers cannot lose an occurrence or double-trigger a rule.
type Engine struct {
	mu     sync.Mutex
	ledger Ledger
	cfg    Config
	log    *zap.Logger
	now    func() time.Time
}

// NewEngine creates an Engine backed by the given ledger. A nil logger
// is replaced with a no-op logger.
func NewEngine(ledger Ledger, cfg Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.RuleThreshold < 1 {
		cfg.RuleThreshold = DefaultConfig().RuleThreshold
	}
	return &Engine{
		ledger: ledger,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

// TrackMistake records one occurrence of a mistake pattern and promotes
// the pattern to a rule the first time its occurrence count reaches the
// threshold. A pattern that already has a rule keeps accumulating
// occurrences but never triggers a second rule.
//
// Validation failures return a non-nil error wrapping ErrValidation and
// mutate nothing. Persistence failures are retried once; if the retry
// also fails the call degrades to TrackResult{Tracked: false, Err: ...}
// with a nil error, so a broken disk never takes down the caller.
func (e *Engine) TrackMistake(ctx context.Context, p TrackParams) (TrackResult, error) {
	if p.PatternID == "" {
		return TrackResult{}, validationErrorf("pattern_id is required")
	}
	if p.Description == "" {
		return TrackResult{}, validationErrorf("description is required")
	}
	if p.Solution == "" {
		return TrackResult{}, validationErrorf("solution is required")
	}
	if p.Threshold < 0 {
		return TrackResult{}, validationErrorf("threshold must be >= 1, got %d", p.Threshold)
	}
	if err := ctx.Err(); err != nil {
		return TrackResult{}, err
	}

	category := p.Category
	if category == "" {
		category = DefaultCategory
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = e.cfg.RuleThreshold
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.loadWithRetry()
	if err != nil {
		e.log.Warn("evolution: ledger load failed", zap.Error(err))
		return TrackResult{Tracked: false, Err: err.Error()}, nil
	}

	updated, _, err := recordOccurrence(state, p.PatternID, category, p.Description, p.Solution, e.now().UTC())
	if err != nil {
		return TrackResult{}, err
	}

	result := TrackResult{
		Tracked:     true,
		Occurrences: updated.Occurrences,
	}

	// Threshold crossing is one-shot: once a rule exists for this
	// pattern, later calls only persist the updated evidence.
	ruleID := RuleIDFor(p.PatternID, category)
	if _, exists := state.Rules[ruleID]; !exists && updated.Occurrences >= threshold {
		rule := synthesizeRule(updated, e.now().UTC())
		state.Rules[rule.RuleID] = rule
		result.RuleGenerated = true
		result.Rule = &rule
	}

	if err := e.saveWithRetry(state); err != nil {
		e.log.Warn("evolution: ledger save failed", zap.Error(err))
		return TrackResult{Tracked: false, Err: err.Error()}, nil
	}

	if result.RuleGenerated {
		e.log.Info("evolution: rule generated",
			zap.String("pattern_id", p.PatternID),
			zap.String("category", category),
			zap.Int("occurrences", updated.Occurrences),
		)
	}
	return result, nil
}

// PatternStats returns the tracked pattern for a (pattern, category)
// pair. The boolean is false when the pattern has never been seen.
func (e *Engine) PatternStats(patternID, category string) (MistakePattern, bool, error) {
	if category == "" {
		category = DefaultCategory
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.ledger.Load()
	if err != nil {
		return MistakePattern{}, false, err
	}
	p, ok := state.Patterns[PatternKey(patternID, category)]
	return p, ok, nil
}

// ListRules returns all synthesized rules, optionally filtered by
// category, ordered by creation time (RuleID breaks ties so the order
// is deterministic).
func (e *Engine) ListRules(category string) ([]Rule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, err := e.ledger.Load()
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(state.Rules))
	for _, r := range state.Rules {
		if category != "" && r.Category != category {
			continue
		}
		rules = append(rules, r)
	}

	sort.Slice(rules, func(i, j int) bool {
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].RuleID < rules[j].RuleID
	})
	return rules, nil
}

// AutoTrack reports whether generated rules should be forwarded to the
// memory store by the caller.
func (e *Engine) AutoTrack() bool {
	return e.cfg.AutoTrack
}

// loadWithRetry loads the ledger, retrying once on failure.
func (e *Engine) loadWithRetry() (*State, error) {
	state, err := e.ledger.Load()
	if err == nil {
		return state, nil
	}
	e.log.Debug("evolution: retrying ledger load", zap.Error(err))
	return e.ledger.Load()
}

// saveWithRetry saves the ledger, retrying once on failure.
func (e *Engine) saveWithRetry(state *State) error {
	err := e.ledger.Save(state)
	if err == nil {
		return nil
	}
	e.log.Debug("evolution: retrying ledger save", zap.Error(err))
	return e.ledger.Save(state)
}
