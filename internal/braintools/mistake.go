package braintools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mkm-lab/athena/internal/evolution"
	"github.com/mkm-lab/athena/internal/memory"
)

// TrackMistakeTool handles the track_mistake MCP tool.
//
// When the evolution engine promotes a pattern to a rule and auto-track
// is enabled, the rule text is forwarded to the memory store so it
// becomes semantically searchable alongside ordinary memories. The
// memory store may be nil (degraded mode) — tracking still works, only
// the forwarding is skipped.
type TrackMistakeTool struct {
	engine *evolution.Engine
	store  *memory.Store
}

// NewTrackMistakeTool creates a TrackMistakeTool.
func NewTrackMistakeTool(engine *evolution.Engine, store *memory.Store) *TrackMistakeTool {
	return &TrackMistakeTool{engine: engine, store: store}
}

// Definition returns the MCP tool definition for track_mistake.
func (t *TrackMistakeTool) Definition() mcp.Tool {
	return mcp.NewTool("track_mistake",
		mcp.WithDescription(
			"Track a recurring mistake pattern. When the same pattern is reported enough times, "+
				"Athena synthesizes a standing corrective rule and remembers it permanently.",
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Stable identifier of the failure mode (e.g. 'forgot-error-check')"),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What went wrong this time"),
		),
		mcp.WithString("solution",
			mcp.Required(),
			mcp.Description("How it was (or should be) fixed"),
		),
		mcp.WithString("category",
			mcp.Description("Category namespace: critical, general, mcp... (default: general)"),
		),
		mcp.WithNumber("threshold",
			mcp.Description("Occurrences required before a rule is generated (default: configured value)"),
		),
	)
}

// Handle processes the track_mistake tool call.
func (t *TrackMistakeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := t.engine.TrackMistake(ctx, evolution.TrackParams{
		PatternID:   req.GetString("pattern", ""),
		Description: req.GetString("description", ""),
		Solution:    req.GetString("solution", ""),
		Category:    req.GetString("category", ""),
		Threshold:   intArg(req, "threshold", 0),
	})
	if err != nil {
		if errors.Is(err, evolution.ErrValidation) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("tracking failed: %v", err)), nil
	}
	if !result.Tracked {
		return mcp.NewToolResultError(fmt.Sprintf("tracking degraded: %s", result.Err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Mistake tracked (occurrence %d)", result.Occurrences)

	if result.RuleGenerated {
		fmt.Fprintf(&b, "\n\nRule generated:\n%s", result.Rule.RuleText)

		// Forward the new rule into semantic memory so future searches
		// surface it.
		if t.store != nil && t.engine.AutoTrack() {
			stored := t.store.Store(ctx, memory.StoreParams{
				Content:  result.Rule.RuleText,
				Category: "rule",
				Tags:     []string{"evolution", result.Rule.Category},
				Metadata: map[string]any{
					"rule_id":    result.Rule.RuleID,
					"pattern_id": result.Rule.PatternID,
				},
			})
			if stored.Success {
				fmt.Fprintf(&b, "\n\nRule indexed in memory (ID: %s)", stored.ID)
			}
		}
	}

	return mcp.NewToolResultText(b.String()), nil
}

// ─── PatternStatsTool ────────────────────────────────────────────────────────

// PatternStatsTool handles the pattern_stats MCP tool.
type PatternStatsTool struct {
	engine *evolution.Engine
}

// NewPatternStatsTool creates a PatternStatsTool.
func NewPatternStatsTool(engine *evolution.Engine) *PatternStatsTool {
	return &PatternStatsTool{engine: engine}
}

// Definition returns the MCP tool definition for pattern_stats.
func (t *PatternStatsTool) Definition() mcp.Tool {
	return mcp.NewTool("pattern_stats",
		mcp.WithDescription(
			"Show tracking statistics for one mistake pattern: occurrence count, first/last seen, latest evidence.",
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Pattern identifier"),
		),
		mcp.WithString("category",
			mcp.Description("Category namespace (default: general)"),
		),
	)
}

// Handle processes the pattern_stats tool call.
func (t *PatternStatsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patternID := req.GetString("pattern", "")
	if patternID == "" {
		return mcp.NewToolResultError("'pattern' is required"), nil
	}
	category := req.GetString("category", "")

	p, ok, err := t.engine.PatternStats(patternID, category)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("loading pattern stats: %v", err)), nil
	}
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf("Pattern %q has not been tracked.", patternID)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Pattern %s/%s\n\n", p.Category, p.PatternID)
	fmt.Fprintf(&b, "- **Occurrences**: %d\n", p.Occurrences)
	fmt.Fprintf(&b, "- **First seen**: %s\n", p.FirstSeen.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Last seen**: %s\n", p.LastSeen.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Latest description**: %s\n", p.LastDescription)
	fmt.Fprintf(&b, "- **Latest solution**: %s\n", p.LastSolution)

	return mcp.NewToolResultText(b.String()), nil
}
