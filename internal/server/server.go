// Package server wires all MCP components and creates the server instance.
//
// This is the composition root (DIP): it creates concrete implementations
// and injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here — only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mkm-lab/athena/internal/braintools"
	"github.com/mkm-lab/athena/internal/config"
	"github.com/mkm-lab/athena/internal/embedding"
	"github.com/mkm-lab/athena/internal/evolution"
	"github.com/mkm-lab/athena/internal/memory"
	"github.com/mkm-lab/athena/internal/personalization"
	"github.com/mkm-lab/athena/internal/prompts"
	"github.com/mkm-lab/athena/internal/resources"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the memory store's database
// connection and flushes the logger; it must be called on shutdown
// (typically via defer). It is always non-nil and safe to call even
// if memory init failed.
func New(cfg *config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	if log == nil {
		log = zap.NewNop()
	}

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"athena",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Evolution engine ---
	//
	// The ledger lives next to the memory database so a single data dir
	// holds everything Athena has learned.

	ledger := evolution.NewFileLedger(cfg.Memory.DataDir)
	evoEngine := evolution.NewEngine(ledger, evolution.Config{
		AutoTrack:     cfg.Evolution.AutoTrack,
		RuleThreshold: cfg.Evolution.RuleThreshold,
	}, log)

	// --- Personalization engine ---

	persEngine := personalization.NewEngine(personalization.Config{
		DataDir:      cfg.Memory.DataDir,
		LearningRate: cfg.Personalization.LearningRate,
	})

	// --- Memory store ---
	//
	// Memory is an independent subsystem: if the embedding engine or the
	// SQLite store fails to initialize, evolution and personalization
	// tools continue working. We log a warning and skip memory tool
	// registration.

	cleanup := func() { _ = log.Sync() }

	var memStore *memory.Store
	engine, embErr := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		OpenAIBaseURL:  cfg.Embedding.OpenAIBaseURL,
		OpenAIAPIKey:   cfg.Embedding.OpenAIAPIKey,
		OpenAIModel:    cfg.Embedding.OpenAIModel,
	})
	if embErr != nil {
		log.Warn("embedding engine unavailable, falling back to keyword search", zap.Error(embErr))
		engine = nil
	}

	memStore, memErr := memory.New(memory.Config{
		DataDir:    cfg.Memory.DataDir,
		Collection: cfg.Memory.Collection,
	}, engine)
	if memErr != nil {
		log.Warn("memory subsystem disabled", zap.Error(memErr))
		memStore = nil
	} else {
		cleanup = func() {
			if err := memStore.Close(); err != nil {
				log.Warn("memory store close", zap.Error(err))
			}
			_ = log.Sync()
		}
		registerMemoryTools(s, memStore)
	}

	// --- Register evolution tools ---
	//
	// track_mistake takes the memory store so generated rules become
	// searchable memories; nil is fine when memory is disabled.

	trackTool := braintools.NewTrackMistakeTool(evoEngine, memStore)
	s.AddTool(trackTool.Definition(), trackTool.Handle)

	patternStats := braintools.NewPatternStatsTool(evoEngine)
	s.AddTool(patternStats.Definition(), patternStats.Handle)

	listRules := braintools.NewListRulesTool(evoEngine)
	s.AddTool(listRules.Definition(), listRules.Handle)

	// --- Register personalization tools ---

	profileGet := braintools.NewProfileGetTool(persEngine)
	s.AddTool(profileGet.Definition(), profileGet.Handle)

	prefSet := braintools.NewPreferenceSetTool(persEngine)
	s.AddTool(prefSet.Definition(), prefSet.Handle)

	styleLearn := braintools.NewStyleLearnTool(persEngine)
	s.AddTool(styleLearn.Definition(), styleLearn.Handle)

	// --- Register prompts ---

	recallPrompt := prompts.NewRecallPrompt()
	s.AddPrompt(recallPrompt.Definition(), recallPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(evoEngine, persEngine)
	s.AddResource(resourceHandler.RulesResource(), resourceHandler.HandleRules)
	s.AddResource(resourceHandler.ProfileResource(), resourceHandler.HandleProfile)

	return s, cleanup, nil
}

// registerMemoryTools registers the memory MCP tools with the server.
func registerMemoryTools(s *server.MCPServer, ms *memory.Store) {
	storeTool := braintools.NewStoreTool(ms)
	s.AddTool(storeTool.Definition(), storeTool.Handle)

	searchTool := braintools.NewSearchTool(ms)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	statsTool := braintools.NewStatsTool(ms)
	s.AddTool(statsTool.Definition(), statsTool.Handle)
}

// serverInstructions returns the system instructions that tell the AI
// how to use Athena effectively.
func serverInstructions() string {
	return fmt.Sprintf(`You have access to Athena, a personal assistant brain MCP server.
Athena gives you three persistent capabilities: semantic memory, mistake
evolution, and user personalization. Everything survives between sessions.

## SEMANTIC MEMORY

### When to Save (call memory_store PROACTIVELY)
- User preferences stated in conversation ("I prefer tabs", "always use Go")
- Decisions made and their reasoning
- Project facts, conventions, and environment details
- Anything the user says they want remembered

Use the category parameter: preference, project, conversation, general.

### When to Search (call memory_search)
- At the start of a session to recover context
- Before answering questions about the user's preferences or past work
- When the user references something from a previous session

## MISTAKE EVOLUTION

Athena turns repeated mistakes into standing rules automatically.

### When to Track (call track_mistake)
Whenever you make a mistake the user corrects, or you notice you repeated
a failure mode, call track_mistake with:
- pattern: a stable, slug-like identifier for the failure mode
  (e.g. "forgot-error-check", "wrong-date-format")
- description: what went wrong this time
- solution: the correct behavior

Use the SAME pattern identifier each time the same mistake recurs — that
is what lets Athena count occurrences. When a pattern recurs enough times
(default: %d), Athena synthesizes a permanent rule.

### Consulting Rules
- Call list_rules at the start of a session and follow every rule
- Rules are also available as the athena://evolution/rules resource
- Call pattern_stats to inspect how often a specific mistake has occurred

## PERSONALIZATION

- Call profile_get to see the user's learned preferences and style
- Call preference_set when the user states an explicit preference
- Call style_learn with numeric observations about how the user writes
  (message length, formality, emoji usage) — values blend over time

## Workflow Summary
1. Session start: memory_search for context, list_rules, profile_get
2. During work: memory_store important facts, track_mistake on corrections
3. Adapt your behavior to the profile and standing rules`,
		evolution.DefaultConfig().RuleThreshold)
}
