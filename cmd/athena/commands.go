package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mkm-lab/athena/internal/config"
	"github.com/mkm-lab/athena/internal/embedding"
	"github.com/mkm-lab/athena/internal/evolution"
	"github.com/mkm-lab/athena/internal/memory"
)

// openStore loads the config and opens the memory store for one-shot
// CLI commands. Callers must Close the returned store.
func openStore() (*memory.Store, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	engine, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		OpenAIBaseURL:  cfg.Embedding.OpenAIBaseURL,
		OpenAIAPIKey:   cfg.Embedding.OpenAIAPIKey,
		OpenAIModel:    cfg.Embedding.OpenAIModel,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: embedding engine unavailable (%v), using keyword search\n", err)
		engine = nil
	}

	store, err := memory.New(memory.Config{
		DataDir:    cfg.Memory.DataDir,
		Collection: cfg.Memory.Collection,
	}, engine)
	if err != nil {
		return nil, nil, fmt.Errorf("opening memory store: %w", err)
	}
	return store, cfg, nil
}

// openEvolution loads the config and creates the evolution engine.
func openEvolution() (*evolution.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	ledger := evolution.NewFileLedger(cfg.Memory.DataDir)
	return evolution.NewEngine(ledger, evolution.Config{
		AutoTrack:     cfg.Evolution.AutoTrack,
		RuleThreshold: cfg.Evolution.RuleThreshold,
	}, zap.NewNop()), nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file and create the data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path()
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			if err := os.MkdirAll(config.DefaultDataDir(), 0o700); err != nil {
				return fmt.Errorf("creating data dir: %w", err)
			}

			// Open once so the database exists and is migrated.
			store, _, err := openStore()
			if err != nil {
				return err
			}
			_ = store.Close()

			fmt.Printf("Config written to %s\n", path)
			return nil
		},
	}
}

func storeCmd() *cobra.Command {
	var category string
	var tags []string

	cmd := &cobra.Command{
		Use:   "store <content>",
		Short: "Store a memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result := store.Store(context.Background(), memory.StoreParams{
				Content:  strings.Join(args, " "),
				Category: category,
				Tags:     tags,
			})
			if !result.Success {
				return fmt.Errorf("storing memory: %s", result.Error)
			}
			fmt.Printf("Stored (ID: %s)\n", result.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "general", "memory category")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tags (repeatable)")
	return cmd
}

func searchCmd() *cobra.Command {
	var category string
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search stored memories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			results, err := store.Search(context.Background(), strings.Join(args, " "), memory.SearchOptions{
				Category: category,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("No memories found.")
				return nil
			}
			for i, r := range results {
				fmt.Printf("[%d] %.3f (%s) %s\n", i+1, r.Score, r.Category, memory.Truncate(r.Content, 200))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "filter by category")
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "max results")
	return cmd
}

func trackMistakeCmd() *cobra.Command {
	var category string
	var threshold int

	cmd := &cobra.Command{
		Use:   "track-mistake <pattern> <description> <solution>",
		Short: "Track a mistake occurrence and synthesize a rule at the threshold",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEvolution()
			if err != nil {
				return err
			}

			result, err := engine.TrackMistake(context.Background(), evolution.TrackParams{
				PatternID:   args[0],
				Description: args[1],
				Solution:    args[2],
				Category:    category,
				Threshold:   threshold,
			})
			if err != nil {
				return err
			}
			if !result.Tracked {
				return fmt.Errorf("tracking degraded: %s", result.Err)
			}

			fmt.Printf("Tracked occurrence %d of %q\n", result.Occurrences, args[0])
			if result.RuleGenerated {
				fmt.Printf("\nRule generated:\n%s\n", result.Rule.RuleText)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "pattern category (default: general)")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "occurrences before a rule is generated (0 = configured default)")
	return cmd
}

func rulesCmd() *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List synthesized standing rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEvolution()
			if err != nil {
				return err
			}

			rules, err := engine.ListRules(category)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Println("No rules yet.")
				return nil
			}
			for i, r := range rules {
				fmt.Printf("%d. %s (%s, %d occurrences)\n%s\n\n",
					i+1, r.RuleID, r.CreatedAt.Format("2006-01-02"), r.SourceOccurrenceCount, r.RuleText)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "filter by category")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show memory store statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("Total memories: %d\nEmbedding engine: %s\n", stats.TotalMemories, stats.Engine)
			for c, n := range stats.ByCategory {
				fmt.Printf("  %s: %d\n", c, n)
			}
			return nil
		},
	}
}
