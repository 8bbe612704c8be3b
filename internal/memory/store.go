// Package memory implements Athena's persistent semantic memory store.
//
// It uses SQLite to store memories alongside their vector embeddings and
// an FTS5 index over the raw text. Search prefers cosine similarity over
// embeddings and falls back to FTS5 keyword matching when no embedding
// engine is available.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mkm-lab/athena/internal/embedding"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Memory is a single stored memory with its metadata.
type Memory struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Category  string         `json:"category"`
	Tags      []string       `json:"tags"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"timestamp"`
}

// SearchResult is a Memory with its relevance score. Semantic search
// scores are cosine similarities in [-1, 1]; keyword-fallback scores are
// flipped FTS5 ranks.
type SearchResult struct {
	Memory
	Score float64 `json:"score"`
}

// StoreParams holds the input for storing a new memory.
type StoreParams struct {
	Content  string         `json:"content"`
	Category string         `json:"category,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// StoreResult reports the outcome of a store operation.
type StoreResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SearchOptions holds filters for memory search.
type SearchOptions struct {
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Stats holds aggregate memory statistics.
type Stats struct {
	TotalMemories int            `json:"total_memories"`
	ByCategory    map[string]int `json:"by_category"`
	Engine        string         `json:"embedding_engine"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds memory store configuration.
type Config struct {
	DataDir    string
	Collection string
	MaxResults int
}

// DefaultConfig returns the default configuration for the memory store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:    filepath.Join(home, ".athena"),
		Collection: "athena_memories",
		MaxResults: 20,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the persistent semantic memory engine backed by SQLite.
type Store struct {
	db     *sql.DB
	cfg    Config
	engine embedding.Engine
}

// New creates a new Store with the given configuration and embedding
// engine. engine may be nil — storage and keyword search keep working,
// semantic ranking is skipped. It creates the data directory if needed,
// opens SQLite with WAL mode, and runs migrations.
func New(cfg Config, engine embedding.Engine) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultConfig().Collection
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("memory: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, cfg.Collection+".db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("memory: open database: %w", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("memory: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg, engine: engine}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("memory: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EngineName reports the active embedding engine, or "none".
func (s *Store) EngineName() string {
	if s.engine == nil {
		return "none"
	}
	return s.engine.Name()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id         TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			category   TEXT NOT NULL DEFAULT 'general',
			tags       TEXT NOT NULL DEFAULT '[]',
			metadata   TEXT NOT NULL DEFAULT '{}',
			embedding  TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_mem_category ON memories(category);
		CREATE INDEX IF NOT EXISTS idx_mem_created  ON memories(created_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
			id UNINDEXED,
			content,
			category,
			tags
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// FTS sync triggers (idempotent)
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='mem_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER mem_fts_insert AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(id, content, category, tags)
				VALUES (new.id, new.content, new.category, new.tags);
			END;

			CREATE TRIGGER mem_fts_delete AFTER DELETE ON memories BEGIN
				DELETE FROM memories_fts WHERE id = old.id;
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	return nil
}

// ─── Store operation ─────────────────────────────────────────────────────────

// Store embeds and persists a memory. Embedding failures are not fatal:
// the memory is stored without a vector and remains findable through
// keyword search.
func (s *Store) Store(ctx context.Context, p StoreParams) StoreResult {
	if strings.TrimSpace(p.Content) == "" {
		return StoreResult{Success: false, Error: "content is required"}
	}
	category := p.Category
	if category == "" {
		category = "general"
	}

	var embeddingJSON sql.NullString
	if s.engine != nil {
		if vec, err := s.engine.Embed(ctx, p.Content); err == nil {
			if data, err := json.Marshal(vec); err == nil {
				embeddingJSON = sql.NullString{String: string(data), Valid: true}
			}
		}
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return StoreResult{Success: false, Error: fmt.Sprintf("encoding tags: %v", err)}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return StoreResult{Success: false, Error: fmt.Sprintf("encoding metadata: %v", err)}
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, category, tags, metadata, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Content, category, string(tagsJSON), string(metaJSON), embeddingJSON,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return StoreResult{Success: false, Error: fmt.Sprintf("storing memory: %v", err)}
	}

	return StoreResult{Success: true, ID: id, Message: "Memory stored successfully"}
}

// ─── Search ──────────────────────────────────────────────────────────────────

// Search returns the memories most relevant to query. With an embedding
// engine it ranks by cosine similarity; when the engine is absent,
// fails, or no stored row carries an embedding (rows written while the
// engine was down), it falls back to FTS5 keyword matching.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("memory: query is required")
	}

	limit := opts.Limit
	if limit <= 0 || limit > s.cfg.MaxResults {
		limit = s.cfg.MaxResults
	}

	if s.engine != nil {
		if results, err := s.searchSemantic(ctx, query, opts.Category, limit); err == nil && len(results) > 0 {
			return results, nil
		}
	}
	return s.searchKeyword(ctx, query, opts.Category, limit)
}

// searchSemantic ranks embedded memories by cosine similarity.
func (s *Store) searchSemantic(ctx context.Context, query, category string, limit int) ([]SearchResult, error) {
	queryVec, err := s.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("memory: embedding query: %w", err)
	}

	sqlQuery := `SELECT id, content, category, tags, metadata, embedding, created_at
		 FROM memories WHERE embedding IS NOT NULL`
	args := []any{}
	if category != "" {
		sqlQuery += " AND category = ?"
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: querying embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var m Memory
		var tagsJSON, metaJSON, embeddingJSON string
		if err := rows.Scan(&m.ID, &m.Content, &m.Category, &tagsJSON, &metaJSON, &embeddingJSON, &m.CreatedAt); err != nil {
			continue
		}

		var vec []float32
		if err := json.Unmarshal([]byte(embeddingJSON), &vec); err != nil {
			continue
		}
		score, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue // stored under a different engine/dimensionality
		}

		_ = json.Unmarshal([]byte(tagsJSON), &m.Tags)
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
		results = append(results, SearchResult{Memory: m, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("memory: scanning embeddings: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// searchKeyword is the FTS5 fallback.
func (s *Store) searchKeyword(ctx context.Context, query, category string, limit int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}

	sqlQuery := `
		SELECT m.id, m.content, m.category, m.tags, m.metadata, m.created_at, rank
		FROM memories_fts f
		JOIN memories m ON m.id = f.id
		WHERE memories_fts MATCH ?`
	args := []any{match}
	if category != "" {
		sqlQuery += " AND m.category = ?"
		args = append(args, category)
	}
	sqlQuery += " ORDER BY rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("memory: keyword search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []SearchResult
	for rows.Next() {
		var m Memory
		var tagsJSON, metaJSON string
		var rank float64
		if err := rows.Scan(&m.ID, &m.Content, &m.Category, &tagsJSON, &metaJSON, &m.CreatedAt, &rank); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(tagsJSON), &m.Tags)
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
		// FTS5 rank is negative (better matches are more negative);
		// flip it so callers always sort descending.
		results = append(results, SearchResult{Memory: m, Score: -rank})
	}
	return results, rows.Err()
}

// ftsQuery builds a safe FTS5 MATCH expression: each token quoted, ORed
// together. Returns "" for queries with no indexable tokens (a bare
// MATCH on those would be an FTS5 syntax error).
func ftsQuery(query string) string {
	fields := strings.Fields(query)
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ReplaceAll(f, `"`, "")
		if f == "" {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}

// ─── Stats ───────────────────────────────────────────────────────────────────

// Stats returns aggregate statistics about stored memories.
func (s *Store) Stats() (Stats, error) {
	stats := Stats{ByCategory: map[string]int{}, Engine: s.EngineName()}

	rows, err := s.db.Query(`SELECT category, COUNT(*) FROM memories GROUP BY category`)
	if err != nil {
		return stats, fmt.Errorf("memory: stats query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			continue
		}
		stats.ByCategory[category] = count
		stats.TotalMemories += count
	}
	return stats, rows.Err()
}

// Truncate shortens s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
