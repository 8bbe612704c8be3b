package memory

import (
	"context"
	"testing"

	"github.com/mkm-lab/athena/internal/embedding"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()}, embedding.NewHashEngine())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AndSearchSemantic(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	r := s.Store(ctx, StoreParams{
		Content:  "User prefers Python for data analysis",
		Category: "preference",
		Tags:     []string{"language"},
		Metadata: map[string]any{"source": "conversation"},
	})
	if !r.Success {
		t.Fatalf("Store failed: %s", r.Error)
	}
	if r.ID == "" {
		t.Error("Store returned no ID")
	}

	s.Store(ctx, StoreParams{Content: "Fixed the race in the scheduler", Category: "project"})

	// The hash engine ranks by shared vocabulary, so the query must
	// overlap the expected memory and nothing else.
	results, err := s.Search(ctx, "python data analysis", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("Search returned nothing")
	}
	if results[0].Content != "User prefers Python for data analysis" {
		t.Errorf("top result = %q, want the preference memory", results[0].Content)
	}
	if len(results[0].Tags) != 1 || results[0].Tags[0] != "language" {
		t.Errorf("tags did not round-trip: %v", results[0].Tags)
	}
	if results[0].Metadata["source"] != "conversation" {
		t.Errorf("metadata did not round-trip: %v", results[0].Metadata)
	}
}

func TestStore_RejectsEmptyContent(t *testing.T) {
	s := testStore(t)

	r := s.Store(context.Background(), StoreParams{Content: "   "})
	if r.Success {
		t.Error("empty content accepted")
	}
	if r.Error == "" {
		t.Error("no error message for rejected store")
	}
}

func TestSearch_CategoryFilter(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Store(ctx, StoreParams{Content: "likes dark mode in the editor", Category: "preference"})
	s.Store(ctx, StoreParams{Content: "editor crashed during refactor", Category: "project"})

	results, err := s.Search(ctx, "editor", SearchOptions{Category: "preference"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range results {
		if r.Category != "preference" {
			t.Errorf("category filter leaked: got %s", r.Category)
		}
	}
}

func TestSearch_KeywordFallbackWithoutEngine(t *testing.T) {
	s, err := New(Config{DataDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s.Close() }()
	ctx := context.Background()

	if r := s.Store(ctx, StoreParams{Content: "qdrant collection was initialized"}); !r.Success {
		t.Fatalf("Store failed: %s", r.Error)
	}

	results, err := s.Search(ctx, "qdrant", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("keyword search found %d results, want 1", len(results))
	}
}

// Rows stored while the engine was unavailable carry no embedding and
// are invisible to semantic ranking. Keyword search must still find
// them once an engine is back.
func TestSearch_KeywordFallbackForUnembeddedRows(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := New(Config{DataDir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if r := s1.Store(ctx, StoreParams{Content: "qdrant collection was initialized"}); !r.Success {
		t.Fatalf("Store failed: %s", r.Error)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := New(Config{DataDir: dir}, embedding.NewHashEngine())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = s2.Close() }()

	results, err := s2.Search(ctx, "qdrant", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("search over unembedded rows found %d results, want 1", len(results))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := testStore(t)
	if _, err := s.Search(context.Background(), "  ", SearchOptions{}); err == nil {
		t.Error("empty query accepted")
	}
}

func TestSearch_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Store(ctx, StoreParams{Content: "remember the meeting notes about planning"})
	}

	results, err := s.Search(ctx, "meeting notes", SearchOptions{Limit: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) > 2 {
		t.Errorf("limit ignored: %d results", len(results))
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.Store(ctx, StoreParams{Content: "a", Category: "preference"})
	s.Store(ctx, StoreParams{Content: "b", Category: "preference"})
	s.Store(ctx, StoreParams{Content: "c", Category: "project"})

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalMemories != 3 {
		t.Errorf("TotalMemories = %d, want 3", stats.TotalMemories)
	}
	if stats.ByCategory["preference"] != 2 || stats.ByCategory["project"] != 1 {
		t.Errorf("ByCategory = %v", stats.ByCategory)
	}
	if stats.Engine != "hash" {
		t.Errorf("Engine = %s, want hash", stats.Engine)
	}
}

func TestFtsQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"hello world", `"hello" OR "world"`},
		{`he said "hi"`, `"he" OR "said" OR "hi"`},
		{"   ", ""},
		{`"" ""`, ""},
	}
	for _, tc := range cases {
		if got := ftsQuery(tc.in); got != tc.want {
			t.Errorf("ftsQuery(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello…" {
		t.Errorf("Truncate long = %q", got)
	}
}
