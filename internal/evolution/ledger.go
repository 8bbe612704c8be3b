package evolution

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LedgerFile is the filename for the persisted evolution state.
const LedgerFile = "evolution.json"

// Ledger defines the persistence interface for evolution state.
// Abstracted for testability (DIP).
type Ledger interface {
	// Load reads the persisted state, returning an empty state when
	// nothing has been persisted yet.
	Load() (*State, error)
	// Save atomically replaces the persisted state. A crash mid-write
	// must leave either the old state or the new one, never a mixture.
	Save(state *State) error
	// RuleExists reports whether a rule has been synthesized for the
	// given (pattern, category) pair.
	RuleExists(patternID, category string) (bool, error)
}

// FileLedger implements Ledger using a single JSON file.
//
// Save writes to a temp file in the same directory and renames it over
// the target, so readers never observe a truncated ledger. The ledger is
// last-writer-wins: the engine holds an in-process mutex around each
// load→mutate→save cycle, which is sufficient when one process owns the
// file. Concurrent processes sharing a ledger would need a file lock.
type FileLedger struct {
	path string
}

// NewFileLedger creates a file-backed ledger rooted at dataDir.
func NewFileLedger(dataDir string) *FileLedger {
	return &FileLedger{path: filepath.Join(dataDir, LedgerFile)}
}

// Path returns the ledger's file path.
func (l *FileLedger) Path() string {
	return l.path
}

// Load reads the persisted state. A missing file is not an error — it
// means nothing has been tracked yet.
func (l *FileLedger) Load() (*State, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, persistenceErrorf("reading ledger: %v", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, persistenceErrorf("parsing %s: %v", LedgerFile, err)
	}

	// Maps may be null in a hand-edited or legacy file.
	if state.Patterns == nil {
		state.Patterns = make(map[string]MistakePattern)
	}
	if state.Rules == nil {
		state.Rules = make(map[string]Rule)
	}
	return &state, nil
}

// Save writes the state atomically: marshal, write to a temp file,
// fsync, rename over the target.
func (l *FileLedger) Save(state *State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return persistenceErrorf("marshaling ledger: %v", err)
	}

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return persistenceErrorf("creating data dir: %v", err)
	}

	tmp, err := os.CreateTemp(dir, LedgerFile+".tmp-*")
	if err != nil {
		return persistenceErrorf("creating temp ledger: %v", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return persistenceErrorf("writing temp ledger: %v", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return persistenceErrorf("syncing temp ledger: %v", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return persistenceErrorf("closing temp ledger: %v", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return persistenceErrorf("replacing ledger: %v", err)
	}
	return nil
}

// RuleExists reports whether the persisted state already holds a rule
// for the pattern.
func (l *FileLedger) RuleExists(patternID, category string) (bool, error) {
	state, err := l.Load()
	if err != nil {
		return false, fmt.Errorf("checking rule existence: %w", err)
	}
	_, ok := state.Rules[RuleIDFor(patternID, category)]
	return ok, nil
}
