// Package personalization learns user preferences and style for
// personalizing assistant behavior.
//
// Profiles are persisted as a single JSON file under the data dir.
// Style learning uses exponential averaging so repeated signals converge
// on the user's habits without any single observation dominating.
package personalization

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ProfilesFile is the filename for persisted user profiles.
const ProfilesFile = "user_profiles.json"

// DefaultUserID is used when callers do not distinguish users.
const DefaultUserID = "default"

// Config holds personalization engine configuration.
type Config struct {
	DataDir string
	// LearningRate weights new style observations against accumulated
	// state: new = old*(1-rate) + observed*rate.
	LearningRate float64
}

// DefaultConfig returns the default personalization configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:      filepath.Join(home, ".athena"),
		LearningRate: 0.1,
	}
}

// Profile is one user's accumulated personalization state.
type Profile struct {
	Created      time.Time          `json:"created"`
	Preferences  map[string]any     `json:"preferences"`
	Style        map[string]float64 `json:"style"`
	Constitution *string            `json:"constitution"`
	LearningData []LearningEvent    `json:"learning_data,omitempty"`
	LastUpdated  time.Time          `json:"last_updated,omitempty"`
}

// LearningEvent records one raw style observation, kept so learned
// metrics can be audited or recomputed with a different rate.
type LearningEvent struct {
	Timestamp time.Time          `json:"timestamp"`
	Style     map[string]float64 `json:"style"`
}

// Engine manages user profiles with read-modify-write file persistence.
type Engine struct {
	mu   sync.Mutex
	path string
	cfg  Config
	now  func() time.Time
}

// NewEngine creates a personalization engine persisting under
// cfg.DataDir.
func NewEngine(cfg Config) *Engine {
	if cfg.LearningRate <= 0 || cfg.LearningRate > 1 {
		cfg.LearningRate = DefaultConfig().LearningRate
	}
	return &Engine{
		path: filepath.Join(cfg.DataDir, ProfilesFile),
		cfg:  cfg,
		now:  time.Now,
	}
}

// GetProfile returns the profile for userID, creating and persisting an
// empty one on first access.
func (e *Engine) GetProfile(userID string) (Profile, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	profiles, err := e.load()
	if err != nil {
		return Profile{}, err
	}

	id := normalizeUserID(userID)
	if p, ok := profiles[id]; ok {
		return p, nil
	}

	p := Profile{
		Created:     e.now().UTC(),
		Preferences: map[string]any{},
		Style:       map[string]float64{},
	}
	profiles[id] = p
	if err := e.save(profiles); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// UpdatePreference sets one preference key for userID.
func (e *Engine) UpdatePreference(key string, value any, userID string) error {
	if key == "" {
		return fmt.Errorf("personalization: preference key is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profiles, err := e.load()
	if err != nil {
		return err
	}

	id := normalizeUserID(userID)
	p := profileOrNew(profiles, id, e.now().UTC())
	p.Preferences[key] = value
	p.LastUpdated = e.now().UTC()
	profiles[id] = p

	return e.save(profiles)
}

// LearnStyle folds observed style metrics into the profile. Known keys
// are exponentially averaged; new keys are adopted as-is.
func (e *Engine) LearnStyle(style map[string]float64, userID string) error {
	if len(style) == 0 {
		return fmt.Errorf("personalization: style data is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	profiles, err := e.load()
	if err != nil {
		return err
	}

	id := normalizeUserID(userID)
	p := profileOrNew(profiles, id, e.now().UTC())

	rate := e.cfg.LearningRate
	for key, value := range style {
		if old, ok := p.Style[key]; ok {
			p.Style[key] = old*(1-rate) + value*rate
		} else {
			p.Style[key] = value
		}
	}
	p.LearningData = append(p.LearningData, LearningEvent{
		Timestamp: e.now().UTC(),
		Style:     style,
	})
	p.LastUpdated = e.now().UTC()
	profiles[id] = p

	return e.save(profiles)
}

func normalizeUserID(userID string) string {
	if userID == "" {
		return DefaultUserID
	}
	return userID
}

func profileOrNew(profiles map[string]Profile, id string, now time.Time) Profile {
	if p, ok := profiles[id]; ok {
		if p.Preferences == nil {
			p.Preferences = map[string]any{}
		}
		if p.Style == nil {
			p.Style = map[string]float64{}
		}
		return p
	}
	return Profile{
		Created:     now,
		Preferences: map[string]any{},
		Style:       map[string]float64{},
	}
}

// load reads all profiles; a missing file yields an empty map.
func (e *Engine) load() (map[string]Profile, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("personalization: reading profiles: %w", err)
	}

	var profiles map[string]Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("personalization: parsing %s: %w", ProfilesFile, err)
	}
	if profiles == nil {
		profiles = map[string]Profile{}
	}
	return profiles, nil
}

// save writes all profiles atomically (temp file + rename).
func (e *Engine) save(profiles map[string]Profile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("personalization: marshaling profiles: %w", err)
	}

	dir := filepath.Dir(e.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("personalization: creating data dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ProfilesFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("personalization: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("personalization: writing profiles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("personalization: closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, e.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("personalization: replacing profiles: %w", err)
	}
	return nil
}
