package rules

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/remoteflow/remoteflow/internal/shared/fileutil"
)

type document struct {
	Rules []Rule `json:"rules"`
}

// Store persists rules as one JSON document. Every operation re-reads the
// file and every mutation is written to disk before it returns, so the
// document is the single source of truth.
//
// The mutex serialises read-modify-write cycles within the process; no
// concurrent external writers are assumed.
type Store struct {
	path  string
	newID func() string

	mu sync.Mutex
}

// NewStore creates a Store backed by path (e.g. ~/.remoteflow/automation-rules.json).
// The file is created on first write.
func NewStore(path string) *Store {
	return &Store{
		path:  path,
		newID: func() string { return uuid.NewString() },
	}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Add validates rule, assigns an id when it has none, and persists it.
// The stored rule is returned.
func (s *Store) Add(rule Rule) (Rule, error) {
	if rule.ID == "" {
		rule.ID = s.newID()
	}
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return Rule{}, err
	}
	for _, r := range doc.Rules {
		if r.ID == rule.ID {
			return Rule{}, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
		}
	}
	doc.Rules = append(doc.Rules, rule)
	if err := s.saveLocked(doc); err != nil {
		return Rule{}, err
	}
	return rule, nil
}

// Remove deletes the rule with id. It reports whether a rule was removed;
// a missing id is not an error.
func (s *Store) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return false, err
	}
	filtered := make([]Rule, 0, len(doc.Rules))
	for _, r := range doc.Rules {
		if r.ID != id {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == len(doc.Rules) {
		return false, nil
	}
	doc.Rules = filtered
	if err := s.saveLocked(doc); err != nil {
		return false, err
	}
	return true, nil
}

// Enable marks the rule enabled. ok is false when no rule has id.
func (s *Store) Enable(id string) (rule Rule, ok bool, err error) {
	return s.setEnabled(id, true)
}

// Disable marks the rule disabled. ok is false when no rule has id.
func (s *Store) Disable(id string) (rule Rule, ok bool, err error) {
	return s.setEnabled(id, false)
}

func (s *Store) setEnabled(id string, enabled bool) (Rule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return Rule{}, false, err
	}
	for i := range doc.Rules {
		if doc.Rules[i].ID != id {
			continue
		}
		if doc.Rules[i].Enabled == enabled {
			return doc.Rules[i], true, nil
		}
		doc.Rules[i].Enabled = enabled
		if err := s.saveLocked(doc); err != nil {
			return Rule{}, false, err
		}
		return doc.Rules[i], true, nil
	}
	return Rule{}, false, nil
}

// List returns all rules in insertion order.
func (s *Store) List() ([]Rule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	return doc.Rules, nil
}

// Get returns the rule with id or ErrRuleNotFound.
func (s *Store) Get(id string) (Rule, error) {
	all, err := s.List()
	if err != nil {
		return Rule{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// --------------------------------------------------------------------------
// Persistence
// --------------------------------------------------------------------------

func (s *Store) loadLocked() (document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return document{}, nil
	}
	if err != nil {
		return document{}, fmt.Errorf("read rules %s: %w", s.path, err)
	}
	var doc document
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("parse rules %s: %w", s.path, err)
	}
	return doc, nil
}

// saveLocked replaces the document atomically: the new content is written
// to a temp file in the same directory and renamed over the old one.
func (s *Store) saveLocked(doc document) error {
	if doc.Rules == nil {
		doc.Rules = []Rule{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write rules %s: %w", s.path, err)
	}
	slog.Debug("rules: saved", "path", s.path, "rules", len(doc.Rules))
	return nil
}
