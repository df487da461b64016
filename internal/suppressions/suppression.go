// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package suppressions manages the reviewer lists file: extra allow entries,
// deny patterns and per-entity allow/deny rules. Rules store a hash of the
// entity text, never the text itself.
package suppressions

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"lexredact/internal/detector"
)

// Rule kinds
const (
	KindAllow = "allow"
	KindDeny  = "deny"
)

const listsVersion = "1.0"

// Rule is a reviewer decision about one entity text
type Rule struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`
	Hash string `yaml:"hash"`

	// Type restricts the rule to one entity type; empty matches all types
	Type      string            `yaml:"type,omitempty"`
	Reason    string            `yaml:"reason"`
	Enabled   bool              `yaml:"enabled"`
	CreatedBy string            `yaml:"created_by,omitempty"`
	CreatedAt time.Time         `yaml:"created_at"`
	ExpiresAt *time.Time        `yaml:"expires_at,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

// Expired reports whether the rule has an expiry in the past
func (r Rule) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// ListsConfig is the lists file
type ListsConfig struct {
	Version      string   `yaml:"version"`
	Allow        []string `yaml:"allow,omitempty"`
	DenyPatterns []string `yaml:"deny_patterns,omitempty"`
	Rules        []Rule   `yaml:"rules"`
}

// Manager loads, queries and saves a lists file. It is safe for concurrent use.
type Manager struct {
	mu         sync.RWMutex
	configPath string
	config     *ListsConfig
	now        func() time.Time
}

// NewManager loads the lists file at configPath. A missing file yields an
// empty configuration that Save will create; an unreadable or malformed
// file is an error.
func NewManager(configPath string) (*Manager, error) {
	m := &Manager{
		configPath: configPath,
		config:     emptyConfig(),
		now:        time.Now,
	}
	if configPath == "" {
		return m, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if errors.Is(err, os.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lists file: %w", err)
	}

	var cfg ListsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing lists file %s: %w", configPath, err)
	}
	if cfg.Version == "" {
		cfg.Version = listsVersion
	}
	m.config = &cfg
	return m, nil
}

func emptyConfig() *ListsConfig {
	return &ListsConfig{Version: listsVersion, Rules: []Rule{}}
}

// HashText returns the rule hash of an entity text. The text is normalized
// first so case and spacing differences hash alike.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(detector.NormalizeText(text)))
	return fmt.Sprintf("%x", sum)
}

// Allow returns the extra allow-list entries
func (m *Manager) Allow() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.config.Allow...)
}

// DenyPatterns returns the extra deny patterns
func (m *Manager) DenyPatterns() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.config.DenyPatterns...)
}

// Allowed reports whether an active allow rule matches the entity
func (m *Manager) Allowed(t detector.EntityType, text string) bool {
	return m.match(KindAllow, t, text) != nil
}

// Denied reports whether an active deny rule matches the entity
func (m *Manager) Denied(t detector.EntityType, text string) bool {
	return m.match(KindDeny, t, text) != nil
}

// Match returns the active rule of kind that matches the entity, or nil
func (m *Manager) Match(kind string, t detector.EntityType, text string) *Rule {
	return m.match(kind, t, text)
}

func (m *Manager) match(kind string, t detector.EntityType, text string) *Rule {
	hash := HashText(text)
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.config.Rules {
		rule := m.config.Rules[i]
		if rule.Kind != kind || rule.Hash != hash || !rule.Enabled || rule.Expired(now) {
			continue
		}
		if rule.Type != "" && rule.Type != string(t) {
			continue
		}
		return &rule
	}
	return nil
}

// AddRule records a decision about text. An existing rule with the same
// kind, type and hash is updated instead of duplicated.
func (m *Manager) AddRule(kind string, t detector.EntityType, text, reason, createdBy string, expiresAt *time.Time) (Rule, error) {
	if kind != KindAllow && kind != KindDeny {
		return Rule{}, fmt.Errorf("unknown rule kind %q", kind)
	}
	if detector.NormalizeText(text) == "" {
		return Rule{}, fmt.Errorf("rule text is empty")
	}
	hash := HashText(text)

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, rule := range m.config.Rules {
		if rule.Kind == kind && rule.Hash == hash && rule.Type == string(t) {
			m.config.Rules[i].Reason = reason
			m.config.Rules[i].Enabled = true
			m.config.Rules[i].ExpiresAt = expiresAt
			return m.config.Rules[i], nil
		}
	}

	maxID := 0
	for _, rule := range m.config.Rules {
		var num int
		if _, err := fmt.Sscanf(rule.ID, "LST-%08d", &num); err == nil && num > maxID {
			maxID = num
		}
	}

	rule := Rule{
		ID:        fmt.Sprintf("LST-%08d", maxID+1),
		Kind:      kind,
		Hash:      hash,
		Type:      string(t),
		Reason:    reason,
		Enabled:   true,
		CreatedBy: createdBy,
		CreatedAt: m.now().UTC(),
		ExpiresAt: expiresAt,
	}
	m.config.Rules = append(m.config.Rules, rule)
	return rule, nil
}

// RemoveRule deletes the rule with id
func (m *Manager) RemoveRule(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rule := range m.config.Rules {
		if rule.ID == id {
			m.config.Rules = append(m.config.Rules[:i], m.config.Rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", id)
}

// SetEnabled enables or disables the rule with id
func (m *Manager) SetEnabled(id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.config.Rules {
		if m.config.Rules[i].ID == id {
			m.config.Rules[i].Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("rule %s not found", id)
}

// ListRules returns the rules ordered by id
func (m *Manager) ListRules() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rules := append([]Rule(nil), m.config.Rules...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// CleanupExpired removes expired rules and returns how many were removed
func (m *Manager) CleanupExpired() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.config.Rules[:0]
	removed := 0
	for _, rule := range m.config.Rules {
		if rule.Expired(now) {
			removed++
			continue
		}
		kept = append(kept, rule)
	}
	m.config.Rules = kept
	return removed
}

// Path returns the lists file location
func (m *Manager) Path() string { return m.configPath }

// Save writes the lists file atomically
func (m *Manager) Save() error {
	if m.configPath == "" {
		return fmt.Errorf("no lists file path configured")
	}

	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding lists file: %w", err)
	}

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating lists directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".lists-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp lists file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing lists file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing lists file: %w", err)
	}
	if err := os.Rename(tmp.Name(), m.configPath); err != nil {
		return fmt.Errorf("replacing lists file: %w", err)
	}
	return nil
}
