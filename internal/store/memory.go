// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"sync"
	"time"

	"lexredact/internal/detector"
)

// Memory is an in-memory Store
type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemory returns an empty in-memory store
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry), now: time.Now}
}

func (m *Memory) FindMatches(ctx context.Context, text string) ([]Entry, error) {
	entries, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	return matching(entries, text), nil
}

func (m *Memory) Record(ctx context.Context, c detector.Candidate, confirmed bool) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if err := validate(c); err != nil {
		return Entry{}, err
	}
	key := Key(c.Type, c.Text)

	m.mu.Lock()
	defer m.mu.Unlock()
	var prev *Entry
	if e, ok := m.entries[key]; ok {
		prev = &e
	}
	e := update(prev, c, confirmed, m.now().UTC())
	m.entries[key] = e
	return e, nil
}

func (m *Memory) Get(ctx context.Context, t detector.EntityType, text string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[Key(t, text)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

func (m *Memory) Remove(ctx context.Context, t detector.EntityType, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := Key(t, text)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; !ok {
		return ErrNotFound
	}
	delete(m.entries, key)
	return nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	m.mu.RUnlock()
	sortEntries(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }
