// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store keeps the entities reviewers confirmed or denied so later
// runs can reuse those decisions.
//
// Two implementations are provided:
//   - Memory, used in tests and when no store path is configured.
//   - Bolt, an embedded bbolt database that survives restarts.
//
// Entries are keyed by entity type and normalized text, so recording the
// same decision twice is an update, not a duplicate.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"lexredact/internal/detector"
)

// ErrNotFound is returned when no entry exists for a type and text
var ErrNotFound = errors.New("learned entity not found")

// Entry is one reviewer decision
type Entry struct {
	Type      detector.EntityType `json:"type"`
	Text      string              `json:"text"`
	Key       string              `json:"key"`
	Confirmed bool                `json:"confirmed"`
	Count     int                 `json:"count"`
	FirstSeen time.Time           `json:"first_seen"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// Store is the learned-entity store. Implementations must be safe for
// concurrent use.
type Store interface {
	// FindMatches returns the confirmed entries whose text occurs in text
	FindMatches(ctx context.Context, text string) ([]Entry, error)

	// Record upserts a decision about the candidate's type and text
	Record(ctx context.Context, c detector.Candidate, confirmed bool) (Entry, error)

	// Get returns the entry for a type and text, or ErrNotFound
	Get(ctx context.Context, t detector.EntityType, text string) (Entry, error)

	// Remove deletes an entry, or returns ErrNotFound
	Remove(ctx context.Context, t detector.EntityType, text string) error

	// List returns every entry ordered by type and key
	List(ctx context.Context) ([]Entry, error)

	Close() error
}

// Key returns the storage key of a type and text
func Key(t detector.EntityType, text string) string {
	return string(t) + "\x00" + detector.NormalizeText(text)
}

// DeniedTexts returns the texts of the denied entries in s
func DeniedTexts(ctx context.Context, s Store) ([]string, error) {
	entries, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if !e.Confirmed {
			out = append(out, e.Text)
		}
	}
	return out, nil
}

// update applies a decision to a previous entry, or creates one when prev is nil
func update(prev *Entry, c detector.Candidate, confirmed bool, now time.Time) Entry {
	if prev == nil {
		return Entry{
			Type:      c.Type,
			Text:      strings.Join(strings.Fields(c.Text), " "),
			Key:       detector.NormalizeText(c.Text),
			Confirmed: confirmed,
			Count:     1,
			FirstSeen: now,
			UpdatedAt: now,
		}
	}
	e := *prev
	e.Confirmed = confirmed
	e.Count++
	e.UpdatedAt = now
	return e
}

// matching filters the confirmed entries whose key occurs in text
func matching(entries []Entry, text string) []Entry {
	norm := detector.NormalizeText(text)
	var out []Entry
	for _, e := range entries {
		if e.Confirmed && e.Key != "" && strings.Contains(norm, e.Key) {
			out = append(out, e)
		}
	}
	return out
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Type != entries[j].Type {
			return entries[i].Type < entries[j].Type
		}
		return entries[i].Key < entries[j].Key
	})
}

func validate(c detector.Candidate) error {
	if detector.NormalizeText(c.Text) == "" {
		return errors.New("learned entity text is empty")
	}
	if c.Type == "" {
		return errors.New("learned entity type is empty")
	}
	return nil
}
