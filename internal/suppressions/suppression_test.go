// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package suppressions

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
)

func TestNewManagerMissingFile(t *testing.T) {
	m, err := NewManager(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Empty(t, m.ListRules())
	assert.False(t, m.Allowed(detector.TypePerson, "Mario Rossi"))
}

func TestNewManagerMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: [unterminated"), 0o600))
	_, err := NewManager(path)
	assert.Error(t, err)
}

func TestAddRuleAndMatch(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)

	allow, err := m.AddRule(KindAllow, detector.TypeOrganization, "Studio  Legale Verdi", "public firm", "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, "LST-00000001", allow.ID)

	deny, err := m.AddRule(KindDeny, "", "Sezione Lavoro", "not a person", "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, "LST-00000002", deny.ID)

	tests := []struct {
		name    string
		kind    string
		typ     detector.EntityType
		text    string
		matches bool
	}{
		{"allow same type", KindAllow, detector.TypeOrganization, "studio legale verdi", true},
		{"allow other type", KindAllow, detector.TypePerson, "Studio Legale Verdi", false},
		{"deny any type", KindDeny, detector.TypePerson, "SEZIONE LAVORO", true},
		{"deny is not allow", KindAllow, detector.TypePerson, "Sezione Lavoro", false},
		{"unrelated", KindDeny, detector.TypePerson, "Mario Rossi", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, m.Match(tt.kind, tt.typ, tt.text) != nil)
		})
	}

	again, err := m.AddRule(KindAllow, detector.TypeOrganization, "studio legale verdi", "updated", "tester", nil)
	require.NoError(t, err)
	assert.Equal(t, allow.ID, again.ID)
	assert.Len(t, m.ListRules(), 2)
}

func TestAddRuleValidation(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	_, err = m.AddRule("maybe", "", "x", "", "", nil)
	assert.Error(t, err)
	_, err = m.AddRule(KindDeny, "", "   ", "", "", nil)
	assert.Error(t, err)
}

func TestDisabledAndExpiredRules(t *testing.T) {
	m, err := NewManager("")
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	past := now.Add(-time.Hour)
	_, err = m.AddRule(KindDeny, "", "Vecchia Regola", "", "", &past)
	require.NoError(t, err)
	off, err := m.AddRule(KindDeny, "", "Regola Spenta", "", "", nil)
	require.NoError(t, err)
	require.NoError(t, m.SetEnabled(off.ID, false))

	assert.False(t, m.Denied(detector.TypePerson, "Vecchia Regola"))
	assert.False(t, m.Denied(detector.TypePerson, "Regola Spenta"))

	assert.Equal(t, 1, m.CleanupExpired())
	assert.Len(t, m.ListRules(), 1)
	assert.Error(t, m.SetEnabled("LST-99999999", true))
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "lists.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)
	_, err = m.AddRule(KindAllow, "", "Fondazione Alfa", "public body", "tester", nil)
	require.NoError(t, err)
	require.NoError(t, m.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(string(data)), "fondazione alfa")

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	assert.True(t, reloaded.Allowed(detector.TypeOrganization, "fondazione alfa"))

	require.NoError(t, reloaded.RemoveRule("LST-00000001"))
	assert.Error(t, reloaded.RemoveRule("LST-00000001"))
}

func TestListsFileEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lists.yaml")
	content := "version: \"1.0\"\nallow:\n  - Camera di Commercio\ndeny_patterns:\n  - '^Sez\\.'\nrules: []\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Camera di Commercio"}, m.Allow())
	assert.Equal(t, []string{`^Sez\.`}, m.DenyPatterns())
}
