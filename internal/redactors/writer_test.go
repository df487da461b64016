// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package redactors

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
	"lexredact/internal/document"
)

func exportScenario(t *testing.T) *ExportResult {
	t.Helper()
	doc := document.FromText("atto.txt", "Il sig. Mario Rossi e Mario Rossi firmano.")
	res, err := NewExporter(ExportOptions{}, nil, nil).Export(context.Background(), doc,
		targetsFor(t, doc, detector.TypePerson, "Mario Rossi"), nil)
	require.NoError(t, err)
	return res
}

func TestOutputWriterWritesAllFiles(t *testing.T) {
	res := exportScenario(t)
	dir := t.TempDir()
	base := filepath.Join(dir, "out", "atto")

	paths, err := NewOutputWriter(nil).Write(base, res, &MappingOutput{Content: []byte("seq,type\n"), Extension: "csv"})
	require.NoError(t, err)
	assert.Equal(t, base+".mapping.csv", paths.Mapping)
	assert.Len(t, paths.All(), 4)

	text, err := os.ReadFile(paths.Text)
	require.NoError(t, err)
	assert.Contains(t, string(text), "[PER1_____]")
	assert.NotContains(t, string(text), "Mario")

	redacted, err := document.LoadJSON(paths.Document)
	require.NoError(t, err)
	assert.Equal(t, res.Document.Pages[0].Text, redacted.Pages[0].Text)

	raw, err := os.ReadFile(paths.Audit)
	require.NoError(t, err)
	var audit map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &audit))
	assert.Contains(t, audit, "mapping")

	entries, err := os.ReadDir(filepath.Dir(base))
	require.NoError(t, err)
	assert.Len(t, entries, 4, "no temporary files left behind")
}

func TestOutputWriterWithoutMapping(t *testing.T) {
	res := exportScenario(t)
	base := filepath.Join(t.TempDir(), "atto")

	paths, err := NewOutputWriter(nil).Write(base, res, nil)
	require.NoError(t, err)
	assert.Empty(t, paths.Mapping)
	assert.Len(t, paths.All(), 3)
}

func TestOutputWriterLeavesNothingOnFailure(t *testing.T) {
	res := exportScenario(t)
	dir := t.TempDir()
	base := filepath.Join(dir, "atto")
	// a directory where the audit file should go makes its rename fail
	require.NoError(t, os.Mkdir(base+".audit.json", 0700))
	require.NoError(t, os.WriteFile(filepath.Join(base+".audit.json", "keep"), []byte("x"), 0600))

	_, err := NewOutputWriter(nil).Write(base, res, nil)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorFileSystem))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "atto.audit.json", entries[0].Name())
}

func TestOutputWriterRefusesInconsistentAudit(t *testing.T) {
	res := exportScenario(t)
	res.Audit.SetMapping(append(res.Audit.Mapping, res.Audit.Mapping[0]))
	dir := t.TempDir()

	_, err := NewOutputWriter(nil).Write(filepath.Join(dir, "atto"), res, nil)
	require.Error(t, err)
	assert.True(t, IsType(err, ErrorValidation))
	assert.Contains(t, err.Error(), "repeats placeholder")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOutputWriterRejectsBadPaths(t *testing.T) {
	res := exportScenario(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	tests := []struct {
		name string
		base string
	}{
		{"empty", ""},
		{"traversal", dir + "/../escape"},
		{"parent is a file", filepath.Join(blocker, "atto")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOutputWriter(nil).Write(tt.base, res, nil)
			require.Error(t, err)
			assert.True(t, IsType(err, ErrorFileSystem))
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"out/atto", false},
		{"out/..hidden/atto", false},
		{"../atto", true},
		{"/etc/atto", true},
		{"/proc/self", true},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := ValidatePath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
