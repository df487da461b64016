// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestStoreActions(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learned.db")

	code, out, _ := runCmd(t, "--action", "list", "--store", db)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No learned entities found.")

	code, out, errOut := runCmd(t, "--action", "confirm", "--store", db, "--type", "PERSON", "--text", "Mario Rossi")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "PERSON confirmed")

	code, _, errOut = runCmd(t, "--action", "deny", "--store", db, "--type", "location", "--text", "Tribunale")
	require.Equal(t, 0, code, errOut)

	code, out, _ = runCmd(t, "--action", "list", "--store", db)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Found 2 learned entities")
	assert.Contains(t, out, "Mario Rossi")
	assert.Contains(t, out, "denied")

	code, out, errOut = runCmd(t, "--action", "remove", "--store", db, "--type", "PERSON", "--text", "Mario Rossi")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Removed learned PERSON entity")

	code, _, errOut = runCmd(t, "--action", "remove", "--store", db, "--type", "PERSON", "--text", "Mario Rossi")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "no learned PERSON entity")
}

func TestListsActions(t *testing.T) {
	lists := filepath.Join(t.TempDir(), "lists.yaml")

	code, out, _ := runCmd(t, "--action", "rules", "--lists", lists)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No rules found.")

	code, out, errOut := runCmd(t, "--action", "allow", "--lists", lists, "--text", "Corte di Cassazione", "--reason", "court name")
	require.Equal(t, 0, code, errOut)
	id := regexp.MustCompile(`LST-\d{8}`).FindString(out)
	require.NotEmpty(t, id, out)

	code, _, errOut = runCmd(t, "--action", "block", "--lists", lists, "--type", "ORGANIZATION", "--text", "Alfa S.r.l.", "--expires-in", "24h")
	require.Equal(t, 0, code, errOut)

	code, out, _ = runCmd(t, "--action", "rules", "--lists", lists)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Found 2 rules")
	assert.Contains(t, out, "Reason: court name")
	assert.Contains(t, out, "Type: ORGANIZATION")
	assert.Contains(t, out, "Expires At:")

	code, out, errOut = runCmd(t, "--action", "unrule", "--lists", lists, "--id", id)
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, id)

	code, out, _ = runCmd(t, "--action", "cleanup", "--lists", lists)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "Cleaned up 0 expired rules")
}

func TestUsageErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "learned.db")
	lists := filepath.Join(t.TempDir(), "lists.yaml")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing action", nil, "--action is required"},
		{"unknown action", []string{"--action", "purge"}, "unknown action"},
		{"confirm without text", []string{"--action", "confirm", "--store", db, "--type", "PERSON"}, "--type and --text are required"},
		{"bad type", []string{"--action", "confirm", "--store", db, "--type", "PET", "--text", "Fido"}, "PET"},
		{"allow without text", []string{"--action", "allow", "--lists", lists}, "--text is required"},
		{"unrule without id", []string{"--action", "unrule", "--lists", lists}, "--id is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCmd(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}
