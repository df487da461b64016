// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/config"
	"lexredact/internal/document"
	"lexredact/internal/paths"
	"lexredact/internal/pipeline"
	"lexredact/internal/store"
)

const sample = "Il sig. MARIO ROSSI, CF RSSMRA85C15H501X\n"

// isolate points the user config directory at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LEXREDACT_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Chdir(dir)
	return dir
}

func runCmd(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRunRedactsTextFile(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))
	outDir := filepath.Join(dir, "out")

	code, stdout, stderr := runCmd("--file", input, "--output-dir", outDir, "--format", "json", "--mapping-format", "csv")
	require.Equal(t, exitOK, code, stderr)

	var report struct {
		Redacted int `json:"redacted"`
		Outputs  struct {
			Document string `json:"document"`
			Text     string `json:"text"`
			Audit    string `json:"audit"`
			Mapping  string `json:"mapping"`
		} `json:"outputs"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.GreaterOrEqual(t, report.Redacted, 2)
	assert.Equal(t, filepath.Join(outDir, "atto.mapping.csv"), report.Outputs.Mapping)

	for _, p := range []string{report.Outputs.Document, report.Outputs.Text, report.Outputs.Audit, report.Outputs.Mapping} {
		assert.FileExists(t, p)
	}

	text, err := os.ReadFile(report.Outputs.Text)
	require.NoError(t, err)
	assert.NotContains(t, string(text), "MARIO ROSSI")
	assert.NotContains(t, string(text), "RSSMRA85C15H501X")
	assert.Equal(t, len([]rune(strings.TrimSuffix(sample, "\n"))), len([]rune(strings.TrimSuffix(string(text), "\n"))))

	mapping, err := os.ReadFile(report.Outputs.Mapping)
	require.NoError(t, err)
	assert.Contains(t, string(mapping), "RSSMRA85C15H501X")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))

	code, stdout, stderr := runCmd(input, "--dry-run", "--no-color")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "atto.txt")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRunReportFileAndQuiet(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))
	reportFile := filepath.Join(dir, "report.yaml")

	code, stdout, stderr := runCmd("-f", input, "--dry-run", "--format", "yaml", "--report", reportFile, "-q")
	require.Equal(t, exitOK, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(reportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "document: atto.txt")
}

func TestRunInformational(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		code int
		want string
	}{
		{"help", []string{"--help"}, exitOK, "USAGE:"},
		{"version", []string{"--version"}, exitOK, "lexredact"},
		{"explain types", []string{"--explain", "types"}, exitOK, "FISCAL_CODE"},
		{"explain one", []string{"--explain", "iban"}, exitOK, "THRESHOLDS:"},
		{"explain unknown", []string{"--explain", "PET"}, exitError, "not found"},
		{"profiles", []string{"--list-profiles"}, exitOK, "quick"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, _ := runCmd(tt.args...)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, stdout, tt.want)
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", nil, "--file is required"},
		{"missing input", []string{"--file", filepath.Join(dir, "missing.txt")}, "cannot load input"},
		{"bad flag", []string{"--bogus"}, "unknown flag"},
		{"bad format", []string{input, "--format", "xml"}, "unsupported format 'xml'"},
		{"bad mapping format", []string{input, "--mapping-format", "xml"}, "mapping format"},
		{"bad depth", []string{input, "--depth", "deep"}, "deep"},
		{"bad profile", []string{input, "--profile", "nope"}, "nope"},
		{"bad observability", []string{input, "--observability", "loud"}, "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCmd(tt.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRunDebugTracesSteps(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))

	code, _, stderr := runCmd(input, "--dry-run", "--debug", "--no-color")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "main: load document")
	assert.Contains(t, stderr, "pipeline: filtered = ")
	assert.Contains(t, stderr, "pipeline: propose completed")
	assert.NotContains(t, stderr, "MARIO ROSSI")
}

func TestApplyFlagsFillsOnnxLibrary(t *testing.T) {
	t.Setenv(paths.OnnxLibraryEnv, "/opt/ort/libonnxruntime.so")

	cfg := config.LoadConfigOrDefault("")
	require.NoError(t, applyFlags(cfg, &cliFlags{}))
	assert.Equal(t, "/opt/ort/libonnxruntime.so", cfg.Transformer.LibraryPath)

	cfg = config.LoadConfigOrDefault("")
	cfg.Transformer.LibraryPath = "/from/config.so"
	require.NoError(t, applyFlags(cfg, &cliFlags{}))
	assert.Equal(t, "/from/config.so", cfg.Transformer.LibraryPath)
}

func TestRunTimeoutWritesNothing(t *testing.T) {
	dir := isolate(t)
	input := filepath.Join(dir, "atto.txt")
	require.NoError(t, os.WriteFile(input, []byte(sample), 0600))
	cfgFile := filepath.Join(dir, "lexredact.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("timeout: 1ns\n"), 0600))

	code, _, stderr := runCmd(input, "--config", cfgFile, "--output-dir", filepath.Join(dir, "out"))
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "run interrupted")
	assert.Contains(t, stderr, "Nothing was written")
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestReviewNarrowsProposal(t *testing.T) {
	cfg := config.LoadConfigOrDefault("")
	opts, err := cfg.PipelineOptions(nil)
	require.NoError(t, err)
	st := store.NewMemory()
	p, err := pipeline.New(opts, pipeline.Dependencies{Store: st})
	require.NoError(t, err)

	doc := document.FromText("r.txt", "Mario Rossi e Luigi Verdi, poi ancora Mario Rossi")
	proposal, err := p.Propose(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, proposal.Candidates)

	// the first prompt covers the first proposed entity and all its occurrences
	first := proposal.Candidates[0]
	firstKey := store.Key(first.Type, first.Text)
	occurrences := 0
	for _, c := range proposal.Candidates {
		if store.Key(c.Type, c.Text) == firstKey {
			occurrences++
		}
	}

	var stderr bytes.Buffer
	app := &application{cfg: cfg, stdin: strings.NewReader("n\n"), stderr: &stderr}
	reviewed, err := app.review(context.Background(), p, proposal)
	require.NoError(t, err)

	for _, c := range reviewed.Candidates {
		assert.NotEqual(t, firstKey, store.Key(c.Type, c.Text))
	}
	assert.Len(t, reviewed.Candidates, len(proposal.Candidates)-occurrences)
	assert.Equal(t, occurrences, reviewed.Report.Filtered[ReasonReviewer])
	assert.Contains(t, stderr.String(), "redact? [Y/n/a]")

	denied, err := st.Get(context.Background(), first.Type, first.Text)
	require.NoError(t, err)
	assert.False(t, denied.Confirmed)
}
