// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lexredact/internal/detector"
	"lexredact/internal/paths"
	"lexredact/internal/policy"
	"lexredact/internal/redactors/safety"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexredact.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Defaults.Format)
	assert.Equal(t, "balanced", cfg.Detection.Depth)
	assert.Equal(t, "auto", cfg.Detection.DocumentType)
	assert.True(t, cfg.Features.Normalize)
	assert.True(t, cfg.Features.Prefilter)
	assert.True(t, cfg.Features.LearnedStore)
	assert.True(t, cfg.Features.ResetMetadata)
	assert.False(t, cfg.Features.Transformer)
	assert.Equal(t, safety.DefaultConfig(), cfg.Safety)
	assert.Equal(t, "json", cfg.Redaction.Format)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Positive(t, cfg.Workers)
	assert.Equal(t, []string{"quick", "thorough"}, cfg.ListProfiles())
}

func TestLoadConfig_PartialFeaturesKeepDefaults(t *testing.T) {
	path := writeConfig(t, `
features:
  prefilter: false
safety:
  min_similarity: 0.9
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Features.Prefilter)
	assert.True(t, cfg.Features.Normalize, "absent toggle keeps its default")
	assert.True(t, cfg.Features.LearnedStore)
	assert.True(t, cfg.Features.ResetMetadata)
	assert.Equal(t, 0.9, cfg.Safety.MinSimilarity)
	assert.Equal(t, safety.DefaultMaxWhiteFraction, cfg.Safety.MaxWhiteFraction)
}

func TestLoadConfig_FullFile(t *testing.T) {
	path := writeConfig(t, `
defaults:
  format: json
detection:
  depth: thorough
  entity_types: [person, fiscal_code]
  keywords: ["Progetto Orione"]
  document_type: legal
features:
  transformer: true
transformer:
  library_path: /opt/onnx/libonnxruntime.so
  models:
    - name: it
      dir: /models/it
      max_tokens: 256
      labels:
        B-PER: PERSON
policy:
  allow: ["Tribunale di Milano"]
  deny_patterns: ["^Avv\\."]
redaction:
  output_dir: out
  format: csv
store:
  path: learned.db
workers: 3
timeout: 90s
profiles:
  archive:
    description: archived rulings
    depth: maximum
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Defaults.Format)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, 3, cfg.Workers)
	require.Len(t, cfg.Transformer.Models, 1)
	assert.Equal(t, 256, cfg.Transformer.Models[0].MaxTokens)
	assert.Equal(t, "learned.db", cfg.Store.Path)
	assert.Equal(t, []string{"archive", "quick", "thorough"}, cfg.ListProfiles())

	types, err := cfg.EnabledTypes()
	require.NoError(t, err)
	assert.Equal(t, map[detector.EntityType]bool{detector.TypePerson: true, detector.TypeFiscalCode: true}, types)

	opts, err := cfg.PipelineOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, detector.DepthThorough, opts.Depth)
	assert.Equal(t, policy.DocumentLegal, opts.DocumentType)
	assert.Equal(t, []string{"Tribunale di Milano"}, opts.Policy.Allow)
	assert.True(t, opts.Export.ResetMetadata)
	assert.Equal(t, 3, opts.Workers)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "detection: [unclosed"},
		{"tab indentation", "detection:\n\tdepth: fast\n"},
		{"bad depth", "detection:\n  depth: extreme\n"},
		{"bad entity type", "detection:\n  entity_types: [SSN]\n"},
		{"bad document type", "detection:\n  document_type: poetry\n"},
		{"bad deny pattern", "policy:\n  deny_patterns: ['(']\n"},
		{"white fraction out of range", "safety:\n  max_white_fraction: 1.5\n"},
		{"zero zoom", "safety:\n  zoom: 0\n"},
		{"transformer without models", "features:\n  transformer: true\n"},
		{"model without dir", "features:\n  transformer: true\ntransformer:\n  models:\n    - name: x\n"},
		{"bad label", "features:\n  transformer: true\ntransformer:\n  models:\n    - dir: m\n      labels: {B-X: NOPE}\n"},
		{"negative padding", "redaction:\n  padding: -1\n"},
		{"system output dir", "redaction:\n  output_dir: /etc/out\n"},
		{"negative workers", "workers: -1\n"},
		{"bad profile depth", "profiles:\n  x:\n    depth: deep\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")
		require.NotNil(t, cfg)
		assert.Equal(t, "text", cfg.Defaults.Format)
	})
	t.Run("invalid file", func(t *testing.T) {
		cfg := LoadConfigOrDefault(writeConfig(t, "workers: -4\n"))
		require.NotNil(t, cfg)
		assert.Positive(t, cfg.Workers)
	})
	t.Run("valid file", func(t *testing.T) {
		cfg := LoadConfigOrDefault(writeConfig(t, "defaults:\n  format: yaml\n"))
		assert.Equal(t, "yaml", cfg.Defaults.Format)
	})
}

func TestApplyProfile(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyProfile("quick"))
	assert.Equal(t, "fast", cfg.Detection.Depth)
	assert.False(t, cfg.Features.Transformer)

	cfg.Profiles["custom"] = Profile{Keywords: []string{"Alfa"}, LearnedStore: boolPtr(false), Workers: 1}
	require.NoError(t, cfg.ApplyProfile("custom"))
	assert.Equal(t, []string{"Alfa"}, cfg.Detection.Keywords)
	assert.False(t, cfg.Features.LearnedStore)
	assert.Equal(t, 1, cfg.Workers)

	err = cfg.ApplyProfile("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom, quick, thorough")
}

func TestApplyProfileValidates(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.NoError(t, cfg.ApplyProfile("thorough"))
	assert.Equal(t, "thorough", cfg.Detection.Depth)
	assert.True(t, cfg.Defaults.Verbose)

	cfg.Profiles["models"] = Profile{Transformer: boolPtr(true)}
	assert.Error(t, cfg.ApplyProfile("models"), "transformer without models")
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(paths.ConfigDirEnv, dir)
	t.Chdir(t.TempDir())

	assert.Empty(t, FindConfigFile())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{}"), 0600))
	assert.Equal(t, filepath.Join(dir, "config.yaml"), FindConfigFile())

	require.NoError(t, os.WriteFile(".lexredact.yaml", []byte("{}"), 0600))
	assert.Equal(t, ".lexredact.yaml", FindConfigFile())

	require.NoError(t, os.WriteFile("lexredact.yaml", []byte("{}"), 0600))
	assert.Equal(t, "lexredact.yaml", FindConfigFile())
}
