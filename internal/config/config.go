// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"lexredact/internal/detector"
	"lexredact/internal/parallel"
	"lexredact/internal/paths"
	"lexredact/internal/pipeline"
	"lexredact/internal/policy"
	"lexredact/internal/redactors"
	"lexredact/internal/redactors/safety"

	"gopkg.in/yaml.v3"
)

// DefaultTimeout bounds one document run
const DefaultTimeout = 5 * time.Minute

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Verbose bool   `yaml:"verbose"`
		Debug   bool   `yaml:"debug"`
		NoColor bool   `yaml:"no_color"`
	} `yaml:"defaults"`

	Detection struct {
		Depth       string   `yaml:"depth"`
		EntityTypes []string `yaml:"entity_types"`

		// Keywords are always redacted as CUSTOM entities
		Keywords []string `yaml:"keywords"`

		// DocumentType is "auto" or a forced genre
		DocumentType string `yaml:"document_type"`
	} `yaml:"detection"`

	Features Features `yaml:"features"`

	Transformer struct {
		Models      []TransformerModel `yaml:"models"`
		LibraryPath string             `yaml:"library_path"`
	} `yaml:"transformer"`

	Policy struct {
		Allow        []string `yaml:"allow"`
		DenyPatterns []string `yaml:"deny_patterns"`

		// ListsFile holds reviewer allow and deny rules
		ListsFile string `yaml:"lists_file"`
	} `yaml:"policy"`

	Safety safety.Config `yaml:"safety"`

	Redaction struct {
		// Padding in points around each redaction box
		Padding   float64 `yaml:"padding"`
		OutputDir string  `yaml:"output_dir"`

		// Format of the mapping file
		Format string `yaml:"format"`
	} `yaml:"redaction"`

	Store struct {
		// Path of the bbolt file; empty keeps learned entities in memory
		Path string `yaml:"path"`
	} `yaml:"store"`

	Workers int           `yaml:"workers"`
	Timeout time.Duration `yaml:"timeout"`

	// Profiles for different review scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Features toggles pipeline stages
type Features struct {
	Normalize     bool `yaml:"normalize"`
	Prefilter     bool `yaml:"prefilter"`
	Transformer   bool `yaml:"transformer"`
	MultiModel    bool `yaml:"multi_model"`
	LearnedStore  bool `yaml:"learned_store"`
	ResetMetadata bool `yaml:"reset_metadata"`
}

// TransformerModel describes one token-classification model on disk
type TransformerModel struct {
	Name      string `yaml:"name"`
	Dir       string `yaml:"dir"`
	MaxTokens int    `yaml:"max_tokens"`

	// Labels maps model labels such as B-PER to entity types
	Labels map[string]string `yaml:"labels"`
}

// Profile represents a named set of overrides. Zero values leave the base
// configuration untouched; pointer toggles distinguish "off" from "unset".
type Profile struct {
	Description  string   `yaml:"description"`
	Format       string   `yaml:"format"`
	Depth        string   `yaml:"depth"`
	EntityTypes  []string `yaml:"entity_types"`
	Keywords     []string `yaml:"keywords"`
	DocumentType string   `yaml:"document_type"`
	Transformer  *bool    `yaml:"transformer,omitempty"`
	MultiModel   *bool    `yaml:"multi_model,omitempty"`
	LearnedStore *bool    `yaml:"learned_store,omitempty"`
	Verbose      bool     `yaml:"verbose"`
	Workers      int      `yaml:"workers"`
	OutputDir    string   `yaml:"output_dir"`
}

func boolPtr(b bool) *bool { return &b }

func defaultConfig() *Config {
	config := &Config{
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Format = "text"

	config.Detection.Depth = detector.DepthBalanced.String()
	config.Detection.DocumentType = "auto"

	config.Features = Features{
		Normalize:     true,
		Prefilter:     true,
		LearnedStore:  true,
		ResetMetadata: true,
	}

	config.Safety = safety.DefaultConfig()

	config.Redaction.Padding = redactors.DefaultPadding
	config.Redaction.Format = "json"

	config.Workers = parallel.DefaultWorkers()
	config.Timeout = DefaultTimeout

	config.Profiles["quick"] = Profile{
		Description: "Pattern and statistical recognizers only, for a first pass",
		Depth:       detector.DepthFast.String(),
		Transformer: boolPtr(false),
		MultiModel:  boolPtr(false),
	}
	config.Profiles["thorough"] = Profile{
		Description: "Lower thresholds and a detailed report",
		Depth:       detector.DepthThorough.String(),
		Verbose:     true,
	}
	return config
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	// If no config file specified, return default config
	if configPath == "" {
		return config, nil
	}

	cleanPath := filepath.Clean(configPath)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	defaults := config.Features
	builtinProfiles := config.Profiles

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Restore default-true toggles the file does not mention; unmarshaling a
	// partial features block zeroes them
	if !containsField(data, "features", "normalize") {
		config.Features.Normalize = defaults.Normalize
	}
	if !containsField(data, "features", "prefilter") {
		config.Features.Prefilter = defaults.Prefilter
	}
	if !containsField(data, "features", "learned_store") {
		config.Features.LearnedStore = defaults.LearnedStore
	}
	if !containsField(data, "features", "reset_metadata") {
		config.Features.ResetMetadata = defaults.ResetMetadata
	}

	// User profiles add to the built-in ones and may replace them by name
	if config.Profiles == nil {
		config.Profiles = make(map[string]Profile)
	}
	for name, p := range builtinProfiles {
		if _, ok := config.Profiles[name]; !ok {
			config.Profiles[name] = p
		}
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// FindConfigFile looks for a configuration file in the working directory,
// then in the user configuration directory
func FindConfigFile() string {
	for _, candidate := range []string{"lexredact.yaml", ".lexredact.yaml"} {
		if fileExists(candidate) {
			return candidate
		}
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}
	return ""
}

// fileExists checks if a file exists and is not a directory
func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the available profile names, sorted
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile merges the named profile over the configuration
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile '%s' not found. Available profiles: %s", name, strings.Join(c.ListProfiles(), ", "))
	}

	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Depth != "" {
		c.Detection.Depth = p.Depth
	}
	if len(p.EntityTypes) > 0 {
		c.Detection.EntityTypes = p.EntityTypes
	}
	if len(p.Keywords) > 0 {
		c.Detection.Keywords = append(append([]string{}, c.Detection.Keywords...), p.Keywords...)
	}
	if p.DocumentType != "" {
		c.Detection.DocumentType = p.DocumentType
	}
	if p.Transformer != nil {
		c.Features.Transformer = *p.Transformer
	}
	if p.MultiModel != nil {
		c.Features.MultiModel = *p.MultiModel
	}
	if p.LearnedStore != nil {
		c.Features.LearnedStore = *p.LearnedStore
	}
	if p.Verbose {
		c.Defaults.Verbose = true
	}
	if p.Workers > 0 {
		c.Workers = p.Workers
	}
	if p.OutputDir != "" {
		c.Redaction.OutputDir = p.OutputDir
	}
	return ValidateConfig(c)
}

// containsField checks if a nested field exists in the YAML data
func containsField(data []byte, path ...string) bool {
	var yamlData map[string]interface{}
	err := yaml.Unmarshal(data, &yamlData)
	if err != nil {
		return false
	}

	current := yamlData
	for i, key := range path {
		if i == len(path)-1 {
			_, exists := current[key]
			return exists
		}
		if next, ok := current[key].(map[string]interface{}); ok {
			current = next
		} else {
			return false
		}
	}
	return false
}

// ValidateConfig checks every value the pipeline would otherwise reject late
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	if _, err := detector.ParseDepth(config.Detection.Depth); err != nil {
		return fmt.Errorf("detection.depth: %w", err)
	}
	if _, err := config.EnabledTypes(); err != nil {
		return fmt.Errorf("detection.entity_types: %w", err)
	}
	if _, err := policy.ParseDocumentType(config.Detection.DocumentType); err != nil {
		return fmt.Errorf("detection.document_type: %w", err)
	}
	if _, err := policy.New(policy.Options{DenyPatterns: config.Policy.DenyPatterns, NoDefaults: true}); err != nil {
		return fmt.Errorf("policy.deny_patterns: %w", err)
	}

	if err := validateSafety(config.Safety); err != nil {
		return fmt.Errorf("safety: %w", err)
	}

	if config.Features.Transformer {
		if len(config.Transformer.Models) == 0 {
			return fmt.Errorf("features.transformer is on but transformer.models is empty")
		}
		for i, m := range config.Transformer.Models {
			if m.Dir == "" {
				return fmt.Errorf("transformer.models[%d]: dir is required", i)
			}
			for label, t := range m.Labels {
				if _, err := detector.ParseEntityType(t); err != nil {
					return fmt.Errorf("transformer.models[%d].labels[%s]: %w", i, label, err)
				}
			}
		}
	}

	if config.Redaction.Padding < 0 {
		return fmt.Errorf("redaction.padding must not be negative")
	}
	if config.Redaction.OutputDir != "" {
		if err := redactors.ValidatePath(config.Redaction.OutputDir); err != nil {
			return fmt.Errorf("invalid redaction output directory: %w", err)
		}
	}
	if config.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	for name, profile := range config.Profiles {
		if profile.Depth != "" {
			if _, err := detector.ParseDepth(profile.Depth); err != nil {
				return fmt.Errorf("profile '%s': %w", name, err)
			}
		}
		if profile.OutputDir != "" {
			if err := redactors.ValidatePath(profile.OutputDir); err != nil {
				return fmt.Errorf("invalid redaction output directory in profile '%s': %w", name, err)
			}
		}
	}
	return nil
}

func validateSafety(s safety.Config) error {
	switch {
	case s.MaxWhiteFraction <= 0 || s.MaxWhiteFraction > 1:
		return fmt.Errorf("max_white_fraction must be in (0, 1], got %v", s.MaxWhiteFraction)
	case s.MinSimilarity <= 0 || s.MinSimilarity > 1:
		return fmt.Errorf("min_similarity must be in (0, 1], got %v", s.MinSimilarity)
	case s.OverlapRatio <= 0 || s.OverlapRatio > 1:
		return fmt.Errorf("overlap_ratio must be in (0, 1], got %v", s.OverlapRatio)
	case s.Zoom <= 0:
		return fmt.Errorf("zoom must be positive, got %v", s.Zoom)
	case s.NearWhiteLevel == 0:
		return fmt.Errorf("near_white_level must be positive")
	}
	return nil
}

// EnabledTypes returns the configured entity types; nil enables all of them
func (c *Config) EnabledTypes() (map[detector.EntityType]bool, error) {
	if len(c.Detection.EntityTypes) == 0 {
		return nil, nil
	}
	types := make(map[detector.EntityType]bool, len(c.Detection.EntityTypes))
	for _, s := range c.Detection.EntityTypes {
		t, err := detector.ParseEntityType(s)
		if err != nil {
			return nil, err
		}
		types[t] = true
	}
	return types, nil
}

// PipelineOptions converts the configuration into pipeline options. rules
// may be nil when no lists file is in use.
func (c *Config) PipelineOptions(rules policy.Rules) (pipeline.Options, error) {
	depth, err := detector.ParseDepth(c.Detection.Depth)
	if err != nil {
		return pipeline.Options{}, err
	}
	docType, err := policy.ParseDocumentType(c.Detection.DocumentType)
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Depth:        depth,
		DocumentType: docType,
		Normalize:    c.Features.Normalize,
		Prefilter:    c.Features.Prefilter,
		LearnedStore: c.Features.LearnedStore,
		Policy: policy.Options{
			Allow:        c.Policy.Allow,
			DenyPatterns: c.Policy.DenyPatterns,
			Rules:        rules,
		},
		Safety: c.Safety,
		Export: redactors.ExportOptions{
			Padding:       c.Redaction.Padding,
			ResetMetadata: c.Features.ResetMetadata,
		},
		Workers: c.Workers,
	}, nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		cfg = defaultConfig()
	}
	return cfg
}
