// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package formatters

import (
	"fmt"
	"sort"
	"strings"

	"lexredact/internal/pipeline"
	"lexredact/internal/redactors"
)

// FormatterOptions defines configuration options for formatters
type FormatterOptions struct {
	Verbose bool // Whether to display detailed information
	NoColor bool // Whether to disable colored output

	// ShowOriginals writes the original text into mapping output. The mapping
	// file needs it; anything printed to a terminal should not.
	ShowOriginals bool
}

// Formatter interface defines methods that all output formatters must implement
type Formatter interface {
	// FormatReport renders the run report
	FormatReport(report *pipeline.Report, options FormatterOptions) (string, error)

	// FormatMapping renders the mapping table
	FormatMapping(mapping redactors.MappingTable, options FormatterOptions) (string, error)

	// Name returns the name of the formatter (e.g., "json", "text", "csv")
	Name() string

	// Description returns a brief description of what this formatter outputs
	Description() string

	// FileExtension returns the recommended file extension for this format (e.g., ".json", ".txt", ".csv")
	FileExtension() string
}

// Registry holds all registered formatters
type Registry struct {
	formatters map[string]Formatter
}

// NewRegistry creates a new formatter registry
func NewRegistry() *Registry {
	return &Registry{
		formatters: make(map[string]Formatter),
	}
}

// Register adds a formatter to the registry
func (r *Registry) Register(formatter Formatter) {
	r.formatters[formatter.Name()] = formatter
}

// Get retrieves a formatter by name
func (r *Registry) Get(name string) (Formatter, bool) {
	formatter, exists := r.formatters[name]
	return formatter, exists
}

// List returns all registered formatter names, sorted
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.formatters))
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry
var DefaultRegistry = NewRegistry()

// Register is a convenience function to register a formatter with the default registry
func Register(formatter Formatter) {
	DefaultRegistry.Register(formatter)
}

// Get is a convenience function to get a formatter from the default registry
func Get(name string) (Formatter, bool) {
	return DefaultRegistry.Get(name)
}

// List is a convenience function to list all formatters in the default registry
func List() []string {
	return DefaultRegistry.List()
}

// Lookup returns the named formatter or an error listing the available ones
func Lookup(format string) (Formatter, error) {
	formatter, exists := Get(format)
	if !exists {
		return nil, fmt.Errorf("unsupported format '%s'. Available formats: %s", format, strings.Join(List(), ", "))
	}
	return formatter, nil
}

// ExportMapping renders the mapping table for the mapping output file
func ExportMapping(format string, mapping redactors.MappingTable, options FormatterOptions) (*redactors.MappingOutput, error) {
	formatter, err := Lookup(format)
	if err != nil {
		return nil, err
	}
	content, err := formatter.FormatMapping(mapping, options)
	if err != nil {
		return nil, err
	}
	return &redactors.MappingOutput{Content: []byte(content), Extension: formatter.FileExtension()}, nil
}

// MaskedOriginal stands in for original text when ShowOriginals is off
const MaskedOriginal = "[REDACTED]"

// MappingRow is the flat form of a mapping record used by every formatter
type MappingRow struct {
	Seq         int    `json:"seq" yaml:"seq"`
	Type        string `json:"type" yaml:"type"`
	Placeholder string `json:"placeholder" yaml:"placeholder"`
	Original    string `json:"original" yaml:"original"`
	Length      int    `json:"length" yaml:"length"`
	Occurrences int    `json:"occurrences" yaml:"occurrences"`
	Fallback    bool   `json:"fallback,omitempty" yaml:"fallback,omitempty"`
}

// MappingRows flattens the table, masking originals unless asked not to
func MappingRows(mapping redactors.MappingTable, options FormatterOptions) []MappingRow {
	rows := make([]MappingRow, 0, len(mapping))
	for _, rec := range mapping {
		if rec == nil {
			continue
		}
		row := MappingRow{
			Seq:         rec.Seq,
			Type:        string(rec.Type),
			Placeholder: rec.Placeholder,
			Original:    MaskedOriginal,
			Occurrences: rec.Occurrences,
			Fallback:    rec.Fallback,
		}
		if rec.Original != nil {
			row.Length = rec.Original.RuneLen()
			if options.ShowOriginals {
				row.Original = rec.Original.String()
			}
		}
		rows = append(rows, row)
	}
	return rows
}
