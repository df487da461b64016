// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package json

import (
	"encoding/json"
	"fmt"

	"lexredact/internal/formatters"
	"lexredact/internal/pipeline"
	"lexredact/internal/redactors"
)

// Formatter implements JSON output formatting
type Formatter struct{}

// NewFormatter creates a new JSON formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "json"
}

func (f *Formatter) Description() string {
	return "Structured JSON output for programmatic consumption"
}

func (f *Formatter) FileExtension() string {
	return ".json"
}

// reportDocument adds the derived totals so consumers need not sum the maps
type reportDocument struct {
	*pipeline.Report
	FilteredTotal int   `json:"filtered_total"`
	BlockedTotal  int   `json:"blocked_total"`
	IsDegraded    bool  `json:"is_degraded"`
	DurationMs    int64 `json:"duration_ms"`
}

func (f *Formatter) FormatReport(report *pipeline.Report, options formatters.FormatterOptions) (string, error) {
	if report == nil {
		return "{}", nil
	}
	doc := reportDocument{
		Report:        report,
		FilteredTotal: report.FilteredTotal(),
		BlockedTotal:  report.BlockedTotal(),
		IsDegraded:    report.IsDegraded(),
		DurationMs:    report.Duration.Milliseconds(),
	}
	return f.marshal(doc, options)
}

func (f *Formatter) FormatMapping(mapping redactors.MappingTable, options formatters.FormatterOptions) (string, error) {
	return f.marshal(struct {
		Mapping []formatters.MappingRow `json:"mapping"`
	}{formatters.MappingRows(mapping, options)}, options)
}

func (f *Formatter) marshal(v interface{}, options formatters.FormatterOptions) (string, error) {
	var data []byte
	var err error
	if options.Verbose {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", fmt.Errorf("error formatting JSON: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
