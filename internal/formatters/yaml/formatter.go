// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package yaml

import (
	"fmt"

	"lexredact/internal/formatters"
	"lexredact/internal/pipeline"
	"lexredact/internal/redactors"

	"gopkg.in/yaml.v3"
)

// Formatter implements YAML output formatting
type Formatter struct{}

// NewFormatter creates a new YAML formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "yaml"
}

func (f *Formatter) Description() string {
	return "YAML format output, same structure as JSON"
}

func (f *Formatter) FileExtension() string {
	return ".yaml"
}

type reportDocument struct {
	Report        pipeline.Report `yaml:",inline"`
	FilteredTotal int             `yaml:"filtered_total"`
	BlockedTotal  int             `yaml:"blocked_total"`
	IsDegraded    bool            `yaml:"is_degraded"`
}

func (f *Formatter) FormatReport(report *pipeline.Report, _ formatters.FormatterOptions) (string, error) {
	if report == nil {
		return "{}\n", nil
	}
	return marshal(reportDocument{
		Report:        *report,
		FilteredTotal: report.FilteredTotal(),
		BlockedTotal:  report.BlockedTotal(),
		IsDegraded:    report.IsDegraded(),
	})
}

func (f *Formatter) FormatMapping(mapping redactors.MappingTable, options formatters.FormatterOptions) (string, error) {
	return marshal(struct {
		Mapping []formatters.MappingRow `yaml:"mapping"`
	}{formatters.MappingRows(mapping, options)})
}

func marshal(v interface{}) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("error formatting YAML: %w", err)
	}
	return string(data), nil
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
