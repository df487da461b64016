// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strconv"
	"strings"

	"lexredact/internal/formatters"
	"lexredact/internal/pipeline"
	"lexredact/internal/redactors"
)

// Formatter implements CSV output formatting
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

// FormatReport writes one metric per row. Map counts become "filtered:<reason>"
// and "blocked:<reason>" rows.
func (f *Formatter) FormatReport(report *pipeline.Report, options formatters.FormatterOptions) (string, error) {
	rows := [][]string{{"Metric", "Value"}}
	if report == nil {
		return f.join(rows), nil
	}
	add := func(name string, value interface{}) {
		rows = append(rows, []string{name, fmt.Sprint(value)})
	}
	add("document", report.Document)
	add("document_type", report.DocumentType)
	add("depth", report.Depth)
	add("pages", report.Pages)
	add("detected", report.Detected)
	add("injected", report.Injected)
	for _, reason := range pipeline.SortedKeys(report.Filtered) {
		add("filtered:"+reason, report.Filtered[reason])
	}
	add("learned", report.Learned)
	add("deduplicated", report.Deduplicated)
	add("proposed", report.Proposed)
	add("unresolved", report.Unresolved)
	add("locations", report.Locations)
	for _, reason := range pipeline.SortedKeys(report.Blocked) {
		add("blocked:"+reason, report.Blocked[reason])
	}
	add("redacted", report.Redacted)
	add("skipped", report.Skipped)
	add("unique_entities", report.UniqueEntities)
	add("degraded", strings.Join(report.Degraded, ";"))
	add("duration_ms", report.Duration.Milliseconds())
	if options.Verbose {
		for _, e := range report.Errors {
			add("error:"+e.Type.String(), e.Message)
		}
	}
	return f.join(rows), nil
}

func (f *Formatter) FormatMapping(mapping redactors.MappingTable, options formatters.FormatterOptions) (string, error) {
	rows := [][]string{{"Seq", "Type", "Placeholder", "Original", "Length", "Occurrences"}}
	for _, r := range formatters.MappingRows(mapping, options) {
		rows = append(rows, []string{
			strconv.Itoa(r.Seq),
			r.Type,
			r.Placeholder,
			r.Original,
			strconv.Itoa(r.Length),
			strconv.Itoa(r.Occurrences),
		})
	}
	return f.join(rows), nil
}

func (f *Formatter) join(rows [][]string) string {
	lines := make([]string, len(rows))
	for i, row := range rows {
		fields := make([]string, len(row))
		for j, field := range row {
			fields[j] = f.escapeCSVField(field)
		}
		lines[i] = strings.Join(fields, ",")
	}
	return strings.Join(lines, "\n") + "\n"
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes fields a spreadsheet would evaluate as a formula
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
