// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package text

import (
	"fmt"
	"strings"
	"time"

	"lexredact/internal/formatters"
	"lexredact/internal/pipeline"
	"lexredact/internal/redactors"

	"github.com/fatih/color"
)

// Formatter implements text-based output formatting
type Formatter struct {
	colors map[string]*color.Color
}

// NewFormatter creates a new text formatter
func NewFormatter() *Formatter {
	return &Formatter{
		colors: map[string]*color.Color{
			"green":   color.New(color.FgGreen),
			"yellow":  color.New(color.FgYellow),
			"red":     color.New(color.FgRed),
			"cyan":    color.New(color.FgCyan),
			"magenta": color.New(color.FgMagenta),
			"white":   color.New(color.FgWhite, color.Bold),
		},
	}
}

func (f *Formatter) Name() string {
	return "text"
}

func (f *Formatter) Description() string {
	return "Human-readable text output with colors and tables"
}

func (f *Formatter) FileExtension() string {
	return ".txt"
}

// paint colors a value unless colors are off for this call
func (f *Formatter) paint(name string, options formatters.FormatterOptions, format string, args ...interface{}) string {
	if options.NoColor {
		return fmt.Sprintf(format, args...)
	}
	return f.colors[name].Sprintf(format, args...)
}

func (f *Formatter) FormatReport(report *pipeline.Report, options formatters.FormatterOptions) (string, error) {
	if report == nil {
		return "No report.\n", nil
	}
	var b strings.Builder

	status := f.paint("green", options, "OK")
	if report.IsDegraded() {
		status = f.paint("yellow", options, "DEGRADED")
	}
	fmt.Fprintf(&b, "%s %s [%s]\n", f.paint("white", options, "Document:"), report.Document, status)
	f.line(&b, options, "Type", "%s (depth %s, %d pages)", report.DocumentType, report.Depth, report.Pages)
	f.line(&b, options, "Detected", "%d (%d injected)", report.Detected, report.Injected)
	f.line(&b, options, "Filtered", "%d%s", report.FilteredTotal(), breakdown(report.Filtered))
	f.line(&b, options, "Learned", "%d", report.Learned)
	f.line(&b, options, "Proposed", "%d (%d duplicates merged)", report.Proposed, report.Deduplicated)
	f.line(&b, options, "Unresolved", "%d", report.Unresolved)
	f.line(&b, options, "Blocked", "%d%s", report.BlockedTotal(), breakdown(report.Blocked))

	redacted := fmt.Sprintf("%d of %d locations, %d unique entities", report.Redacted, report.Locations, report.UniqueEntities)
	if report.Redacted > 0 {
		redacted = f.paint("red", options, "%s", redacted)
	}
	f.line(&b, options, "Redacted", "%s", redacted)

	if len(report.Errors) > 0 {
		f.line(&b, options, "Errors", "%d%s", len(report.Errors), breakdown(report.ErrorCounts))
	}
	if len(report.Degraded) > 0 {
		f.line(&b, options, "Degraded", "%s", f.paint("yellow", options, "%s", strings.Join(report.Degraded, ", ")))
	}
	f.line(&b, options, "Duration", "%s", report.Duration.Round(time.Millisecond))

	if report.Outputs != nil {
		for _, p := range report.Outputs.All() {
			f.line(&b, options, "Output", "%s", p)
		}
	}

	if options.Verbose && len(report.Errors) > 0 {
		b.WriteString(f.paint("white", options, "Errors:") + "\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "  %s %s\n", f.paint("magenta", options, "[%s]", e.Type), e.Message)
		}
	}
	return b.String(), nil
}

func (f *Formatter) line(b *strings.Builder, options formatters.FormatterOptions, label, format string, args ...interface{}) {
	fmt.Fprintf(b, "  %s %s\n", f.paint("cyan", options, "%-11s", label+":"), fmt.Sprintf(format, args...))
}

func breakdown(counts map[string]int) string {
	if len(counts) == 0 {
		return ""
	}
	parts := make([]string, 0, len(counts))
	for _, k := range pipeline.SortedKeys(counts) {
		parts = append(parts, fmt.Sprintf("%s: %d", k, counts[k]))
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func (f *Formatter) FormatMapping(mapping redactors.MappingTable, options formatters.FormatterOptions) (string, error) {
	rows := formatters.MappingRows(mapping, options)
	if len(rows) == 0 {
		return "No redactions.\n", nil
	}

	phWidth := len("PLACEHOLDER")
	for _, r := range rows {
		if n := len([]rune(r.Placeholder)); n > phWidth {
			phWidth = n
		}
	}
	if phWidth > 40 {
		phWidth = 40
	}

	var b strings.Builder
	b.WriteString(f.paint("white", options, "%-5s %-16s %-*s %-6s %s\n", "SEQ", "TYPE", phWidth, "PLACEHOLDER", "COUNT", "ORIGINAL"))
	b.WriteString(f.paint("white", options, "%s\n", strings.Repeat("-", 5+1+16+1+phWidth+1+6+1+10)))
	for _, r := range rows {
		fmt.Fprintf(&b, "%-5d %s %s %-6d %s\n",
			r.Seq,
			f.paint("cyan", options, "%-16s", r.Type),
			f.paint("magenta", options, "%s", pad(r.Placeholder, phWidth)),
			r.Occurrences,
			strings.ReplaceAll(r.Original, "\n", " "))
	}
	return b.String(), nil
}

// pad fits s into width runes, truncating with an ellipsis
func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
