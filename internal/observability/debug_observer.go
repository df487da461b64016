// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// DebugObserver prints nested pipeline steps. Steps started from concurrent
// page workers share one indentation counter, so nesting is approximate when
// pages run in parallel.
type DebugObserver struct {
	*StandardObserver
	stepMu sync.Mutex
	indent int
}

// NewDebugObserver creates a debug observer with step-by-step logging
func NewDebugObserver(writer io.Writer) *DebugObserver {
	d := &DebugObserver{
		StandardObserver: NewStandardObserver(ObservabilityDebug, writer),
	}
	d.StandardObserver.DebugObserver = d
	return d
}

// StartStep begins a processing step with indentation
func (d *DebugObserver) StartStep(component, step, document string) func(success bool, details string) {
	if d == nil {
		return func(bool, string) {}
	}
	start := time.Now()
	d.printf("🔄 %s: %s (%s)", component, step, document)
	d.stepMu.Lock()
	d.indent++
	d.stepMu.Unlock()

	return func(success bool, details string) {
		d.stepMu.Lock()
		d.indent--
		d.stepMu.Unlock()
		ms := time.Since(start).Milliseconds()
		if success {
			d.printf("✅ %s: %s completed (%dms) %s", component, step, ms, details)
		} else {
			d.printf("❌ %s: %s failed (%dms) %s", component, step, ms, details)
		}
	}
}

// LogDetail logs a detail within the current step
func (d *DebugObserver) LogDetail(component, detail string) {
	if d == nil {
		return
	}
	d.printf("   → %s: %s", component, detail)
}

// LogMetric logs a metric value
func (d *DebugObserver) LogMetric(component, metric string, value interface{}) {
	if d == nil {
		return
	}
	d.printf("   📊 %s: %s = %v", component, metric, value)
}

func (d *DebugObserver) printf(format string, args ...interface{}) {
	d.stepMu.Lock()
	indent := strings.Repeat("  ", max(0, d.indent))
	d.stepMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.writer, indent+format+"\n", args...)
}
