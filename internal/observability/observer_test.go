// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    ObservabilityLevel
		wantErr bool
	}{
		{"", ObservabilityOff, false},
		{"off", ObservabilityOff, false},
		{"Metrics", ObservabilityMetrics, false},
		{" debug ", ObservabilityDebug, false},
		{"verbose", ObservabilityOff, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStartTimingWritesJSONInDebug(t *testing.T) {
	var buf bytes.Buffer
	o := NewStandardObserver(ObservabilityDebug, &buf)

	done := o.StartTiming("pipeline", "redact", "atto.pdf")
	done(true, map[string]interface{}{"redacted": 3})

	var rec StandardObservabilityData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "pipeline", rec.Component)
	assert.Equal(t, "redact", rec.Operation)
	assert.Equal(t, "atto.pdf", rec.Document)
	assert.True(t, rec.Success)
	assert.True(t, strings.HasPrefix(rec.RequestID, "req-"))
	assert.EqualValues(t, 3, rec.Metadata["redacted"])
}

func TestLevelsGateOutput(t *testing.T) {
	var buf bytes.Buffer
	off := NewStandardObserver(ObservabilityOff, &buf)
	off.StartTiming("c", "op", "")(true, nil)
	off.Warnf("c", "lost %d", 1)
	assert.Empty(t, buf.String())

	metrics := NewStandardObserver(ObservabilityMetrics, &buf)
	metrics.StartTiming("c", "op", "")(true, nil)
	assert.Empty(t, buf.String(), "operation records are debug only")
	metrics.Warnf("transformer", "model %s unavailable", "ner-it")
	assert.Contains(t, buf.String(), "transformer: model ner-it unavailable")
}

func TestNilObserversAreSafe(t *testing.T) {
	var o *StandardObserver
	assert.Equal(t, ObservabilityOff, o.Level())
	o.StartTiming("c", "op", "")(false, nil)
	o.Warnf("c", "ignored")

	var d *DebugObserver
	d.StartStep("c", "step", "doc")(true, "")
	d.LogDetail("c", "detail")
	d.LogMetric("c", "m", 1)
}

func TestDebugObserverIndentsNestedSteps(t *testing.T) {
	var buf bytes.Buffer
	d := NewDebugObserver(&buf)

	outer := d.StartStep("main", "load document", "atto.txt")
	d.LogDetail("pdf", "2 pages")
	inner := d.StartStep("pipeline", "propose", "atto.txt")
	d.LogMetric("pipeline", "candidates", 4)
	inner(true, "4 candidates")
	outer(false, "boom")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "🔄 main: load document (atto.txt)", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "     → pdf: 2 pages"))
	assert.True(t, strings.HasPrefix(lines[2], "  🔄 pipeline: propose"))
	assert.Contains(t, lines[3], "📊 pipeline: candidates = 4")
	assert.True(t, strings.HasPrefix(lines[4], "  ✅ pipeline: propose completed"))
	assert.True(t, strings.HasPrefix(lines[5], "❌ main: load document failed"))
	assert.Equal(t, d, d.StandardObserver.DebugObserver)
}
