package evaluator

import (
	"bytes"
	"encoding/json"
)

type spanJSON struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	StartCol  int    `json:"startCol"`
}

type resultJSON struct {
	Value bool   `json:"value"`
	Stats *Stats `json:"stats,omitempty"`
}

// ResultToJSON marshals an evaluation result. Stats are included only when
// withStats is set, so the default output is stable across runs.
func ResultToJSON(res *ExecResult, withStats bool) ([]byte, error) {
	out := resultJSON{Value: res.Value}
	if withStats {
		stats := res.Stats
		out.Stats = &stats
	}
	return json.Marshal(out)
}

// TraceToJSONL marshals trace events as newline-delimited JSON.
func TraceToJSONL(events []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	for _, ev := range events {
		b, err := TraceEventToJSON(ev)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// TraceEventToJSON marshals one trace event with a compact span.
func TraceEventToJSON(ev TraceEvent) ([]byte, error) {
	type eventJSON struct {
		Timestamp string         `json:"ts"`
		RunID     string         `json:"runId"`
		Event     TraceEventType `json:"event"`
		Span      *spanJSON      `json:"span,omitempty"`
		Data      map[string]any `json:"data,omitempty"`
	}
	item := eventJSON{
		Timestamp: ev.Timestamp,
		RunID:     ev.RunID,
		Event:     ev.Event,
		Data:      ev.Data,
	}
	if ev.Span != nil {
		item.Span = &spanJSON{
			File:      ev.Span.File,
			StartLine: ev.Span.StartLine,
			StartCol:  ev.Span.StartCol,
		}
	}
	return json.Marshal(item)
}
