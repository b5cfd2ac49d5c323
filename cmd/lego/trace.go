package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/thomasrohde/lego/pkg/diagnostics"
	"github.com/thomasrohde/lego/pkg/evaluator"
)

// TraceSummary condenses one NDJSON trace file.
type TraceSummary struct {
	RunID            string         `json:"runId"`
	TotalEvents      int            `json:"totalEvents"`
	Quantifiers      int            `json:"quantifiers"`
	QuantifiersByVar map[string]int `json:"quantifiersByVar"`
	Iterations       int64          `json:"iterations"`
	Result           *bool          `json:"result,omitempty"`
	Faults           int            `json:"faults"`
	FaultCodes       []string       `json:"faultCodes,omitempty"`
	StartTime        string         `json:"startTime,omitempty"`
	EndTime          string         `json:"endTime,omitempty"`
	DurationMs       float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func (c *cli) cmdTrace(args []string) int {
	var file string
	textOutput := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--json":
			textOutput = false
		case "--text":
			textOutput = true
		default:
			if positional(args, i) {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(c.stderr, "usage: lego trace <file.jsonl> [--json|--text]")
		return exitUsage
	}

	f, err := os.Open(c.resolve(file))
	if err != nil {
		c.report(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s", file), nil, ""), false)
		return exitUsage
	}
	defer f.Close()

	summary, err := computeTraceSummary(f)
	if err != nil {
		c.report(diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("cannot read file: %s: %s", file, err), nil, ""), false)
		return exitUsage
	}

	if textOutput {
		printTraceSummaryText(c.stdout, summary)
		return exitOK
	}
	b, _ := json.Marshal(summary)
	fmt.Fprintln(c.stdout, string(b))
	return exitOK
}

// computeTraceSummary reads NDJSON trace events from r. Lines that are not
// valid JSON are skipped.
func computeTraceSummary(r io.Reader) (*TraceSummary, error) {
	summary := &TraceSummary{
		QuantifiersByVar: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch evaluator.TraceEventType(event.Event) {
		case evaluator.TraceRunStart:
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case evaluator.TraceRunEnd:
			summary.EndTime = event.TS
			if n, ok := event.Data["iterations"].(float64); ok {
				summary.Iterations = int64(n)
			}
			if b, ok := event.Data["result"].(bool); ok {
				summary.Result = &b
			}
		case evaluator.TraceQuantStart:
			summary.Quantifiers++
			if name, ok := event.Data["var"].(string); ok {
				summary.QuantifiersByVar[name]++
			}
		case evaluator.TraceFault:
			summary.Faults++
			if code, ok := event.Data["code"].(string); ok {
				summary.FaultCodes = append(summary.FaultCodes, code)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	slices.Sort(summary.FaultCodes)
	summary.FaultCodes = slices.Compact(summary.FaultCodes)

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary, nil
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Quantifiers: %d entered\n", s.Quantifiers)

	vars := make([]string, 0, len(s.QuantifiersByVar))
	for name := range s.QuantifiersByVar {
		vars = append(vars, name)
	}
	slices.Sort(vars)
	for _, name := range vars {
		fmt.Fprintf(w, "  %s: %d\n", name, s.QuantifiersByVar[name])
	}

	fmt.Fprintf(w, "Iterations: %d\n", s.Iterations)
	if s.Result != nil {
		fmt.Fprintf(w, "Result: %t\n", *s.Result)
	}
	if s.Faults > 0 {
		fmt.Fprintf(w, "Faults: %d (%s)\n", s.Faults, strings.Join(s.FaultCodes, ", "))
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}
