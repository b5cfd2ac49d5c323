package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/lego/internal/testutil"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			home := t.TempDir()
			t.Setenv("HOME", home)
			t.Setenv("USERPROFILE", home)

			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}

			abs, err := filepath.Abs(dir)
			if err != nil {
				t.Fatal(err)
			}
			var stdout, stderr bytes.Buffer
			c := &cli{
				stdin:  strings.NewReader(scenario.Stdin),
				stdout: &stdout,
				stderr: &stderr,
				dir:    abs,
			}
			exit := c.run(scenario.Cmd)

			if exit != scenario.Expect.ExitCode {
				t.Errorf("exit code: got %d, want %d\nstderr: %s", exit, scenario.Expect.ExitCode, stderr.String())
			}
			checkStdoutExpectations(t, stdout.String(), scenario)
			checkStderrExpectations(t, stderr.String(), scenario)
		})
	}
}

func checkStdoutExpectations(t *testing.T, stdout string, scenario *testutil.Scenario) {
	t.Helper()
	exp := scenario.Expect

	if exp.StdoutText != nil && stdout != *exp.StdoutText {
		t.Errorf("stdout text:\n  got:  %q\n  want: %q", stdout, *exp.StdoutText)
	}
	if exp.StdoutContains != "" && !strings.Contains(stdout, exp.StdoutContains) {
		t.Errorf("stdout should contain '%s', got: %s", exp.StdoutContains, stdout)
	}
	if exp.StdoutJSON != nil {
		expected := normalizeJSON(t, exp.StdoutJSON)
		actual := normalizeJSON(t, json.RawMessage(stdout))
		if expected != actual {
			t.Errorf("stdout JSON:\n  got:  %s\n  want: %s", actual, expected)
		}
	}
	if exp.StdoutJSONSubset != nil {
		var expected, actual any
		if err := json.Unmarshal(exp.StdoutJSONSubset, &expected); err != nil {
			t.Fatalf("failed to parse expected stdout JSON subset: %v", err)
		}
		if err := json.Unmarshal([]byte(stdout), &actual); err != nil {
			t.Fatalf("stdout is not JSON: %v (%s)", err, stdout)
		}
		if !isSubset(expected, actual) {
			t.Errorf("stdout JSON subset not found:\n  want: %s\n  got:  %s", exp.StdoutJSONSubset, stdout)
		}
	}
}

func checkStderrExpectations(t *testing.T, stderr string, scenario *testutil.Scenario) {
	t.Helper()
	exp := scenario.Expect

	if exp.StderrText != nil && stderr != *exp.StderrText {
		t.Errorf("stderr text:\n  got:  %q\n  want: %q", stderr, *exp.StderrText)
	}
	if exp.StderrContains != "" && !strings.Contains(stderr, exp.StderrContains) {
		t.Errorf("stderr should contain '%s', got: %s", exp.StderrContains, stderr)
	}

	if exp.StderrJSONSubset != nil {
		var expectedSubset []map[string]any
		if err := json.Unmarshal(exp.StderrJSONSubset, &expectedSubset); err != nil {
			t.Fatalf("failed to parse expected stderr JSON subset: %v", err)
		}
		var actualDiags []map[string]any
		if err := json.Unmarshal([]byte(stderr), &actualDiags); err != nil {
			t.Fatalf("stderr is not a JSON diagnostic list: %v (%s)", err, stderr)
		}

		for _, expected := range expectedSubset {
			found := false
			for _, actual := range actualDiags {
				if isSubset(expected, actual) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("stderr JSON subset not found: %v\n  got: %s", expected, stderr)
			}
		}
	}
}

func normalizeJSON(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("failed to parse JSON: %v (raw: %s)", err, string(raw))
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to re-marshal JSON: %v", err)
	}
	return string(b)
}

// isSubset checks if expected is a subset of actual (for JSON comparison).
func isSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists || !isSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok || len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !isSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case nil:
		return actual == nil

	default:
		return expected == actual
	}
}

func TestScenariosExist(t *testing.T) {
	for _, name := range []string{"eval-nested", "eval-swapped", "eval-shadowing", "eval-div-zero", "check-pass"} {
		if _, err := testutil.LoadScenario(filepath.Join(testutil.ScenariosDir, name)); err != nil {
			t.Errorf("scenario %s: %v", name, err)
		}
	}
}
