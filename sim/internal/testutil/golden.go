// Package testutil provides shared test infrastructure for the ntm-sim engine.
// It holds the golden scenario types and loaders used by the sim/ and
// sim/machine/ test packages. It has no dependency on sim/ so that in-package
// sim tests can import it.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// GoldenScenarios represents the structure of testdata/goldenscenarios.json.
type GoldenScenarios struct {
	Scenarios []GoldenScenario `json:"scenarios"`
}

// GoldenScenario is one machine, one input and the expected outcome.
type GoldenScenario struct {
	Name        string   `json:"name"`
	Transitions []string `json:"transitions"` // "from read write move to", as in the text format
	Accepting   []int    `json:"accepting"`
	Limit       int64    `json:"limit"`
	Input       string   `json:"input"`
	Verdict     string   `json:"verdict"` // ACCEPT, REJECT or UNDEFINED
	Rounds      int64    `json:"rounds"`
}

// Description renders the scenario in the text description format, with the
// scenario input as the only input line.
func (g GoldenScenario) Description() string {
	var sb strings.Builder
	sb.WriteString("tr\n")
	for _, tr := range g.Transitions {
		sb.WriteString(tr + "\n")
	}
	sb.WriteString("acc\n")
	for _, s := range g.Accepting {
		sb.WriteString(strconv.Itoa(s) + "\n")
	}
	sb.WriteString("max\n" + strconv.FormatInt(g.Limit, 10) + "\nrun\n" + g.Input + "\n")
	return sb.String()
}

// LoadGoldenScenarios loads the golden scenarios from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenScenarios(t *testing.T) *GoldenScenarios {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldenscenarios.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden scenarios: %v", err)
	}

	var scenarios GoldenScenarios
	if err := json.Unmarshal(data, &scenarios); err != nil {
		t.Fatalf("Failed to parse golden scenarios: %v", err)
	}
	if len(scenarios.Scenarios) == 0 {
		t.Fatal("golden scenarios file is empty")
	}

	return &scenarios
}
