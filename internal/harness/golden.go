package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qflow/internal/store"
)

// Snapshot is the golden-file form of a scenario result. It holds only
// values fixed by the scenario and the simulator, never run IDs or times.
type Snapshot struct {
	Scenario  string         `json:"scenario"`
	Seed      uint64         `json:"seed"`
	Shots     int            `json:"shots"`
	Histogram []store.Bucket `json:"histogram"`
}

// NewSnapshot builds the snapshot of result for scenario.
func NewSnapshot(scenario *Scenario, result *Result) Snapshot {
	return Snapshot{
		Scenario:  scenario.Name,
		Seed:      scenario.Seed,
		Shots:     scenario.Shots,
		Histogram: result.Histogram,
	}
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
// Equal snapshots always marshal to equal bytes.
func (s Snapshot) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario, fails the test on any assertion
// failure, and compares the histogram against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return err
	}
	for _, e := range result.Errors {
		t.Error(e)
	}

	data, err := NewSnapshot(scenario, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return nil
}
