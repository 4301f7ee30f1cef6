package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/qflow/internal/testutil"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a 2-bit run whose shots alternate 00 and 11.
func createTestRun(id string, shots int, clock *testutil.DeterministicClock) Run {
	r := Run{
		ID:          id,
		CircuitID:   "circuit-" + id,
		CircuitName: "bell",
		Qubits:      2,
		Cbits:       2,
		Seed:        42,
		Workers:     1,
		Source:      "name: bell\n",
		Format:      "yaml",
		Started:     clock.Now(),
		Duration:    3 * time.Millisecond,
	}
	for i := range shots {
		b := byte(i % 2)
		r.Shots = append(r.Shots, []byte{b, b})
	}
	return r
}

func runID(i int) string { return fmt.Sprintf("run-%03d", i) }
