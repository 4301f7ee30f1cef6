package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/qflow/internal/sim"
)

// ErrRunConflict is returned when a run ID is saved again with different
// content.
var ErrRunConflict = errors.New("run ID already stored with different content")

// Run is one persisted simulation run.
type Run struct {
	ID          string
	Seq         int64 // assigned by SaveRun
	CircuitID   string
	CircuitName string
	Qubits      int
	Cbits       int
	Seed        uint64
	ShotCount   int
	Workers     int
	Source      string // circuit file contents, used by replay
	Format      string // loader format of Source ("yaml", "cue")
	Started     time.Time
	Duration    time.Duration

	// Shots holds one register per shot. ReadRun fills it; ListRuns
	// leaves it nil.
	Shots [][]byte
}

// NewRun describes a simulator result for storage. source and format are
// the circuit file the run was loaded from and may be empty.
func NewRun(r *sim.Result, circuitID string, workers int, source []byte, format string) Run {
	return Run{
		ID:          r.RunID,
		CircuitID:   circuitID,
		CircuitName: r.Circuit,
		Qubits:      r.Qubits,
		Cbits:       r.Cbits,
		Seed:        r.Seed,
		ShotCount:   len(r.Shots),
		Workers:     workers,
		Source:      string(source),
		Format:      format,
		Started:     r.Started,
		Duration:    r.Duration,
		Shots:       r.Shots,
	}
}

// SaveRun inserts run and its shots in one transaction and returns the
// assigned seq. ShotCount is taken from len(run.Shots).
//
// Saving an ID that already exists with the same circuit ID, seed and
// shots is a no-op that returns the stored seq, so retries are idempotent.
// Different content under an existing ID fails with ErrRunConflict.
func (s *Store) SaveRun(ctx context.Context, run Run) (int64, error) {
	for i, shot := range run.Shots {
		if len(shot) != run.Cbits {
			return 0, fmt.Errorf("save run %s: shot %d has %d bits, want %d", run.ID, i, len(shot), run.Cbits)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save run: begin: %w", err)
	}
	defer tx.Rollback()

	var (
		existing  int64
		circuitID string
		seed      int64
		shots     int
	)
	err = tx.QueryRowContext(ctx, `SELECT seq, circuit_id, seed, shots FROM runs WHERE id = ?`, run.ID).
		Scan(&existing, &circuitID, &seed, &shots)
	switch {
	case err == nil:
		if circuitID != run.CircuitID || uint64(seed) != run.Seed || shots != len(run.Shots) {
			return 0, fmt.Errorf("save run %s: %w", run.ID, ErrRunConflict)
		}
		if err := matchShots(ctx, tx, run); err != nil {
			return 0, err
		}
		return existing, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM runs`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("save run %s: next seq: %w", run.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, circuit_id, circuit_name, qubits, cbits, seed, shots, workers, source, format, started_at, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		seq,
		run.CircuitID,
		run.CircuitName,
		run.Qubits,
		run.Cbits,
		int64(run.Seed), // SQLite integers are signed; the bit pattern round-trips
		len(run.Shots),
		max(run.Workers, 1),
		run.Source,
		run.Format,
		run.Started.UnixNano(),
		int64(run.Duration),
	)
	if err != nil {
		return 0, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO shots (run_id, shot, bits) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("save run %s: prepare shots: %w", run.ID, err)
	}
	defer stmt.Close()

	for i, shot := range run.Shots {
		bits, err := encodeBits(shot)
		if err != nil {
			return 0, fmt.Errorf("save run %s: shot %d: %w", run.ID, i, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, bits); err != nil {
			return 0, fmt.Errorf("save run %s: shot %d: %w", run.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save run %s: commit: %w", run.ID, err)
	}

	slog.Debug("run saved", "run", run.ID, "seq", seq, "circuit", run.CircuitName, "shots", len(run.Shots))
	return seq, nil
}

// matchShots reports ErrRunConflict unless the stored shots of run.ID
// equal run.Shots.
func matchShots(ctx context.Context, tx *sql.Tx, run Run) error {
	rows, err := tx.QueryContext(ctx, `SELECT bits FROM shots WHERE run_id = ? ORDER BY shot ASC`, run.ID)
	if err != nil {
		return fmt.Errorf("save run %s: read shots: %w", run.ID, err)
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		var bits string
		if err := rows.Scan(&bits); err != nil {
			return fmt.Errorf("save run %s: read shots: %w", run.ID, err)
		}
		if i >= len(run.Shots) {
			return fmt.Errorf("save run %s: %w", run.ID, ErrRunConflict)
		}
		want, err := encodeBits(run.Shots[i])
		if err != nil || want != bits {
			return fmt.Errorf("save run %s: shot %d: %w", run.ID, i, ErrRunConflict)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("save run %s: read shots: %w", run.ID, err)
	}
	if i != len(run.Shots) {
		return fmt.Errorf("save run %s: %w", run.ID, ErrRunConflict)
	}
	return nil
}

// DeleteRun removes a run and its shots. Deleting an unknown ID returns
// ErrRunNotFound.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}
