package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned for run IDs the store does not hold.
var ErrRunNotFound = errors.New("run not found")

// Bucket is one entry of a histogram: a register value and how many shots
// produced it.
type Bucket struct {
	Bits  string `json:"bits"`
	Count int    `json:"count"`
}

const runColumns = `id, seq, circuit_id, circuit_name, qubits, cbits, seed, shots, workers, source, format, started_at, duration_ns`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r        Run
		seed     int64
		started  int64
		duration int64
	)
	err := row.Scan(
		&r.ID, &r.Seq, &r.CircuitID, &r.CircuitName,
		&r.Qubits, &r.Cbits, &seed, &r.ShotCount, &r.Workers,
		&r.Source, &r.Format, &started, &duration,
	)
	if err != nil {
		return Run{}, err
	}
	r.Seed = uint64(seed)
	r.Started = time.Unix(0, started).UTC()
	r.Duration = time.Duration(duration)
	return r, nil
}

// ReadRun returns the run with the given ID, shots included in shot order.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT shot, bits FROM shots
		WHERE run_id = ?
		ORDER BY shot ASC
	`, id)
	if err != nil {
		return Run{}, fmt.Errorf("read shots %s: %w", id, err)
	}
	defer rows.Close()

	run.Shots = make([][]byte, 0, run.ShotCount)
	for rows.Next() {
		var (
			index int
			text  string
		)
		if err := rows.Scan(&index, &text); err != nil {
			return Run{}, fmt.Errorf("scan shot: %w", err)
		}
		if index != len(run.Shots) {
			return Run{}, fmt.Errorf("read run %s: shot %d missing", id, len(run.Shots))
		}
		bits, err := decodeBits(text)
		if err != nil {
			return Run{}, fmt.Errorf("read run %s: %w", id, err)
		}
		run.Shots = append(run.Shots, bits)
	}
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("iterate shots: %w", err)
	}
	if len(run.Shots) != run.ShotCount {
		return Run{}, fmt.Errorf("read run %s: %d shots stored, want %d", id, len(run.Shots), run.ShotCount)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first (by seq), without their
// shots. limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	return s.listRuns(ctx, `SELECT `+runColumns+` FROM runs ORDER BY seq DESC LIMIT ?`, limitArg(limit))
}

// ListRunsForCircuit is ListRuns restricted to one circuit ID.
func (s *Store) ListRunsForCircuit(ctx context.Context, circuitID string, limit int) ([]Run, error) {
	return s.listRuns(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE circuit_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, circuitID, limitArg(limit))
}

// limitArg maps "no limit" to SQLite's LIMIT -1.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}

func (s *Store) listRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Histogram counts the shots of a run by register value, ordered by value.
// Returns ErrRunNotFound for unknown runs and an empty slice for runs with
// no shots.
func (s *Store) Histogram(ctx context.Context, id string) ([]Bucket, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("histogram %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bits, COUNT(*) FROM shots
		WHERE run_id = ?
		GROUP BY bits
		ORDER BY bits COLLATE BINARY ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("histogram %s: %w", id, err)
	}
	defer rows.Close()

	buckets := []Bucket{}
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.Bits, &b.Count); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate buckets: %w", err)
	}
	return buckets, nil
}
