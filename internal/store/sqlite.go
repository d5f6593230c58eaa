package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Swabber-io/syscomp/internal/metrics"
	"github.com/Swabber-io/syscomp/internal/models"
	"github.com/Swabber-io/syscomp/internal/network"
	"github.com/Swabber-io/syscomp/internal/simulation"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore persists populations and runs in a single SQLite database.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*SQLiteStore, error) {
	if err := EnsureDir(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with single writer
	db.SetMaxOpenConns(1)

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveAgents replaces the stored population with records, in order.
func (s *SQLiteStore) SaveAgents(ctx context.Context, records []models.AgentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM agents`); err != nil {
		return fmt.Errorf("failed to clear agents: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO agents (seq, external_id, age_group, gender, sexual_preference,
			pairing_type, partner_count, location, pair_on_system, last_test_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare agent insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		var tested sql.NullString
		if !r.LastTestDate.IsZero() {
			tested = sql.NullString{String: r.LastTestDate.Format(time.DateOnly), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			i, r.ExternalID, string(r.AgeGroup), string(r.Gender), string(r.SexualPreference),
			string(r.PairingType), string(r.PartnerCount), r.Location, boolToInt(r.PairOnSystem),
			tested, string(r.Status)); err != nil {
			return fmt.Errorf("failed to insert agent %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// ListAgents returns the stored population in import order.
func (s *SQLiteStore) ListAgents(ctx context.Context) ([]models.AgentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT external_id, age_group, gender, sexual_preference, pairing_type,
			partner_count, location, pair_on_system, last_test_date, status
		FROM agents ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	defer rows.Close()

	var records []models.AgentRecord
	for rows.Next() {
		var r models.AgentRecord
		var extID, partnerCount, tested sql.NullString
		var ageGroup, gender, orientation, pairing, status string
		var pairOnSystem int
		if err := rows.Scan(&extID, &ageGroup, &gender, &orientation, &pairing,
			&partnerCount, &r.Location, &pairOnSystem, &tested, &status); err != nil {
			return nil, fmt.Errorf("failed to scan agent: %w", err)
		}
		r.ExternalID = extID.String
		r.AgeGroup = models.AgeGroup(ageGroup)
		r.Gender = models.Gender(gender)
		r.SexualPreference = models.SexualOrientation(orientation)
		r.PairingType = models.PairingType(pairing)
		r.PartnerCount = models.PartnerCount(partnerCount.String)
		r.PairOnSystem = pairOnSystem != 0
		r.Status = models.State(status)
		if tested.Valid {
			t, err := time.Parse(time.DateOnly, tested.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse last_test_date %q: %w", tested.String, err)
			}
			r.LastTestDate = t
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountAgents returns the size of the stored population.
func (s *SQLiteStore) CountAgents(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count agents: %w", err)
	}
	return n, nil
}

// BeginRun records a new run and returns a Recorder that persists its frames.
func (s *SQLiteStore) BeginRun(ctx context.Context, run Run) (*Recorder, error) {
	if run.ID == "" {
		return nil, fmt.Errorf("run ID is required")
	}
	if run.Started.IsZero() {
		run.Started = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, agents, config, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Seed, run.Agents, run.Config, run.Started.UTC().Format(timeLayout), string(RunRunning))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}
	return &Recorder{store: s, runID: run.ID}, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, seed, agents, config, started_at, finished_at, ticks, status
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns a run with its metrics history and final edge map. id may
// be a unique prefix of the run's UUID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullID, err := s.resolveRunID(ctx, id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, seed, agents, config, started_at, finished_at, ticks, status
		FROM runs WHERE id = ?`, fullID)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}

	detail := &RunDetail{Run: run}
	if detail.History, err = s.history(ctx, fullID); err != nil {
		return nil, err
	}
	if detail.Edges, err = s.edges(ctx, fullID); err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteRun removes a run and everything recorded for it.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fullID, err := s.resolveRunID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, fullID); err != nil {
		return fmt.Errorf("failed to delete run %s: %w", fullID, err)
	}
	return nil
}

func (s *SQLiteStore) resolveRunID(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	pattern := strings.NewReplacer("%", `\%`, "_", `\_`).Replace(id) + "%"
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run %s: %w", id, err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", err
		}
		if m == id {
			return m, nil
		}
		matches = append(matches, m)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("run %s: %w", id, ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("run prefix %s is ambiguous", id)
	}
}

func (s *SQLiteStore) history(ctx context.Context, runID string) ([]metrics.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tick, susceptible, infected, resistant, exposed, off,
			edges, edges_added, edges_removed, resistant_susceptible, infected_susceptible
		FROM tick_metrics WHERE run_id = ? ORDER BY tick`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	var out []metrics.Snapshot
	for rows.Next() {
		var snap metrics.Snapshot
		var rs, is sql.NullFloat64
		if err := rows.Scan(&snap.Tick,
			&snap.Counts.Susceptible, &snap.Counts.Infected, &snap.Counts.Resistant,
			&snap.Counts.Exposed, &snap.Counts.Off,
			&snap.Edges, &snap.EdgesAdded, &snap.EdgesRemoved, &rs, &is); err != nil {
			return nil, fmt.Errorf("failed to scan metrics: %w", err)
		}
		snap.ResistantSusceptible = ratioFromNull(rs)
		snap.InfectedSusceptible = ratioFromNull(is)
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) edges(ctx context.Context, runID string) ([]network.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a, b, created_at FROM active_edges WHERE run_id = ? ORDER BY a, b`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	var out []network.Edge
	for rows.Next() {
		var e network.Edge
		if err := rows.Scan(&e.A, &e.B, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var config, finished sql.NullString
	var started, status string
	if err := row.Scan(&r.ID, &r.Seed, &r.Agents, &config, &started, &finished, &r.Ticks, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run: %w", ErrNotFound)
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.Config = config.String
	r.Status = RunStatus(status)
	r.Started, _ = time.Parse(timeLayout, started)
	if finished.Valid {
		r.Finished, _ = time.Parse(timeLayout, finished.String)
	}
	return r, nil
}

// Recorder persists the frames of one run. It implements simulation.Sink.
type Recorder struct {
	store *SQLiteStore
	runID string
	last  []network.Edge
}

// RunID returns the run being recorded.
func (r *Recorder) RunID() string { return r.runID }

// WriteFrame stores the frame's metrics. Only the latest edge map is kept,
// and it is written by Finish.
func (r *Recorder) WriteFrame(ctx context.Context, f simulation.Frame) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	m := f.Metrics
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO tick_metrics (run_id, tick, susceptible, infected, resistant,
			exposed, off, edges, edges_added, edges_removed, resistant_susceptible, infected_susceptible)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, f.Tick,
		m.Counts.Susceptible, m.Counts.Infected, m.Counts.Resistant, m.Counts.Exposed, m.Counts.Off,
		m.Edges, m.EdgesAdded, m.EdgesRemoved,
		nullFromRatio(m.ResistantSusceptible), nullFromRatio(m.InfectedSusceptible))
	if err != nil {
		return fmt.Errorf("failed to record tick %d: %w", f.Tick, err)
	}
	r.last = f.Edges
	return nil
}

// Finish writes the final edge map and closes the run header. A non-nil
// runErr marks the run failed.
func (r *Recorder) Finish(ctx context.Context, res simulation.Result, runErr error) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM active_edges WHERE run_id = ?`, r.runID); err != nil {
		return fmt.Errorf("failed to clear edges: %w", err)
	}
	for _, e := range r.last {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO active_edges (run_id, a, b, created_at) VALUES (?, ?, ?, ?)`,
			r.runID, e.A, e.B, e.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert edge %v: %w", e.Pair, err)
		}
	}

	status := RunFinished
	if runErr != nil {
		status = RunFailed
	}
	finished := res.Finished
	if finished.IsZero() {
		finished = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, ticks = ?, status = ? WHERE id = ?`,
		finished.UTC().Format(timeLayout), res.Ticks, string(status), r.runID); err != nil {
		return fmt.Errorf("failed to close run: %w", err)
	}

	return tx.Commit()
}

func nullFromRatio(r metrics.Ratio) sql.NullFloat64 {
	if r.IsInf() || math.IsNaN(float64(r)) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: float64(r), Valid: true}
}

func ratioFromNull(v sql.NullFloat64) metrics.Ratio {
	if !v.Valid {
		return metrics.Ratio(math.Inf(1))
	}
	return metrics.Ratio(v.Float64)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
