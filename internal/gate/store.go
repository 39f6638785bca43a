package gate

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kingrea/gatesearch/internal/algorithm"
)

const schema = `
CREATE TABLE IF NOT EXISTS gate_results (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT    NOT NULL,
	label            TEXT    NOT NULL,
	gate             TEXT    NOT NULL,
	found            INTEGER NOT NULL,
	accuracy         REAL,
	best_performance REAL,
	correlation      REAL,
	control_voltages TEXT,
	created_at       TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gate_results_session ON gate_results(session_id);`

const insertStmt = `
INSERT INTO gate_results (
	session_id, label, gate, found,
	accuracy, best_performance, correlation,
	control_voltages, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Row is one persisted label evaluation. Metrics that did not apply are NaN.
type Row struct {
	SessionID       string
	Label           string
	Gate            string
	Found           bool
	Accuracy        float64
	BestPerformance float64
	Correlation     float64
	ControlVoltages []float64
	CreatedAt       time.Time
}

// Store persists gate sweep results in sqlite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("gate: ensure db dir: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("gate: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("gate: init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewSessionID returns a fresh identifier grouping the rows of one sweep.
func (s *Store) NewSessionID() string {
	return uuid.NewString()
}

// Record inserts the outcome of one label evaluation.
func (s *Store) Record(ctx context.Context, sessionID string, results *algorithm.Results) error {
	cv, err := json.Marshal(results.ControlVoltages)
	if err != nil {
		return fmt.Errorf("gate: encode control voltages: %w", err)
	}
	_, err = s.db.ExecContext(ctx, insertStmt,
		sessionID,
		LabelString(results.Label),
		GateName(results.Label),
		results.Found,
		nullable(results.Accuracy),
		nullable(results.BestPerformance),
		nullable(results.Correlation),
		string(cv),
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("gate: insert %s: %w", LabelString(results.Label), err)
	}
	return nil
}

// Rows returns the rows of a session in insertion order.
func (s *Store) Rows(ctx context.Context, sessionID string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT session_id, label, gate, found, accuracy, best_performance, correlation, control_voltages, created_at
FROM gate_results WHERE session_id = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("gate: query session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			row                    Row
			accuracy, perf, corr   sql.NullFloat64
			controlVoltages, stamp string
		)
		if err := rows.Scan(&row.SessionID, &row.Label, &row.Gate, &row.Found, &accuracy, &perf, &corr, &controlVoltages, &stamp); err != nil {
			return nil, fmt.Errorf("gate: scan row: %w", err)
		}
		row.Accuracy = fromNullable(accuracy)
		row.BestPerformance = fromNullable(perf)
		row.Correlation = fromNullable(corr)
		if err := json.Unmarshal([]byte(controlVoltages), &row.ControlVoltages); err != nil {
			return nil, fmt.Errorf("gate: decode control voltages: %w", err)
		}
		if row.CreatedAt, err = time.Parse(time.RFC3339, stamp); err != nil {
			return nil, fmt.Errorf("gate: parse created_at: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
