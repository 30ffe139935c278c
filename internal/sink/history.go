// internal/sink/history.go
package sink

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/modbus-acquire/internal/published"
)

const createHistorySQL = `
CREATE TABLE IF NOT EXISTS samples (
    cycle INTEGER NOT NULL,
    ts    TEXT NOT NULL,
    kind  TEXT NOT NULL,
    key   TEXT NOT NULL,
    name  TEXT NOT NULL DEFAULT '',
    unit  TEXT NOT NULL DEFAULT '',
    raw   REAL,
    value REAL
);
CREATE INDEX IF NOT EXISTS samples_key_cycle ON samples (kind, key, cycle);`

// History appends every published value to a SQLite table.
type History struct {
	db *sql.DB
}

// OpenHistory opens (creating if needed) the history database at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sink history: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createHistorySQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink history: schema: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Name() string { return "history" }

// Consume writes one cycle in a single transaction.
func (h *History) Consume(ctx context.Context, snap *published.Snapshot) error {
	if snap == nil {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink history: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO samples (cycle, ts, kind, key, name, unit, raw, value) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sink history: prepare: %w", err)
	}
	defer stmt.Close()

	ts := stamp(snap.At)
	for _, s := range Samples(snap) {
		if _, err := stmt.ExecContext(ctx,
			int64(snap.Cycle), ts, string(s.Kind), s.Key, s.Name, s.Unit,
			nullable(s.Raw), nullable(s.Value),
		); err != nil {
			return fmt.Errorf("sink history: insert %s %s: %w", s.Kind, s.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sink history: commit: %w", err)
	}
	return nil
}

// Point is one stored value.
type Point struct {
	Cycle uint64
	TS    string
	Value float64 // NaN when stored as NULL
}

// Series returns the last limit values of one channel or math channel,
// oldest first.
func (h *History) Series(ctx context.Context, kind Kind, key string, limit int) ([]Point, error) {
	rows, err := h.db.QueryContext(ctx, `
SELECT cycle, ts, value FROM (
    SELECT rowid, cycle, ts, value FROM samples
    WHERE kind = ? AND key = ?
    ORDER BY rowid DESC LIMIT ?
) ORDER BY rowid`, string(kind), key, limit)
	if err != nil {
		return nil, fmt.Errorf("sink history: query: %w", err)
	}
	defer rows.Close()

	var out []Point
	for rows.Next() {
		var (
			p     Point
			cycle int64
			v     sql.NullFloat64
		)
		if err := rows.Scan(&cycle, &p.TS, &v); err != nil {
			return nil, fmt.Errorf("sink history: scan: %w", err)
		}
		p.Cycle = uint64(cycle)
		p.Value = math.NaN()
		if v.Valid {
			p.Value = v.Float64
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (h *History) Close() error {
	return h.db.Close()
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
