// internal/records/sqlite.go
package records

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "modernc.org/sqlite"

	"github.com/tamzrod/modbus-acquire/internal/codec"
	"github.com/tamzrod/modbus-acquire/internal/config"
)

const createRecordsSQL = `
CREATE TABLE IF NOT EXISTS channels (
    number       INTEGER PRIMARY KEY,
    address      INTEGER NOT NULL,
    data_type    TEXT NOT NULL,
    device_id    INTEGER NOT NULL,
    value        REAL,
    low          REAL NOT NULL,
    high         REAL NOT NULL,
    value_offset REAL NOT NULL DEFAULT 0,
    digits       INTEGER NOT NULL DEFAULT 0,
    red          INTEGER NOT NULL DEFAULT 0,
    green        INTEGER NOT NULL DEFAULT 0,
    blue         INTEGER NOT NULL DEFAULT 0,
    formula      TEXT NOT NULL DEFAULT 'x',
    unit         TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS math_channels (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT NOT NULL UNIQUE,
    formula TEXT NOT NULL,
    unit    TEXT NOT NULL DEFAULT '',
    digits  INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1
);`

// SQLiteStore keeps channel records in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("records sqlite: open %s: %w", path, err)
	}
	// one writer; avoids SQLITE_BUSY between poller reads and edits
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createRecordsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("records sqlite: schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) Load(ctx context.Context) (Set, error) {
	set, err := readSet(ctx, s.db)
	if err != nil {
		return Set{}, err
	}
	if err := checkEdit(set); err != nil {
		return Set{}, err
	}
	return finish(set), nil
}

func readSet(ctx context.Context, q queryer) (Set, error) {
	var set Set

	rows, err := q.QueryContext(ctx, `
SELECT number, address, data_type, device_id, value, low, high, value_offset,
       digits, red, green, blue, formula, unit, name
FROM channels ORDER BY number`)
	if err != nil {
		return Set{}, fmt.Errorf("records sqlite: %w", err)
	}
	for rows.Next() {
		var (
			ch    config.ChannelConfig
			dt    string
			value sql.NullFloat64
		)
		if err := rows.Scan(
			&ch.Number, &ch.Address, &dt, &ch.DeviceID, &value, &ch.Low, &ch.High, &ch.Offset,
			&ch.Digits, &ch.Color.R, &ch.Color.G, &ch.Color.B, &ch.Formula, &ch.Unit, &ch.Name,
		); err != nil {
			rows.Close()
			return Set{}, fmt.Errorf("records sqlite: scan channel: %w", err)
		}
		ch.DataType = codec.DataType(dt)
		ch.Value = math.NaN()
		if value.Valid {
			ch.Value = value.Float64
		}
		set.Channels = append(set.Channels, ch)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return Set{}, fmt.Errorf("records sqlite: %w", err)
	}
	rows.Close()

	rows, err = q.QueryContext(ctx, `SELECT name, formula, unit, digits, enabled FROM math_channels ORDER BY id`)
	if err != nil {
		return Set{}, fmt.Errorf("records sqlite: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m config.MathChannelConfig
		if err := rows.Scan(&m.Name, &m.Formula, &m.Unit, &m.Digits, &m.Enabled); err != nil {
			return Set{}, fmt.Errorf("records sqlite: scan math: %w", err)
		}
		set.Math = append(set.Math, m)
	}
	if err := rows.Err(); err != nil {
		return Set{}, fmt.Errorf("records sqlite: %w", err)
	}
	return set, nil
}

// edit validates the set as fn leaves it, then runs apply in the same
// transaction.
func (s *SQLiteStore) edit(ctx context.Context, fn func(Set) (Set, error), apply func(*sql.Tx) (sql.Result, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records sqlite: %w", err)
	}
	defer tx.Rollback()

	set, err := readSet(ctx, tx)
	if err != nil {
		return err
	}
	next, err := fn(set)
	if err != nil {
		return err
	}
	if err := checkEdit(next); err != nil {
		return err
	}
	if _, err := apply(tx); err != nil {
		return fmt.Errorf("records sqlite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("records sqlite: commit: %w", err)
	}
	return nil
}

func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func (s *SQLiteStore) PutChannel(ctx context.Context, ch config.ChannelConfig) error {
	return s.edit(ctx,
		func(set Set) (Set, error) { return putChannel(set, ch), nil },
		func(tx *sql.Tx) (sql.Result, error) {
			return tx.ExecContext(ctx, `
INSERT OR REPLACE INTO channels(number, address, data_type, device_id, value, low, high,
    value_offset, digits, red, green, blue, formula, unit, name)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				ch.Number, ch.Address, string(ch.DataType), ch.DeviceID, nullable(ch.Value), ch.Low, ch.High,
				ch.Offset, ch.Digits, ch.Color.R, ch.Color.G, ch.Color.B, ch.Formula, ch.Unit, ch.Name,
			)
		},
	)
}

func (s *SQLiteStore) DeleteChannel(ctx context.Context, number int) error {
	return s.edit(ctx,
		func(set Set) (Set, error) { return deleteChannel(set, number) },
		func(tx *sql.Tx) (sql.Result, error) {
			return tx.ExecContext(ctx, `DELETE FROM channels WHERE number = ?`, number)
		},
	)
}

func (s *SQLiteStore) PutMath(ctx context.Context, m config.MathChannelConfig) error {
	return s.edit(ctx,
		func(set Set) (Set, error) { return putMath(set, m), nil },
		func(tx *sql.Tx) (sql.Result, error) {
			return tx.ExecContext(ctx, `
INSERT INTO math_channels(name, formula, unit, digits, enabled) VALUES(?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET formula = excluded.formula, unit = excluded.unit,
    digits = excluded.digits, enabled = excluded.enabled`,
				m.Name, m.Formula, m.Unit, m.Digits, m.Enabled,
			)
		},
	)
}

func (s *SQLiteStore) DeleteMath(ctx context.Context, name string) error {
	return s.edit(ctx,
		func(set Set) (Set, error) { return deleteMath(set, name) },
		func(tx *sql.Tx) (sql.Result, error) {
			return tx.ExecContext(ctx, `DELETE FROM math_channels WHERE name = ?`, name)
		},
	)
}

// UpdateValues stores the last published value of each channel.
func (s *SQLiteStore) UpdateValues(ctx context.Context, values map[int]float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("records sqlite: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE channels SET value = ? WHERE number = ?`)
	if err != nil {
		return fmt.Errorf("records sqlite: %w", err)
	}
	defer stmt.Close()

	for n, v := range values {
		if _, err := stmt.ExecContext(ctx, nullable(v), n); err != nil {
			return fmt.Errorf("records sqlite: update channel %d: %w", n, err)
		}
	}
	return tx.Commit()
}
