package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	m "lasso.dev/pkg/lasso/internal/model"
)

const sheetSchema = `
CREATE TABLE IF NOT EXISTS adapters (
	run_id TEXT NOT NULL,
	cut TEXT NOT NULL,
	adapter_id INTEGER NOT NULL,
	class TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	members TEXT,
	PRIMARY KEY (run_id, cut, adapter_id)
);
CREATE TABLE IF NOT EXISTS sequences (
	run_id TEXT NOT NULL,
	cut TEXT NOT NULL,
	adapter_id INTEGER NOT NULL,
	sequence TEXT NOT NULL,
	instantiated INTEGER NOT NULL,
	passed INTEGER NOT NULL,
	error TEXT,
	PRIMARY KEY (run_id, cut, adapter_id, sequence)
);
CREATE TABLE IF NOT EXISTS observations (
	run_id TEXT NOT NULL,
	cut TEXT NOT NULL,
	adapter_id INTEGER NOT NULL,
	sequence TEXT NOT NULL,
	statement INTEGER NOT NULL,
	member TEXT,
	status TEXT NOT NULL,
	value TEXT,
	error TEXT,
	duration_ns INTEGER NOT NULL,
	PRIMARY KEY (run_id, cut, adapter_id, sequence, statement)
);
CREATE INDEX IF NOT EXISTS idx_observations_cell ON observations(sequence, statement);
`

// Cell is one observation row of a sheet.
type Cell struct {
	CUT       string
	AdapterID int
	Sequence  string
	Statement int
	Member    string
	Status    m.StatementStatus
	Value     string
}

// SheetWriter stores adapters, sequences and per-statement observations
// in a sqlite database.
type SheetWriter struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewSheetWriter opens (or creates) the sheet database at path.
func NewSheetWriter(path string) (*SheetWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sheet directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sheet database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sheetSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create sheet schema: %w", err)
	}

	return &SheetWriter{db: db, path: path}, nil
}

// Path returns the database file.
func (w *SheetWriter) Path() string { return w.path }

// Close closes the database.
func (w *SheetWriter) Close() error {
	return w.db.Close()
}

// WriteAdapters implements the arena cell writer.
func (w *SheetWriter) WriteAdapters(ctx context.Context, adapters []m.Report) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		for _, a := range adapters {
			if err := insertAdapter(ctx, tx, a); err != nil {
				return err
			}
		}

		return nil
	})
}

// WriteExecutedSequence implements the arena cell writer.
func (w *SheetWriter) WriteExecutedSequence(ctx context.Context, adapter m.Report, record m.SequenceRecord) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		return insertSequence(ctx, tx, adapter, record)
	})
}

// WriteObservations implements the arena cell writer. It rewrites the
// adapter with all of its sequences.
func (w *SheetWriter) WriteObservations(ctx context.Context, report m.Report) error {
	return w.tx(ctx, func(tx *sql.Tx) error {
		if err := insertAdapter(ctx, tx, report); err != nil {
			return err
		}

		for _, record := range report.Sequences {
			if err := insertSequence(ctx, tx, report, record); err != nil {
				return err
			}
		}

		return nil
	})
}

// Cells returns the observations of one statement of a sequence across all
// adapters of a run, ordered by CUT and adapter id.
func (w *SheetWriter) Cells(ctx context.Context, runID, sequence string, statement int) ([]Cell, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT cut, adapter_id, sequence, statement, member, status, value
		FROM observations
		WHERE run_id = ? AND sequence = ? AND statement = ?
		ORDER BY cut, adapter_id`, runID, sequence, statement)
	if err != nil {
		return nil, fmt.Errorf("query cells: %w", err)
	}
	defer rows.Close()

	var cells []Cell

	for rows.Next() {
		var (
			c      Cell
			member sql.NullString
			status string
			value  sql.NullString
		)

		if err := rows.Scan(&c.CUT, &c.AdapterID, &c.Sequence, &c.Statement, &member, &status, &value); err != nil {
			return nil, fmt.Errorf("scan cell: %w", err)
		}

		if err := c.Status.UnmarshalText([]byte(status)); err != nil {
			return nil, err
		}

		c.Member = member.String
		c.Value = value.String
		cells = append(cells, c)
	}

	return cells, rows.Err()
}

// Count returns the number of rows of a sheet table.
func (w *SheetWriter) Count(ctx context.Context, table string) (int, error) {
	switch table {
	case "adapters", "sequences", "observations":
	default:
		return 0, fmt.Errorf("unknown sheet table %q", table)
	}

	var n int
	if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return n, nil
}

func (w *SheetWriter) tx(ctx context.Context, fn func(*sql.Tx) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sheet transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Warn("sheet rollback failed", "path", w.path, "error", rbErr)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sheet transaction: %w", err)
	}

	return nil
}

func insertAdapter(ctx context.Context, tx *sql.Tx, a m.Report) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO adapters (run_id, cut, adapter_id, class, fingerprint, members)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.RunID, a.CUT, a.AdapterID, a.ClassName, a.Fingerprint, strings.Join(a.Members, "\n"))
	if err != nil {
		return fmt.Errorf("insert adapter %s#%d: %w", a.CUT, a.AdapterID, err)
	}

	return nil
}

func insertSequence(ctx context.Context, tx *sql.Tx, a m.Report, record m.SequenceRecord) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO sequences (run_id, cut, adapter_id, sequence, instantiated, passed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.CUT, a.AdapterID, record.Sequence, record.Instantiated, record.Passed, record.Error)
	if err != nil {
		return fmt.Errorf("insert sequence %s: %w", record.Sequence, err)
	}

	for _, o := range record.Observations {
		_, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO observations
				(run_id, cut, adapter_id, sequence, statement, member, status, value, error, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.RunID, a.CUT, a.AdapterID, record.Sequence, o.Statement, o.Member, o.Status.String(),
			o.Value, o.Error, o.Duration.Nanoseconds())
		if err != nil {
			return fmt.Errorf("insert observation %s[%d]: %w", record.Sequence, o.Statement, err)
		}
	}

	return nil
}
