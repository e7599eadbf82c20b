package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/propguard/backtest"
)

// SQLite stores runs in a single database file.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// SaveRun stores the run document and its equity curve in one
// transaction. Saving an existing run id replaces it.
func (j *SQLite) SaveRun(ctx context.Context, res *backtest.Result) error {
	doc, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", res.ID, err)
	}
	rec := recordOf(res, j.now())

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM equity WHERE run_id = ?`, rec.RunID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_runs
		(run_id, created, mode, passed, final_equity, first_breach, document)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Created, rec.Mode, rec.Passed, rec.FinalEquity, rec.FirstBreach, string(doc),
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO equity
		(run_id, idx, time, equity, daily_loss_pct, total_loss_pct)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range res.Equity {
		if _, err := stmt.ExecContext(ctx, rec.RunID, p.Index, p.TS.UTC(), p.Equity, p.DailyLossPct, p.TotalLossPct); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetRun loads the stored document for runID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (*backtest.Result, error) {
	var doc string
	err := j.db.QueryRowContext(ctx, `SELECT document FROM backtest_runs WHERE run_id = ?`, runID).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return nil, err
	}

	var res backtest.Result
	if err := json.Unmarshal([]byte(doc), &res); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &res, nil
}

// ListRuns returns every run header, oldest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]RunRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, created, mode, passed, final_equity, first_breach
		FROM backtest_runs
		ORDER BY created ASC, run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(
			&rec.RunID,
			&rec.Created,
			&rec.Mode,
			&rec.Passed,
			&rec.FinalEquity,
			&rec.FirstBreach,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns the stored curve of runID ordered by index.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, idx, time, equity, daily_loss_pct, total_loss_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Index, &e.Time, &e.Equity, &e.DailyLossPct, &e.TotalLossPct); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquityBetween returns stored points of every run with time in
// [start, end).
func (j *SQLite) ListEquityBetween(ctx context.Context, start, end time.Time) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, idx, time, equity, daily_loss_pct, total_loss_pct
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, run_id ASC, idx ASC`, start.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Index, &e.Time, &e.Equity, &e.DailyLossPct, &e.TotalLossPct); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
