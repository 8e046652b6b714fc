// Package sqlledger implements the durable vehicle ledger on database/sql.
// SQLite (modernc.org/sqlite) and PostgreSQL (lib/pq) share one schema whose
// CHECK constraints mirror the charge invariants, so a write the application
// failed to validate is still refused by the database.
package sqlledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/evslot/core/ledger"
	"github.com/kilianp07/evslot/core/model"
)

const columns = `id, plate, current_charge, total_charge, desired_percentage, start_time, status`

// Ledger persists vehicle records in a SQL database.
type Ledger struct {
	db *sql.DB
	d  dialect
}

var _ ledger.Ledger = (*Ledger)(nil)

// Open connects to the database, applies connection limits and ensures the
// schema exists.
func Open(ctx context.Context, driver string, cfg Config) (*Ledger, error) {
	d, err := lookupDialect(driver)
	if err != nil {
		return nil, err
	}
	cfg.SetDefaults(driver)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", driver, err)
	}
	if d.singleConn {
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s ledger: %w", driver, err)
	}
	return &Ledger{db: db, d: d}, nil
}

func (l *Ledger) q(query string) string { return l.d.rebind(query) }

func (l *Ledger) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return classify(tx.Commit())
}

func (l *Ledger) Upsert(ctx context.Context, p model.Params, start time.Time) (model.Record, error) {
	if err := p.Validate(); err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ledger.ErrConstraintViolation, err)
	}
	rec := model.Record{Params: p, StartTime: time.UnixMicro(start.UnixMicro()).UTC()}
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			l.q(`SELECT id, status FROM vehicles WHERE plate = ?`+l.d.forUpdate), p.Plate,
		).Scan(&rec.ID, &current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		status, err := model.Next(ctx, model.Status(current), model.EventPark)
		if err != nil {
			return err
		}
		rec.Status = status
		if rec.ID == 0 {
			return classify(tx.QueryRowContext(ctx,
				l.q(`INSERT INTO vehicles (plate, current_charge, total_charge, desired_percentage, start_time, status)
        VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
				p.Plate, p.CurrentCharge, p.TotalCharge, p.DesiredPercentage, rec.StartTime.UnixMicro(), string(status),
			).Scan(&rec.ID))
		}
		_, err = tx.ExecContext(ctx,
			l.q(`UPDATE vehicles SET current_charge = ?, total_charge = ?, desired_percentage = ?,
        start_time = ?, status = ? WHERE id = ?`),
			p.CurrentCharge, p.TotalCharge, p.DesiredPercentage, rec.StartTime.UnixMicro(), string(status), rec.ID)
		return classify(err)
	})
	if err != nil {
		return model.Record{}, fmt.Errorf("upsert %s: %w", p.Plate, err)
	}
	return rec, nil
}

func (l *Ledger) Get(ctx context.Context, plate string) (model.Record, error) {
	row := l.db.QueryRowContext(ctx, l.q(`SELECT `+columns+` FROM vehicles WHERE plate = ?`), plate)
	rec, err := scan(row)
	if err != nil {
		return model.Record{}, fmt.Errorf("get %s: %w", plate, classify(err))
	}
	return rec, nil
}

func (l *Ledger) UpdateChargeAndClock(ctx context.Context, plate string, charge int, start time.Time) error {
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			l.q(`UPDATE vehicles SET current_charge = ?, start_time = ? WHERE plate = ?`),
			charge, start.UnixMicro(), plate)
		if err != nil {
			return classify(err)
		}
		return requireRow(res)
	})
	if err != nil {
		return fmt.Errorf("update %s: %w", plate, err)
	}
	return nil
}

func (l *Ledger) SetRetired(ctx context.Context, plate string, finalCharge int) error {
	err := l.withTx(ctx, func(tx *sql.Tx) error {
		var current string
		err := tx.QueryRowContext(ctx,
			l.q(`SELECT status FROM vehicles WHERE plate = ?`+l.d.forUpdate), plate,
		).Scan(&current)
		if err != nil {
			return classify(err)
		}
		status, err := model.Next(ctx, model.Status(current), model.EventRetire)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			l.q(`UPDATE vehicles SET current_charge = ?, status = ? WHERE plate = ?`),
			finalCharge, string(status), plate)
		if err != nil {
			return classify(err)
		}
		return requireRow(res)
	})
	if err != nil {
		return fmt.Errorf("retire %s: %w", plate, err)
	}
	return nil
}

func (l *Ledger) List(ctx context.Context, f ledger.Filter) ([]model.Record, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	query := `SELECT ` + columns + ` FROM vehicles`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY ` + l.d.orderPlate
	rows, err := l.db.QueryContext(ctx, l.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error { return l.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (model.Record, error) {
	var (
		rec    model.Record
		start  int64
		status string
	)
	if err := s.Scan(&rec.ID, &rec.Plate, &rec.CurrentCharge, &rec.TotalCharge,
		&rec.DesiredPercentage, &start, &status); err != nil {
		return model.Record{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return model.Record{}, err
	}
	rec.Status = st
	rec.StartTime = time.UnixMicro(start).UTC()
	return rec, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
