package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mverret/binance-ledger/internal/model"
)

// SQLiteStore persists records in a single sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the sqlite store at path and ensures
// the schema exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	// contention between the engine and queries.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}

	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetWatermark(ctx context.Context, element model.ElementType, partition string) (int64, bool, error) {
	var ts int64
	err := s.db.QueryRowContext(ctx, getWatermarkSQL, string(element), partition).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get watermark %s/%s: %w", element, partition, err)
	}
	return ts, true, nil
}

func (s *SQLiteStore) SetWatermark(ctx context.Context, element model.ElementType, partition string, ts int64) error {
	_, err := s.db.ExecContext(ctx, setWatermarkSQL, string(element), partition, ts, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set watermark %s/%s: %w", element, partition, err)
	}
	return nil
}

func (s *SQLiteStore) HasIdentity(ctx context.Context, element model.ElementType, identity string) (bool, error) {
	spec, err := specFor(element)
	if err != nil {
		return false, err
	}
	var one int
	err = s.db.QueryRowContext(ctx, hasIdentitySQL(spec), identity).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has identity %s: %w", element, err)
	}
	return true, nil
}

func (s *SQLiteStore) InsertBatch(ctx context.Context, records []model.Record) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertRecordsSQL(ctx, tx, records)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *SQLiteStore) CommitWindow(ctx context.Context, element model.ElementType, partition string, records []model.Record, watermark int64) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	inserted, err := insertRecordsSQL(ctx, tx, records)
	if err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, setWatermarkSQL, string(element), partition, watermark, time.Now().UnixMilli()); err != nil {
		return 0, fmt.Errorf("set watermark %s/%s: %w", element, partition, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit window %s/%s: %w", element, partition, err)
	}
	return inserted, nil
}

func (s *SQLiteStore) Query(ctx context.Context, element model.ElementType, partition string, start, end int64) ([]model.Record, error) {
	spec, err := specFor(element)
	if err != nil {
		return nil, err
	}
	q, args := querySQL(spec, partition, start, end)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", element, err)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		rec, err := scanRecord(element, rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", element, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", element, err)
	}
	return out, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// insertRecordsSQL writes records within tx, counting rows actually inserted.
// Duplicate identities hit ON CONFLICT DO NOTHING and affect zero rows.
func insertRecordsSQL(ctx context.Context, tx *sql.Tx, records []model.Record) (int, error) {
	stmts := make(map[string]*sql.Stmt)
	defer func() {
		for _, st := range stmts {
			st.Close()
		}
	}()

	inserted := 0
	for _, rec := range records {
		spec, err := specFor(rec.Element())
		if err != nil {
			return 0, err
		}
		q := insertSQL(spec)
		st, ok := stmts[q]
		if !ok {
			st, err = tx.PrepareContext(ctx, q)
			if err != nil {
				return 0, fmt.Errorf("prepare insert %s: %w", spec.table, err)
			}
			stmts[q] = st
		}

		args, err := insertValues(rec)
		if err != nil {
			return 0, err
		}
		res, err := st.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("insert %s %s: %w", rec.Element(), rec.Identity(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}
