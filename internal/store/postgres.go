package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mverret/binance-ledger/internal/config"
	"github.com/mverret/binance-ledger/internal/model"
)

// PostgresStore persists records in a Postgres database via a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// BuildConnString builds a PostgreSQL connection string from config.
func BuildConnString(cfg config.DBConfig) string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(cfg.Password)

	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		escapedPassword,
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}

// OpenPostgres connects to Postgres and ensures the schema exists.
func OpenPostgres(ctx context.Context, cfg config.DBConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(BuildConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetWatermark(ctx context.Context, element model.ElementType, partition string) (int64, bool, error) {
	var ts int64
	err := s.pool.QueryRow(ctx, rebind(getWatermarkSQL), string(element), partition).Scan(&ts)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get watermark %s/%s: %w", element, partition, err)
	}
	return ts, true, nil
}

func (s *PostgresStore) SetWatermark(ctx context.Context, element model.ElementType, partition string, ts int64) error {
	_, err := s.pool.Exec(ctx, rebind(setWatermarkSQL), string(element), partition, ts, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("set watermark %s/%s: %w", element, partition, err)
	}
	return nil
}

func (s *PostgresStore) HasIdentity(ctx context.Context, element model.ElementType, identity string) (bool, error) {
	spec, err := specFor(element)
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, rebind(hasIdentitySQL(spec)), identity).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has identity %s: %w", element, err)
	}
	return true, nil
}

func (s *PostgresStore) InsertBatch(ctx context.Context, records []model.Record) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertRecordsPgx(ctx, tx, records)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (s *PostgresStore) CommitWindow(ctx context.Context, element model.ElementType, partition string, records []model.Record, watermark int64) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := insertRecordsPgx(ctx, tx, records)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec(ctx, rebind(setWatermarkSQL), string(element), partition, watermark, time.Now().UnixMilli()); err != nil {
		return 0, fmt.Errorf("set watermark %s/%s: %w", element, partition, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit window %s/%s: %w", element, partition, err)
	}
	return inserted, nil
}

func (s *PostgresStore) Query(ctx context.Context, element model.ElementType, partition string, start, end int64) ([]model.Record, error) {
	spec, err := specFor(element)
	if err != nil {
		return nil, err
	}
	q, args := querySQL(spec, partition, start, end)

	rows, err := s.pool.Query(ctx, rebind(q), args...)
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

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// insertRecordsPgx queues all inserts in one pgx batch. Rows skipped by
// ON CONFLICT DO NOTHING report zero rows affected and are not counted.
func insertRecordsPgx(ctx context.Context, tx pgx.Tx, records []model.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		spec, err := specFor(rec.Element())
		if err != nil {
			return 0, err
		}
		args, err := insertValues(rec)
		if err != nil {
			return 0, err
		}
		batch.Queue(rebind(insertSQL(spec)), args...)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range records {
		ct, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("batch insert: %w", err)
		}
		inserted += int(ct.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("close batch: %w", err)
	}
	return inserted, nil
}
