package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zapcooking/backend/internal/kv"
)

type DBStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, dsn string) (*DBStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	dbStore := &DBStore{pool: pool}

	if err := dbStore.createTable(ctx); err != nil {
		return nil, err
	}

	return dbStore, nil
}

func (db *DBStore) createTable(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, "CREATE TABLE IF NOT EXISTS kv_entries( "+
		"key VARCHAR(255) PRIMARY KEY, "+
		"value BYTEA NOT NULL, "+
		"expires_at TIMESTAMPTZ "+
		");")
	return err
}

func expiresAt(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := time.Now().Add(ttl)
	return &t
}

func (db *DBStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := db.pool.QueryRow(ctx,
		"SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())", key)

	var value []byte
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}

	return value, nil
}

func (db *DBStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET
			value=EXCLUDED.value,
			expires_at=EXCLUDED.expires_at
	`, key, value, expiresAt(ttl))
	return err
}

func (db *DBStore) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	// expired rows count as absent, hence the conditional DO UPDATE
	tag, err := db.pool.Exec(ctx, `
		INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET
			value=EXCLUDED.value,
			expires_at=EXCLUDED.expires_at
		WHERE kv_entries.expires_at IS NOT NULL AND kv_entries.expires_at <= now()
	`, key, value, expiresAt(ttl))
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (db *DBStore) Update(ctx context.Context, key string, fn func(old []byte) ([]byte, error)) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		"SELECT value FROM kv_entries WHERE key = $1 AND (expires_at IS NULL OR expires_at > now()) FOR UPDATE", key)

	var old []byte
	if err := row.Scan(&old); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return kv.ErrNotFound
		}
		return err
	}

	updated, err := fn(old)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, "UPDATE kv_entries SET value = $2 WHERE key = $1", key, updated); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (db *DBStore) Delete(ctx context.Context, key string) error {
	_, err := db.pool.Exec(ctx, "DELETE FROM kv_entries WHERE key = $1", key)
	return err
}

func (db *DBStore) List(ctx context.Context, prefix string) ([][]byte, error) {
	rows, err := db.pool.Query(ctx,
		"SELECT value FROM kv_entries WHERE key LIKE $1 || '%' AND (expires_at IS NULL OR expires_at > now())", prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([][]byte, 0)
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		result = append(result, value)
	}

	return result, rows.Err()
}

func (db *DBStore) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DBStore) Close() error {
	db.pool.Close()
	return nil
}
