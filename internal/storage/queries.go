package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithConn(conn DBTX) *Queries {
	return &Queries{db: conn}
}

const getValue = `SELECT value FROM kv WHERE key = ?`

func (q *Queries) GetValue(ctx context.Context, key string) ([]byte, error) {
	row := q.db.QueryRowContext(ctx, getValue, key)
	var value []byte
	err := row.Scan(&value)
	return value, err
}

const upsertValue = `INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertValue(ctx context.Context, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, upsertValue, key, value)
	return err
}

const insertValueIfAbsent = `INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO NOTHING`

func (q *Queries) InsertValueIfAbsent(ctx context.Context, key string, value []byte) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertValueIfAbsent, key, value)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// substr instead of LIKE: '_' in key prefixes is a LIKE wildcard.
const deleteByPrefix = `DELETE FROM kv WHERE substr(key, 1, length(?)) = ?`

func (q *Queries) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteByPrefix, prefix, prefix)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listKeys = `SELECT key FROM kv ORDER BY key`

func (q *Queries) ListKeys(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		items = append(items, key)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
