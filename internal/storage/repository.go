package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteKV implements store.KV over a single kv table. Read-modify-write
// cycles run inside BEGIN IMMEDIATE, so several processes can share one file.
type SQLiteKV struct {
	db      *sql.DB
	queries *Queries
	path    string
}

var _ store.KV = (*SQLiteKV)(nil)

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open creates the database directory, opens dbPath and applies migrations.
func Open(dbPath string) (*SQLiteKV, error) {
	if dbPath == "" {
		return nil, errors.New("empty sqlite path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteKV{db: db, queries: New(db), path: dbPath}, nil
}

// NewStore opens dbPath and wraps it into a RecordStore.
func NewStore(dbPath string, opts store.Options) (*store.BlobStore, error) {
	kv, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	return store.New(kv, opts), nil
}

func (r *SQLiteKV) Path() string { return r.path }

func (r *SQLiteKV) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteKV) View(ctx context.Context, fn func(tx store.KVTx) error) error {
	return fn(&kvTx{ctx: ctx, q: r.queries})
}

func (r *SQLiteKV) Update(ctx context.Context, fn func(tx store.KVTx) error) (err error) {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		// Rollback must run even if ctx was cancelled.
		if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil {
			slog.WarnContext(ctx, "SQLite rollback failed", "error", rbErr)
		}
	}()

	if err := fn(&kvTx{ctx: ctx, q: r.queries.WithConn(conn), writable: true}); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *SQLiteKV) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := r.queries.InsertValueIfAbsent(ctx, key, value)
	if err != nil {
		return false, fmt.Errorf("insert %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *SQLiteKV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	n, err := r.queries.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("delete prefix %s: %w", prefix, err)
	}
	return int(n), nil
}

// Keys lists every stored key.
func (r *SQLiteKV) Keys(ctx context.Context) ([]string, error) {
	keys, err := r.queries.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// Set writes a raw value outside any store logic.
func (r *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	return r.queries.UpsertValue(ctx, key, value)
}

type kvTx struct {
	ctx      context.Context
	q        *Queries
	writable bool
}

func (t *kvTx) Get(key string) ([]byte, bool, error) {
	v, err := t.q.GetValue(t.ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return v, true, nil
}

func (t *kvTx) Put(key string, value []byte) error {
	if !t.writable {
		return errors.New("write in read-only transaction")
	}
	if err := t.q.UpsertValue(t.ctx, key, value); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
