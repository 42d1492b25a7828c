// Package file stores each key as a JSON file inside one directory.
//
// Writes go to a temp file that is synced and renamed over the target, so a
// reader never sees a partial blob. Read-modify-write cycles are serialized
// inside one process; deployments with several writer processes sharing a
// directory should use the sqlite backend instead.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"ledger/internal/store"
)

const (
	ext       = ".json"
	tmpPrefix = ".tmp-"
)

var errBadKey = errors.New("invalid key")

type KV struct {
	dir string
	mu  sync.Mutex
}

var _ store.KV = (*KV)(nil)

// New opens dir, creating it if needed.
func New(dir string) (*KV, error) {
	if dir == "" {
		return nil, errors.New("file store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return &KV{dir: dir}, nil
}

// NewStore returns a RecordStore persisting under dir.
func NewStore(dir string, opts store.Options) (*store.BlobStore, error) {
	kv, err := New(dir)
	if err != nil {
		return nil, err
	}
	return store.New(kv, opts), nil
}

// Dir returns the directory backing kv.
func (kv *KV) Dir() string { return kv.dir }

func (kv *KV) View(ctx context.Context, fn func(tx store.KVTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&tx{kv: kv})
}

func (kv *KV) Update(ctx context.Context, fn func(tx store.KVTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	t := &tx{kv: kv, staged: map[string][]byte{}, writable: true}
	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	// Sorted so that "<key>.corrupt" lands before "<key>" is overwritten.
	keys := make([]string, 0, len(t.staged))
	for k := range t.staged {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if err := kv.writeAtomic(k, t.staged[k]); err != nil {
			return err
		}
	}
	return nil
}

func (kv *KV) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	target, err := kv.path(key)
	if err != nil {
		return false, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	tmp, err := kv.writeTemp(value)
	if err != nil {
		return false, err
	}
	defer os.Remove(tmp)

	// link fails when target exists, even if another process created it.
	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("file store: link %s: %w", key, err)
	}
	syncDir(kv.dir)
	return true, nil
}

func (kv *KV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()

	entries, err := os.ReadDir(kv.dir)
	if err != nil {
		return 0, fmt.Errorf("file store: list %s: %w", kv.dir, err)
	}
	n := 0
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ext) {
			continue
		}
		key := strings.TrimSuffix(name, ext)
		if !strings.HasPrefix(key, prefix) || validKey(key) != nil {
			continue
		}
		if err := os.Remove(filepath.Join(kv.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return n, fmt.Errorf("file store: remove %s: %w", key, err)
		}
		n++
	}
	syncDir(kv.dir)
	return n, nil
}

func (kv *KV) Close() error { return nil }

func (kv *KV) path(key string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	return filepath.Join(kv.dir, key+ext), nil
}

func (kv *KV) read(key string) ([]byte, bool, error) {
	p, err := kv.path(key)
	if err != nil {
		return nil, false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("file store: read %s: %w", key, err)
	}
	return b, true, nil
}

func (kv *KV) writeAtomic(key string, value []byte) error {
	target, err := kv.path(key)
	if err != nil {
		return err
	}
	tmp, err := kv.writeTemp(value)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("file store: commit %s: %w", key, err)
	}
	syncDir(kv.dir)
	return nil
}

func (kv *KV) writeTemp(value []byte) (string, error) {
	f, err := os.CreateTemp(kv.dir, tmpPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("file store: create temp: %w", err)
	}
	name := f.Name()
	fail := func(err error) (string, error) {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("file store: write temp: %w", err)
	}
	if _, err := f.Write(value); err != nil {
		return fail(err)
	}
	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("file store: close temp: %w", err)
	}
	return name, nil
}

// validKey keeps keys inside dir and away from temp files.
func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", errBadKey, key)
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("%w: %q", errBadKey, key)
		}
	}
	return nil
}

func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	d.Close()
}

type tx struct {
	kv       *KV
	staged   map[string][]byte
	writable bool
}

func (t *tx) Get(key string) ([]byte, bool, error) {
	if v, ok := t.staged[key]; ok {
		out := make([]byte, len(v))
		copy(out, v)
		return out, true, nil
	}
	return t.kv.read(key)
}

func (t *tx) Put(key string, value []byte) error {
	if !t.writable {
		return errors.New("file store: write in read-only transaction")
	}
	if err := validKey(key); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.staged[key] = v
	return nil
}
