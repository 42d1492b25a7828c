package memory

import (
	"context"
	"strings"
	"sync"

	"ledger/internal/store"
)

// KV keeps blobs in a map. It is the default for tests and throwaway runs.
type KV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ store.KV = (*KV)(nil)

func New() *KV {
	return &KV{data: make(map[string][]byte)}
}

// NewStore returns a RecordStore backed by a fresh in-memory KV.
func NewStore(opts store.Options) *store.BlobStore {
	return store.New(New(), opts)
}

func (kv *KV) View(ctx context.Context, fn func(tx store.KVTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return fn(&tx{kv: kv})
}

func (kv *KV) Update(ctx context.Context, fn func(tx store.KVTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	t := &tx{kv: kv, staged: map[string][]byte{}}
	if err := fn(t); err != nil {
		return err
	}
	for k, v := range t.staged {
		kv.data[k] = v
	}
	return nil
}

func (kv *KV) PutIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if _, ok := kv.data[key]; ok {
		return false, nil
	}
	kv.data[key] = clone(value)
	return true, nil
}

func (kv *KV) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	kv.mu.Lock()
	defer kv.mu.Unlock()
	n := 0
	for k := range kv.data {
		if strings.HasPrefix(k, prefix) {
			delete(kv.data, k)
			n++
		}
	}
	return n, nil
}

// Set writes a raw value, bypassing the store. Used to simulate foreign or
// damaged data.
func (kv *KV) Set(key string, value []byte) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[key] = clone(value)
}

// Raw returns the stored bytes for key.
func (kv *KV) Raw(key string) ([]byte, bool) {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	v, ok := kv.data[key]
	return clone(v), ok
}

func (kv *KV) Close() error {
	return nil
}

type tx struct {
	kv     *KV
	staged map[string][]byte
}

func (t *tx) Get(key string) ([]byte, bool, error) {
	if v, ok := t.staged[key]; ok {
		return clone(v), true, nil
	}
	v, ok := t.kv.data[key]
	return clone(v), ok, nil
}

func (t *tx) Put(key string, value []byte) error {
	if t.staged == nil {
		return errReadOnly
	}
	t.staged[key] = clone(value)
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
