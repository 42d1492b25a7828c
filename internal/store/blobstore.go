package store

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"ledger/internal/core"
	"ledger/internal/log"
)

// maxIDAttempts bounds retries when the generator returns an id in use.
const maxIDAttempts = 16

// Options configures a BlobStore. Zero values pick defaults.
type Options struct {
	IDs    core.IDGenerator
	Logger *log.Logger
	// Key overrides the storage key, mostly for tests.
	Key string
}

// BlobStore implements RecordStore on top of any KV by keeping the whole
// collection as one encoded blob under a single key.
type BlobStore struct {
	kv      KV
	ids     core.IDGenerator
	logger  *log.Logger
	key     string
	seeding singleflight.Group
}

var _ RecordStore = (*BlobStore)(nil)

// New wraps kv into a RecordStore.
func New(kv KV, opts Options) *BlobStore {
	if opts.IDs == nil {
		opts.IDs = core.RandomIDGenerator{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Key == "" {
		opts.Key = Key
	}
	return &BlobStore{
		kv:     kv,
		ids:    opts.IDs,
		logger: opts.Logger.WithComponent(log.ComponentStore),
		key:    opts.Key,
	}
}

// GetAll implements RecordStore.
func (s *BlobStore) GetAll(ctx context.Context) ([]core.Bill, error) {
	var bills []core.Bill
	err := s.kv.View(ctx, func(tx KVTx) error {
		raw, ok, err := tx.Get(s.key)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		bills = s.decode(ctx, raw)
		return nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger read failed, treating as empty",
			log.FieldKey, s.key,
			log.FieldError, err,
			"error_type", log.ErrorTypeStorage)
		return []core.Bill{}, nil
	}
	if bills == nil {
		bills = []core.Bill{}
	}
	return bills, nil
}

// Add implements RecordStore.
func (s *BlobStore) Add(ctx context.Context, b core.Bill) (core.Bill, error) {
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	var stored core.Bill
	err := s.mutate(ctx, "add", func(bills []core.Bill) ([]core.Bill, bool, error) {
		id, err := s.nextID(bills)
		if err != nil {
			return nil, false, err
		}
		stored = b
		stored.ID = id
		return append(bills, stored), true, nil
	})
	if err != nil {
		return core.Bill{}, err
	}
	s.logger.InfoContext(ctx, "Bill added",
		log.NewFields().WithBill(stored.ID, stored.Type.String(), stored.Amount.Cents, stored.Category).WithOperation(log.OpCreate).ToSlice()...)
	return stored, nil
}

// Update implements RecordStore. found is decided inside the same
// read-modify-write cycle as the replacement.
func (s *BlobStore) Update(ctx context.Context, b core.Bill) (bool, error) {
	if err := b.ValidateStored(); err != nil {
		return false, err
	}
	found := false
	err := s.mutate(ctx, "update", func(bills []core.Bill) ([]core.Bill, bool, error) {
		for i := range bills {
			if bills[i].ID == b.ID {
				bills[i] = b
				found = true
				return bills, true, nil
			}
		}
		return bills, false, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		s.logger.DebugContext(ctx, "Update of unknown bill ignored", log.FieldBillID, b.ID)
		return false, nil
	}
	s.logger.InfoContext(ctx, "Bill updated",
		log.NewFields().WithBill(b.ID, b.Type.String(), b.Amount.Cents, b.Category).WithOperation(log.OpUpdate).ToSlice()...)
	return true, nil
}

// Delete implements RecordStore.
func (s *BlobStore) Delete(ctx context.Context, id int64) (bool, error) {
	found := false
	err := s.mutate(ctx, "delete", func(bills []core.Bill) ([]core.Bill, bool, error) {
		for i := range bills {
			if bills[i].ID == id {
				found = true
				return append(bills[:i:i], bills[i+1:]...), true, nil
			}
		}
		return bills, false, nil
	})
	if err != nil {
		return false, err
	}
	if !found {
		s.logger.DebugContext(ctx, "Delete of unknown bill ignored", log.FieldBillID, id)
		return false, nil
	}
	s.logger.InfoContext(ctx, "Bill deleted", log.FieldBillID, id, log.FieldOperation, log.OpDelete)
	return true, nil
}

// SeedIfEmpty implements RecordStore. Concurrent callers in this process share
// one attempt; across processes the backend's PutIfAbsent decides the winner.
func (s *BlobStore) SeedIfEmpty(ctx context.Context, seed func() []core.Bill) (bool, error) {
	v, err, _ := s.seeding.Do(s.key, func() (any, error) {
		return s.seedOnce(ctx, seed)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *BlobStore) seedOnce(ctx context.Context, seed func() []core.Bill) (bool, error) {
	var exists bool
	err := s.kv.View(ctx, func(tx KVTx) error {
		_, ok, err := tx.Get(s.key)
		exists = ok
		return err
	})
	if err != nil {
		return false, &WriteError{Op: "seed", Err: err}
	}
	if exists {
		return false, nil
	}

	bills := make([]core.Bill, 0)
	for _, b := range seed() {
		if err := b.Validate(); err != nil {
			return false, fmt.Errorf("seed bill: %w", err)
		}
		id, err := s.nextID(bills)
		if err != nil {
			return false, err
		}
		b.ID = id
		bills = append(bills, b)
	}
	raw, err := Encode(bills)
	if err != nil {
		return false, err
	}
	created, err := s.kv.PutIfAbsent(ctx, s.key, raw)
	if err != nil {
		return false, &WriteError{Op: "seed", Err: err}
	}
	if created {
		s.logger.InfoContext(ctx, "Seeded empty ledger", log.FieldCount, len(bills), log.FieldOperation, log.OpSeed)
	}
	return created, nil
}

// Reset implements RecordStore. It removes every schema version and any
// preserved corrupt blobs.
func (s *BlobStore) Reset(ctx context.Context) error {
	n, err := s.kv.DeletePrefix(ctx, KeyPrefix)
	if err != nil {
		return &WriteError{Op: "reset", Err: err}
	}
	s.logger.WarnContext(ctx, "Ledger reset", log.FieldCount, n, log.FieldOperation, log.OpReset)
	return nil
}

// Probe reads the storage key without decoding it. Unlike GetAll it reports
// backend failures, which makes it suitable for readiness checks.
func (s *BlobStore) Probe(ctx context.Context) error {
	return s.kv.View(ctx, func(tx KVTx) error {
		_, _, err := tx.Get(s.key)
		return err
	})
}

// Close releases the underlying KV.
func (s *BlobStore) Close() error {
	return s.kv.Close()
}

// mutate runs one read-modify-write cycle. fn reports whether the collection
// changed; nothing is written when it did not.
func (s *BlobStore) mutate(ctx context.Context, op string, fn func([]core.Bill) ([]core.Bill, bool, error)) error {
	var fnErr error
	err := s.kv.Update(ctx, func(tx KVTx) error {
		raw, ok, err := tx.Get(s.key)
		if err != nil {
			return err
		}
		var bills []core.Bill
		corrupt := false
		if ok {
			decoded, derr := Decode(raw)
			if derr != nil {
				s.logger.WarnContext(ctx, "Corrupt ledger data, starting from empty",
					log.FieldKey, s.key, log.FieldError, derr, "error_type", log.ErrorTypeCorruptData)
				corrupt = true
			} else {
				bills = decoded
			}
		}

		next, changed, err := fn(bills)
		if err != nil {
			fnErr = err
			return err
		}
		if !changed {
			return nil
		}
		if corrupt {
			side, err := s.freeCorruptKey(tx)
			if err != nil {
				return err
			}
			if err := tx.Put(side, raw); err != nil {
				return fmt.Errorf("preserve corrupt blob: %w", err)
			}
			s.logger.WarnContext(ctx, "Preserved corrupt ledger data", log.FieldKey, side)
		}
		encoded, err := Encode(next)
		if err != nil {
			fnErr = err
			return err
		}
		return tx.Put(s.key, encoded)
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	s.logger.ErrorContext(ctx, "Ledger write failed",
		log.FieldOperation, op, log.FieldError, err, "error_type", log.ErrorTypeStorage)
	return &WriteError{Op: op, Err: err}
}

// freeCorruptKey returns the first side key not holding an earlier blob.
func (s *BlobStore) freeCorruptKey(tx KVTx) (string, error) {
	for n := 1; n <= MaxCorruptCopies; n++ {
		key := CorruptKeyN(s.key, n)
		_, taken, err := tx.Get(key)
		if err != nil {
			return "", err
		}
		if !taken {
			return key, nil
		}
	}
	return "", ErrCorruptSpace
}

func (s *BlobStore) decode(ctx context.Context, raw []byte) []core.Bill {
	bills, err := Decode(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Corrupt ledger data, treating as empty",
			log.FieldKey, s.key, log.FieldError, err, "error_type", log.ErrorTypeCorruptData)
		return nil
	}
	return bills
}

func (s *BlobStore) nextID(bills []core.Bill) (int64, error) {
	used := make(map[int64]struct{}, len(bills))
	for _, b := range bills {
		used[b.ID] = struct{}{}
	}
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.ids.NextID()
		if err != nil {
			return 0, err
		}
		if _, taken := used[id]; !taken && id > 0 {
			return id, nil
		}
	}
	return 0, ErrIDSpace
}
