// Package storetest holds the behaviour every RecordStore backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/stats"
	"ledger/internal/store"
)

// Harness exposes a store plus raw access to the key space behind it.
type Harness struct {
	Store  store.RecordStore
	SetRaw func(t *testing.T, key string, value []byte)
	GetRaw func(t *testing.T, key string) ([]byte, bool)
	// Reopen returns a new store over the same persisted data. Nil for
	// backends without durable state.
	Reopen func(t *testing.T) store.RecordStore
}

// Factory builds a fresh, empty harness using ids for id allocation.
type Factory func(t *testing.T, ids core.IDGenerator) Harness

var t0 = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func sample(category string, cents int64, offset time.Duration) core.Bill {
	return core.Bill{
		Type:      core.Expense,
		Amount:    core.Cents(cents),
		Category:  category,
		Remark:    "r-" + category,
		Timestamp: t0.Add(offset).UnixMilli(),
	}
}

// Run executes the shared contract against factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()
	fresh := func(t *testing.T) Harness {
		h := factory(t, core.NewSequenceGenerator(0))
		t.Cleanup(func() { _ = h.Store.Close() })
		return h
	}

	t.Run("empty store returns empty slice", func(t *testing.T) {
		h := fresh(t)
		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		assert.NotNil(t, bills)
		assert.Empty(t, bills)
	})

	t.Run("add assigns unique ids", func(t *testing.T) {
		h := fresh(t)
		want := map[string]bool{}
		ids := map[int64]bool{}
		for i := 0; i < 25; i++ {
			in := sample("c", int64(100+i), time.Duration(i)*time.Minute)
			in.ID = 999
			in.Remark = string(rune('a' + i))
			got, err := h.Store.Add(ctx, in)
			require.NoError(t, err)
			assert.False(t, ids[got.ID], "id %d reused", got.ID)
			assert.NotEqual(t, int64(999), got.ID)
			ids[got.ID] = true
			want[in.Remark] = true
		}
		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, bills, 25)
		for _, b := range bills {
			assert.True(t, ids[b.ID])
			assert.True(t, want[b.Remark])
		}
	})

	t.Run("add keeps insertion order", func(t *testing.T) {
		h := fresh(t)
		late, err := h.Store.Add(ctx, sample("late", 1, time.Hour))
		require.NoError(t, err)
		early, err := h.Store.Add(ctx, sample("early", 1, -time.Hour))
		require.NoError(t, err)
		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, bills, 2)
		assert.Equal(t, late.ID, bills[0].ID)
		assert.Equal(t, early.ID, bills[1].ID)
	})

	t.Run("add retries on id collision", func(t *testing.T) {
		h := factory(t, &repeatingIDs{ids: []int64{7, 7, 7, 8}})
		t.Cleanup(func() { _ = h.Store.Close() })
		a, err := h.Store.Add(ctx, sample("a", 1, 0))
		require.NoError(t, err)
		b, err := h.Store.Add(ctx, sample("b", 1, 0))
		require.NoError(t, err)
		assert.Equal(t, int64(7), a.ID)
		assert.Equal(t, int64(8), b.ID)
	})

	t.Run("add rejects invalid bills", func(t *testing.T) {
		h := fresh(t)
		bad := sample("", 100, 0)
		_, err := h.Store.Add(ctx, bad)
		require.ErrorIs(t, err, core.ErrEmptyCategory)
		bills, _ := h.Store.GetAll(ctx)
		assert.Empty(t, bills)
		_, ok := h.GetRaw(t, store.Key)
		assert.False(t, ok, "failed add must not create the blob")
	})

	t.Run("update replaces only the target", func(t *testing.T) {
		h := fresh(t)
		var added []core.Bill
		for i, c := range []string{"a", "b", "c"} {
			b, err := h.Store.Add(ctx, sample(c, int64(i+1)*100, 0))
			require.NoError(t, err)
			added = append(added, b)
		}
		before, _ := h.Store.GetAll(ctx)

		changed := added[1]
		changed.Type = core.Income
		changed.Amount = core.Cents(4242)
		changed.Category = "奖金"
		changed.Remark = ""
		found, err := h.Store.Update(ctx, changed)
		require.NoError(t, err)
		assert.True(t, found)

		after, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, after, 3)
		assert.Equal(t, changed, after[1])
		for _, i := range []int{0, 2} {
			wantRaw, _ := store.Encode([]core.Bill{before[i]})
			gotRaw, _ := store.Encode([]core.Bill{after[i]})
			assert.Equal(t, string(wantRaw), string(gotRaw))
		}
	})

	t.Run("update of unknown id is a no-op", func(t *testing.T) {
		h := fresh(t)
		b, err := h.Store.Add(ctx, sample("a", 100, 0))
		require.NoError(t, err)
		rawBefore, _ := h.GetRaw(t, store.Key)

		ghost := b
		ghost.ID = b.ID + 1000
		found, err := h.Store.Update(ctx, ghost)
		require.NoError(t, err)
		assert.False(t, found)

		rawAfter, _ := h.GetRaw(t, store.Key)
		assert.Equal(t, string(rawBefore), string(rawAfter))
	})

	t.Run("update validates", func(t *testing.T) {
		h := fresh(t)
		b, err := h.Store.Add(ctx, sample("a", 100, 0))
		require.NoError(t, err)
		b.Amount = core.Cents(-5)
		_, err = h.Store.Update(ctx, b)
		require.ErrorIs(t, err, core.ErrInvalidAmount)
		b.ID = 0
		b.Amount = core.Cents(5)
		_, err = h.Store.Update(ctx, b)
		require.ErrorIs(t, err, core.ErrInvalidID)
	})

	t.Run("delete removes and unknown delete is a no-op", func(t *testing.T) {
		h := fresh(t)
		a, _ := h.Store.Add(ctx, sample("a", 100, 0))
		b, _ := h.Store.Add(ctx, sample("b", 200, 0))

		found, err := h.Store.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.True(t, found)
		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, bills, 1)
		assert.Equal(t, b.ID, bills[0].ID)

		rawBefore, _ := h.GetRaw(t, store.Key)
		found, err = h.Store.Delete(ctx, a.ID)
		require.NoError(t, err)
		assert.False(t, found)
		found, err = h.Store.Delete(ctx, 123456)
		require.NoError(t, err)
		assert.False(t, found)
		rawAfter, _ := h.GetRaw(t, store.Key)
		assert.Equal(t, string(rawBefore), string(rawAfter))
	})

	t.Run("seed if empty is idempotent", func(t *testing.T) {
		h := fresh(t)
		seed := func() []core.Bill { return core.SeedBills(t0) }

		seeded, err := h.Store.SeedIfEmpty(ctx, seed)
		require.NoError(t, err)
		assert.True(t, seeded)
		seeded, err = h.Store.SeedIfEmpty(ctx, seed)
		require.NoError(t, err)
		assert.False(t, seeded)

		bills, _ := h.Store.GetAll(ctx)
		require.Len(t, bills, 5)
		ids := map[int64]bool{}
		for _, b := range bills {
			ids[b.ID] = true
		}
		assert.Len(t, ids, 5)
	})

	t.Run("seed never overwrites existing data", func(t *testing.T) {
		h := fresh(t)
		b, err := h.Store.Add(ctx, sample("mine", 100, 0))
		require.NoError(t, err)
		_, err = h.Store.Delete(ctx, b.ID)
		require.NoError(t, err)

		// An emptied ledger is not a first run.
		seeded, err := h.Store.SeedIfEmpty(ctx, func() []core.Bill { return core.SeedBills(t0) })
		require.NoError(t, err)
		assert.False(t, seeded)
		bills, _ := h.Store.GetAll(ctx)
		assert.Empty(t, bills)
	})

	t.Run("concurrent seeding writes one seed set", func(t *testing.T) {
		h := fresh(t)
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := h.Store.SeedIfEmpty(ctx, func() []core.Bill { return core.SeedBills(t0) })
				assert.NoError(t, err)
				if ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()
		bills, _ := h.Store.GetAll(ctx)
		assert.Len(t, bills, 5)
		assert.GreaterOrEqual(t, wins, 1)
	})

	t.Run("concurrent adds are all kept", func(t *testing.T) {
		h := factory(t, core.RandomIDGenerator{})
		t.Cleanup(func() { _ = h.Store.Close() })
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := h.Store.Add(ctx, sample("c", int64(i+1), 0))
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()
		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, bills, 20)
	})

	t.Run("corrupt payload reads as empty and is preserved", func(t *testing.T) {
		h := fresh(t)
		garbage := []byte(`[{"id":1,"type":"expense","amount":`)
		h.SetRaw(t, store.Key, garbage)

		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, bills)

		seeded, err := h.Store.SeedIfEmpty(ctx, func() []core.Bill { return core.SeedBills(t0) })
		require.NoError(t, err)
		assert.False(t, seeded, "a corrupt blob is not an absent blob")

		added, err := h.Store.Add(ctx, sample("fresh", 100, 0))
		require.NoError(t, err)
		bills, _ = h.Store.GetAll(ctx)
		require.Len(t, bills, 1)
		assert.Equal(t, added.ID, bills[0].ID)

		kept, ok := h.GetRaw(t, store.CorruptKey(store.Key))
		require.True(t, ok)
		assert.Equal(t, string(garbage), string(kept))
	})

	t.Run("a second corruption keeps the first preserved blob", func(t *testing.T) {
		h := fresh(t)
		first := []byte(`[{"id":1`)
		second := []byte(`not json`)

		h.SetRaw(t, store.Key, first)
		_, err := h.Store.Add(ctx, sample("a", 100, 0))
		require.NoError(t, err)

		h.SetRaw(t, store.Key, second)
		_, err = h.Store.Add(ctx, sample("b", 200, 0))
		require.NoError(t, err)

		kept, ok := h.GetRaw(t, store.CorruptKeyN(store.Key, 1))
		require.True(t, ok)
		assert.Equal(t, string(first), string(kept))
		kept, ok = h.GetRaw(t, store.CorruptKeyN(store.Key, 2))
		require.True(t, ok)
		assert.Equal(t, string(second), string(kept))

		require.NoError(t, h.Store.Reset(ctx))
		_, ok = h.GetRaw(t, store.CorruptKeyN(store.Key, 2))
		assert.False(t, ok, "reset removes every preserved blob")
	})

	t.Run("round trip through persistence", func(t *testing.T) {
		h := fresh(t)
		var want []core.Bill
		for i, c := range []string{"餐饮", "交通", "工资"} {
			b := sample(c, int64(i+1)*1001, time.Duration(-i)*24*time.Hour)
			if c == "工资" {
				b.Type = core.Income
			}
			got, err := h.Store.Add(ctx, b)
			require.NoError(t, err)
			want = append(want, got)
		}
		s := h.Store
		if h.Reopen != nil {
			s = h.Reopen(t)
			t.Cleanup(func() { _ = s.Close() })
		}
		got, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, byID(want), byID(got))
	})

	t.Run("reset wipes every version", func(t *testing.T) {
		h := fresh(t)
		_, err := h.Store.Add(ctx, sample("a", 100, 0))
		require.NoError(t, err)
		h.SetRaw(t, store.VersionKey(0), []byte(`[]`))
		h.SetRaw(t, store.CorruptKey(store.Key), []byte(`{`))

		require.NoError(t, h.Store.Reset(ctx))

		for _, k := range []string{store.Key, store.VersionKey(0), store.CorruptKey(store.Key)} {
			_, ok := h.GetRaw(t, k)
			assert.False(t, ok, "key %s should be gone", k)
		}
		bills, _ := h.Store.GetAll(ctx)
		assert.Empty(t, bills)

		seeded, err := h.Store.SeedIfEmpty(ctx, func() []core.Bill { return core.SeedBills(t0) })
		require.NoError(t, err)
		assert.True(t, seeded, "reset returns the store to its first-run state")
	})

	t.Run("monthly scenario over stored data", func(t *testing.T) {
		h := fresh(t)
		_, err := h.Store.Add(ctx, core.Bill{Type: core.Expense, Amount: core.Cents(2550), Category: "餐饮", Timestamp: t0.UnixMilli()})
		require.NoError(t, err)
		_, err = h.Store.Add(ctx, core.Bill{Type: core.Income, Amount: core.Cents(500000), Category: "工资", Timestamp: t0.Add(-48 * time.Hour).UnixMilli()})
		require.NoError(t, err)

		bills, err := h.Store.GetAll(ctx)
		require.NoError(t, err)
		sum := stats.MonthlySummary(bills, 2024, 3, time.UTC)
		assert.Equal(t, "5000.00", sum.Income.String())
		assert.Equal(t, "25.50", sum.Expense.String())
		assert.Equal(t, "4974.50", sum.Balance.String())
	})
}

func byID(bills []core.Bill) []core.Bill {
	out := append([]core.Bill(nil), bills...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// repeatingIDs replays a fixed id list, then counts up from its last value.
type repeatingIDs struct {
	mu  sync.Mutex
	ids []int64
	i   int
}

func (r *repeatingIDs) NextID() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.i < len(r.ids) {
		id := r.ids[r.i]
		r.i++
		return id, nil
	}
	last := r.ids[len(r.ids)-1] + int64(r.i-len(r.ids)+1)
	r.i++
	return last, nil
}
