package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/stats"
	"ledger/internal/store"
	"ledger/internal/store/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.BillEvent
	err    error
	closed bool
}

func (f *fakePublisher) PublishBillEvent(_ context.Context, ev *amqp.BillEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) Close() error {
	f.closed = true
	return nil
}

func (f *fakePublisher) kinds() []amqp.EventKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []amqp.EventKind
	for _, ev := range f.events {
		out = append(out, ev.Kind)
	}
	return out
}

type LedgerServiceSuite struct {
	suite.Suite
	ctx  context.Context
	kv   *memory.KV
	pub  *fakePublisher
	svc  *LedgerService
	now  time.Time
	zone *time.Location
}

func (s *LedgerServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.zone = time.FixedZone("UTC+8", 8*3600)
	s.now = time.Date(2024, 3, 15, 12, 0, 0, 0, s.zone)
	s.kv = memory.New()
	s.pub = &fakePublisher{}
	st := store.New(s.kv, store.Options{IDs: core.NewSequenceGenerator(0), Logger: log.Discard()})
	s.svc = NewLedgerService(st, Options{
		Publisher: s.pub,
		Location:  s.zone,
		Now:       func() time.Time { return s.now },
		Logger:    log.Discard(),
	})
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) bill(typ core.TransactionType, cents int64, category string, at time.Time) core.Bill {
	return core.Bill{Type: typ, Amount: core.Cents(cents), Category: category, Timestamp: at.UnixMilli()}
}

func (s *LedgerServiceSuite) TestEnsureSeededOnce() {
	seeded, err := s.svc.EnsureSeeded(s.ctx)
	s.Require().NoError(err)
	s.True(seeded)

	seeded, err = s.svc.EnsureSeeded(s.ctx)
	s.Require().NoError(err)
	s.False(seeded)

	bills, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Len(bills, 5)
	s.Equal("餐饮", bills[0].Category, "newest seed first")
	s.Equal(s.now.UnixMilli(), bills[0].Timestamp)
}

func (s *LedgerServiceSuite) TestCreateDefaultsTimestampAndPublishes() {
	b, err := s.svc.Create(s.ctx, core.Bill{Type: core.Expense, Amount: core.Cents(2550), Category: "餐饮"})
	s.Require().NoError(err)
	s.Equal(s.now.UnixMilli(), b.Timestamp)
	s.Equal(int64(1), b.ID)

	s.Equal([]amqp.EventKind{amqp.EventCreated}, s.pub.kinds())
	s.Equal(b.ID, s.pub.events[0].BillID)
	s.Require().NotNil(s.pub.events[0].Bill)
	s.Equal(b, *s.pub.events[0].Bill)
}

func (s *LedgerServiceSuite) TestCreateValidationFailureDoesNotPublish() {
	_, err := s.svc.Create(s.ctx, core.Bill{Type: "gift", Amount: core.Cents(1), Category: "x"})
	s.Require().ErrorIs(err, core.ErrInvalidType)
	s.True(core.IsValidationError(err))
	s.Empty(s.pub.kinds())
}

func (s *LedgerServiceSuite) TestPublishFailureDoesNotFailMutation() {
	s.pub.err = errors.New("broker down")
	b, err := s.svc.Create(s.ctx, s.bill(core.Income, 100, "工资", s.now))
	s.Require().NoError(err)

	bills, _ := s.svc.List(s.ctx)
	s.Equal([]core.Bill{b}, bills)
}

func (s *LedgerServiceSuite) TestUpdateAndDeleteReportPresence() {
	b, err := s.svc.Create(s.ctx, s.bill(core.Expense, 100, "交通", s.now))
	s.Require().NoError(err)

	b.Amount = core.Cents(300)
	found, err := s.svc.Update(s.ctx, b)
	s.Require().NoError(err)
	s.True(found)

	ghost := b
	ghost.ID = 99
	found, err = s.svc.Update(s.ctx, ghost)
	s.Require().NoError(err)
	s.False(found)

	found, err = s.svc.Delete(s.ctx, 99)
	s.Require().NoError(err)
	s.False(found)

	found, err = s.svc.Delete(s.ctx, b.ID)
	s.Require().NoError(err)
	s.True(found)

	s.Equal([]amqp.EventKind{amqp.EventCreated, amqp.EventUpdated, amqp.EventDeleted}, s.pub.kinds())
}

// racingStore removes the target bill right before each Update/Delete reaches
// the underlying store, as a concurrent delete from another caller would.
type racingStore struct {
	*store.BlobStore
}

func (r racingStore) Update(ctx context.Context, b core.Bill) (bool, error) {
	if _, err := r.BlobStore.Delete(ctx, b.ID); err != nil {
		return false, err
	}
	return r.BlobStore.Update(ctx, b)
}

func (r racingStore) Delete(ctx context.Context, id int64) (bool, error) {
	if _, err := r.BlobStore.Delete(ctx, id); err != nil {
		return false, err
	}
	return r.BlobStore.Delete(ctx, id)
}

func (s *LedgerServiceSuite) TestConcurrentDeleteSuppressesEvents() {
	inner := store.New(memory.New(), store.Options{IDs: core.NewSequenceGenerator(0), Logger: log.Discard()})
	pub := &fakePublisher{}
	svc := NewLedgerService(racingStore{inner}, Options{Publisher: pub, Location: s.zone, Now: func() time.Time { return s.now }, Logger: log.Discard()})

	a, err := svc.Create(s.ctx, s.bill(core.Expense, 100, "餐饮", s.now))
	s.Require().NoError(err)
	b, err := svc.Create(s.ctx, s.bill(core.Expense, 200, "交通", s.now))
	s.Require().NoError(err)

	a.Amount = core.Cents(150)
	found, err := svc.Update(s.ctx, a)
	s.Require().NoError(err)
	s.False(found, "the bill vanished before the update ran")

	found, err = svc.Delete(s.ctx, b.ID)
	s.Require().NoError(err)
	s.False(found)

	s.Equal([]amqp.EventKind{amqp.EventCreated, amqp.EventCreated}, pub.kinds())
	bills, err := svc.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(bills)
}

func (s *LedgerServiceSuite) TestResetRequiresConfirmation() {
	_, err := s.svc.Create(s.ctx, s.bill(core.Expense, 100, "交通", s.now))
	s.Require().NoError(err)

	_, err = s.svc.Reset(s.ctx, "yes")
	s.Require().ErrorIs(err, ErrResetNotConfirmed)
	bills, _ := s.svc.List(s.ctx)
	s.Len(bills, 1)

	seeded, err := s.svc.Reset(s.ctx, ResetConfirmation)
	s.Require().NoError(err)
	s.True(seeded)
	bills, _ = s.svc.List(s.ctx)
	s.Len(bills, 5)
	s.Contains(s.pub.kinds(), amqp.EventReset)
}

func (s *LedgerServiceSuite) TestMonthlyScenario() {
	march10 := time.Date(2024, 3, 10, 9, 0, 0, 0, s.zone)
	march12 := time.Date(2024, 3, 12, 9, 0, 0, 0, s.zone)
	feb28 := time.Date(2024, 2, 28, 9, 0, 0, 0, s.zone)
	for _, b := range []core.Bill{
		s.bill(core.Income, 500000, "工资", march10),
		s.bill(core.Expense, 2550, "餐饮", march12),
		s.bill(core.Expense, 1200, "交通", march12),
		s.bill(core.Expense, 9999, "购物", feb28),
	} {
		_, err := s.svc.Create(s.ctx, b)
		s.Require().NoError(err)
	}

	sum, err := s.svc.Summary(s.ctx, s.svc.CurrentPeriod())
	s.Require().NoError(err)
	s.Equal(int64(500000), sum.Income.Cents)
	s.Equal(int64(3750), sum.Expense.Cents)
	s.Equal(int64(496250), sum.Balance.Cents)

	cats, err := s.svc.CategoryBreakdown(s.ctx, stats.MonthPeriod(2024, 3), core.Expense)
	s.Require().NoError(err)
	s.Require().Len(cats, 2)
	s.Equal("餐饮", cats[0].Category)

	series, err := s.svc.Series(s.ctx, stats.MonthPeriod(2024, 3), core.Expense)
	s.Require().NoError(err)
	s.Equal(31, series.Len())
	s.Equal(int64(3750), series.Values[11].Cents)

	yearly, err := s.svc.Series(s.ctx, stats.YearPeriod(2024), core.Expense)
	s.Require().NoError(err)
	s.Equal(12, yearly.Len())
	s.Equal(int64(9999), yearly.Values[1].Cents)

	days, err := s.svc.Days(s.ctx, stats.MonthPeriod(2024, 3))
	s.Require().NoError(err)
	s.Require().Len(days, 2)
	s.Equal("2024/3/12", days[0].Key)

	all, err := s.svc.Days(s.ctx, stats.Period{})
	s.Require().NoError(err)
	s.Len(all, 3)
}

func (s *LedgerServiceSuite) TestImportStopsAtFirstInvalid() {
	drafts := []core.Bill{
		s.bill(core.Expense, 100, "a", s.now),
		s.bill(core.Expense, 200, "", s.now),
		s.bill(core.Expense, 300, "c", s.now),
	}
	stored, err := s.svc.Import(s.ctx, drafts)
	s.Require().ErrorIs(err, core.ErrEmptyCategory)
	s.Len(stored, 1)
}

func (s *LedgerServiceSuite) TestReadyAndClose() {
	s.NoError(s.svc.Ready(s.ctx))
	s.NoError(s.svc.Close())
	s.True(s.pub.closed)
}

func TestCategoriesAndDefaults(t *testing.T) {
	svc := NewLedgerService(memory.NewStore(store.Options{Logger: log.Discard()}), Options{Logger: log.Discard()})
	assert.Equal(t, time.Local, svc.Location())

	cats := svc.Categories(core.Income)
	require.NotEmpty(t, cats)
	assert.Equal(t, "工资", cats[0].Name)
	assert.Equal(t, core.IconWallet, cats[0].Icon)
}
