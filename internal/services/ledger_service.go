package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/stats"
	"ledger/internal/store"
)

// ResetConfirmation is the literal a caller must pass to Reset.
const ResetConfirmation = "RESET"

var ErrResetNotConfirmed = errors.New("reset not confirmed")

// EventPublisher receives a change event after every successful mutation.
type EventPublisher interface {
	PublishBillEvent(ctx context.Context, ev *amqp.BillEvent) error
}

type prober interface {
	Probe(ctx context.Context) error
}

// Options configures a LedgerService. Zero values pick defaults.
type Options struct {
	Publisher EventPublisher
	Location  *time.Location
	Now       func() time.Time
	Logger    *log.Logger
}

// LedgerService orchestrates the record store, the aggregation functions and
// best-effort change events.
type LedgerService struct {
	store     store.RecordStore
	publisher EventPublisher
	loc       *time.Location
	now       func() time.Time
	logger    *log.Logger
}

func NewLedgerService(s store.RecordStore, opts Options) *LedgerService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	return &LedgerService{
		store:     s,
		publisher: opts.Publisher,
		loc:       opts.Location,
		now:       opts.Now,
		logger:    opts.Logger.WithComponent(log.ComponentLedger),
	}
}

// Location is the zone every calendar computation uses.
func (s *LedgerService) Location() *time.Location {
	return s.loc
}

// CurrentPeriod is the month containing now.
func (s *LedgerService) CurrentPeriod() stats.Period {
	now := s.now().In(s.loc)
	return stats.MonthPeriod(now.Year(), int(now.Month()))
}

// EnsureSeeded writes the example bills into a ledger that was never written.
func (s *LedgerService) EnsureSeeded(ctx context.Context) (bool, error) {
	seeded, err := s.store.SeedIfEmpty(ctx, s.seed)
	if err != nil {
		return false, fmt.Errorf("seed ledger: %w", err)
	}
	return seeded, nil
}

func (s *LedgerService) seed() []core.Bill {
	return core.SeedBills(s.now())
}

// List returns every bill, newest first.
func (s *LedgerService) List(ctx context.Context) ([]core.Bill, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	return stats.NewestFirst(bills), nil
}

// Get finds one bill by id.
func (s *LedgerService) Get(ctx context.Context, id int64) (core.Bill, bool, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return core.Bill{}, false, fmt.Errorf("get bill: %w", err)
	}
	for _, b := range bills {
		if b.ID == id {
			return b, true, nil
		}
	}
	return core.Bill{}, false, nil
}

// Create stores a new bill. A zero timestamp means now.
func (s *LedgerService) Create(ctx context.Context, b core.Bill) (core.Bill, error) {
	if b.Timestamp == 0 {
		b.Timestamp = s.now().UnixMilli()
	}
	stored, err := s.store.Add(ctx, b)
	if err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}
	s.publish(ctx, amqp.NewBillEvent(amqp.EventCreated, stored.ID, &stored))
	return stored, nil
}

// Update replaces a bill. It reports whether the id existed; an unknown id is
// not an error and changes nothing.
func (s *LedgerService) Update(ctx context.Context, b core.Bill) (bool, error) {
	if err := b.ValidateStored(); err != nil {
		return false, fmt.Errorf("update bill: %w", err)
	}
	found, err := s.store.Update(ctx, b)
	if err != nil {
		return false, fmt.Errorf("update bill: %w", err)
	}
	if found {
		s.publish(ctx, amqp.NewBillEvent(amqp.EventUpdated, b.ID, &b))
	}
	return found, nil
}

// Delete removes a bill and reports whether it existed.
func (s *LedgerService) Delete(ctx context.Context, id int64) (bool, error) {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete bill: %w", err)
	}
	if found {
		s.publish(ctx, amqp.NewBillEvent(amqp.EventDeleted, id, nil))
	}
	return found, nil
}

// Import adds drafts one by one and returns the stored bills. It stops at the
// first failure; bills stored before it are kept.
func (s *LedgerService) Import(ctx context.Context, drafts []core.Bill) ([]core.Bill, error) {
	out := make([]core.Bill, 0, len(drafts))
	for i, d := range drafts {
		b, err := s.Create(ctx, d)
		if err != nil {
			return out, fmt.Errorf("import bill %d: %w", i+1, err)
		}
		out = append(out, b)
	}
	s.logger.InfoContext(ctx, "Imported bills", log.FieldCount, len(out), log.FieldOperation, log.OpImport)
	return out, nil
}

// Reset wipes every stored version and re-seeds. confirm must equal
// ResetConfirmation.
func (s *LedgerService) Reset(ctx context.Context, confirm string) (bool, error) {
	if confirm != ResetConfirmation {
		return false, ErrResetNotConfirmed
	}
	if err := s.store.Reset(ctx); err != nil {
		return false, fmt.Errorf("reset ledger: %w", err)
	}
	s.publish(ctx, amqp.NewBillEvent(amqp.EventReset, 0, nil))
	return s.EnsureSeeded(ctx)
}

// Summary totals income and expense for p.
func (s *LedgerService) Summary(ctx context.Context, p stats.Period) (stats.Summary, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return stats.Summary{}, fmt.Errorf("summary: %w", err)
	}
	return stats.PeriodSummary(bills, p, s.loc), nil
}

// CategoryBreakdown sums bills of typ in p by category, largest first.
func (s *LedgerService) CategoryBreakdown(ctx context.Context, p stats.Period, typ core.TransactionType) ([]stats.CategorySum, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return stats.CategoryBreakdown(bills, p, typ, s.loc), nil
}

// Series buckets bills of typ by day (month period) or by month (year period).
func (s *LedgerService) Series(ctx context.Context, p stats.Period, typ core.TransactionType) (stats.Series, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return stats.Series{}, fmt.Errorf("series: %w", err)
	}
	return stats.TimeSeries(bills, p, stats.TypeFilter(typ), s.loc), nil
}

// Days groups bills by local day, newest first. A zero Year selects every bill.
func (s *LedgerService) Days(ctx context.Context, p stats.Period) ([]stats.DayGroup, error) {
	bills, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("days: %w", err)
	}
	if p.Year != 0 {
		bills = stats.FilterPeriod(bills, p, nil, s.loc)
	}
	return stats.GroupByDay(bills, s.loc), nil
}

// Categories returns the suggested categories for t with their icons.
func (s *LedgerService) Categories(t core.TransactionType) []core.Category {
	return core.CategoriesWithIcons(t)
}

// Ready reports whether the store can be read.
func (s *LedgerService) Ready(ctx context.Context) error {
	if p, ok := s.store.(prober); ok {
		return p.Probe(ctx)
	}
	_, err := s.store.GetAll(ctx)
	return err
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.BillEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishBillEvent(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish bill event",
			log.FieldEventID, ev.EventID,
			log.FieldEventKind, ev.Kind,
			log.FieldBillID, ev.BillID,
			log.FieldError, err,
			"error_type", log.ErrorTypeNetwork)
	}
}

// Close closes the store and, when it is closable, the publisher.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	return errors.Join(errs...)
}
