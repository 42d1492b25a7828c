package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/log"
)

// Redelivery dedupe window.
const (
	seenLimit = 1024
	seenTTL   = 24 * time.Hour
)

// AuditWorker records every bill change event it consumes as one JSON line.
// Redelivered events (same event id) are written once.
type AuditWorker struct {
	out    io.Writer
	logger *log.Logger

	mu     sync.Mutex
	seen   *cache.LRUCache[struct{}]
	counts map[amqp.EventKind]int
}

func NewAuditWorker(out io.Writer, logger *log.Logger) *AuditWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AuditWorker{
		out:    out,
		logger: logger.WithComponent(log.ComponentWorker),
		seen:   cache.NewLRUCache[struct{}](seenLimit, seenTTL),
		counts: make(map[amqp.EventKind]int),
	}
}

// HandleBillEvent is the consumer callback. An error makes the broker
// redeliver the message.
func (w *AuditWorker) HandleBillEvent(ctx context.Context, ev *amqp.BillEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, dup := w.seen.Get(ev.EventID); dup {
		w.logger.DebugContext(ctx, "Skipping duplicate bill event", log.FieldEventID, ev.EventID)
		return nil
	}

	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode audit line: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.out.Write(line); err != nil {
		return fmt.Errorf("write audit line: %w", err)
	}

	w.seen.Set(ev.EventID, struct{}{})
	w.counts[ev.Kind]++

	fields := log.NewFields().WithOperation(log.OpConsume)
	fields[log.FieldEventID] = ev.EventID
	fields[log.FieldEventKind] = string(ev.Kind)
	if ev.Bill != nil {
		fields = fields.WithBill(ev.Bill.ID, ev.Bill.Type.String(), ev.Bill.Amount.Cents, ev.Bill.Category)
	} else if ev.BillID != 0 {
		fields[log.FieldBillID] = ev.BillID
	}
	w.logger.InfoContext(ctx, "Recorded bill event", fields.ToSlice()...)
	return nil
}

// Seen exposes the dedupe window so a cache.Manager can sweep it.
func (w *AuditWorker) Seen() cache.Cleaner {
	return w.seen
}

// Counts returns how many events of each kind were recorded.
func (w *AuditWorker) Counts() map[amqp.EventKind]int {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make(map[amqp.EventKind]int, len(w.counts))
	for k, v := range w.counts {
		out[k] = v
	}
	return out
}
