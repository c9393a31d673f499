package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/maskia-arch/esimconnect/core"
)

const defaultRetention = 6 * time.Hour

// MemoryLedger is the process-local fulfillment ledger. Swapping it for a
// shared store requires conditional-put semantics equivalent to Begin; the
// orchestrator contract does not change.
type MemoryLedger struct {
	mu        sync.Mutex
	retention time.Duration
	entries   map[string]core.FulfillmentRecord
	Now       func() time.Time
}

func NewMemoryLedger(retention time.Duration) *MemoryLedger {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &MemoryLedger{
		retention: retention,
		entries:   map[string]core.FulfillmentRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryLedger) Begin(_ context.Context, key string) (core.FulfillmentRecord, bool, error) {
	if l == nil {
		return core.FulfillmentRecord{}, false, fmt.Errorf("ledger: memory ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return core.FulfillmentRecord{}, false, fmt.Errorf("ledger: fulfillment key is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if record, ok := l.entries[key]; ok {
		return record, false, nil
	}
	record := core.FulfillmentRecord{
		State:     core.FulfillmentStateProcessing,
		CreatedAt: l.now(),
	}
	l.entries[key] = record
	return record, true, nil
}

func (l *MemoryLedger) Get(_ context.Context, key string) (core.FulfillmentRecord, bool, error) {
	if l == nil {
		return core.FulfillmentRecord{}, false, fmt.Errorf("ledger: memory ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return core.FulfillmentRecord{}, false, fmt.Errorf("ledger: fulfillment key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.entries[key]
	return record, ok, nil
}

func (l *MemoryLedger) MarkDone(_ context.Context, key string, result string) error {
	return l.transition(key, func(record core.FulfillmentRecord) (core.FulfillmentRecord, error) {
		if record.State == core.FulfillmentStateDone {
			// Done is terminal and its result immutable.
			return record, nil
		}
		record.State = core.FulfillmentStateDone
		record.Result = result
		return record, nil
	})
}

func (l *MemoryLedger) MarkError(_ context.Context, key string) error {
	return l.transition(key, func(record core.FulfillmentRecord) (core.FulfillmentRecord, error) {
		if record.State == core.FulfillmentStateDone {
			return record, fmt.Errorf("ledger: refusing to mark completed fulfillment %q as failed", key)
		}
		record.State = core.FulfillmentStateError
		record.Result = ""
		return record, nil
	})
}

func (l *MemoryLedger) Reset(_ context.Context, key string) error {
	if l == nil {
		return fmt.Errorf("ledger: memory ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("ledger: fulfillment key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.entries[key]
	if !ok {
		return fmt.Errorf("ledger: no fulfillment record for key %q", key)
	}
	if record.State == core.FulfillmentStateProcessing {
		return fmt.Errorf("ledger: fulfillment %q is still processing and cannot be reset", key)
	}
	delete(l.entries, key)
	return nil
}

func (l *MemoryLedger) SweepExpired(_ context.Context) (int, error) {
	if l == nil {
		return 0, fmt.Errorf("ledger: memory ledger is not configured")
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, record := range l.entries {
		if now.Sub(record.CreatedAt) > l.retention {
			delete(l.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of live records; used by the sweeper's log line.
func (l *MemoryLedger) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *MemoryLedger) transition(
	key string,
	apply func(core.FulfillmentRecord) (core.FulfillmentRecord, error),
) error {
	if l == nil {
		return fmt.Errorf("ledger: memory ledger is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("ledger: fulfillment key is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	record, ok := l.entries[key]
	if !ok {
		return fmt.Errorf("ledger: no fulfillment record for key %q", key)
	}
	next, err := apply(record)
	if err != nil {
		return err
	}
	l.entries[key] = next
	return nil
}

func (l *MemoryLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

var _ core.FulfillmentLedger = (*MemoryLedger)(nil)
