package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/maskia-arch/esimconnect/core"
)

func TestMemoryLedger_BeginStartsOncePerKey(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)

	record, started, err := ldg.Begin(context.Background(), "invoice_id:inv-1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !started {
		t.Fatalf("expected first begin to start processing")
	}
	if record.State != core.FulfillmentStateProcessing {
		t.Fatalf("expected processing record, got %q", record.State)
	}

	record, started, err = ldg.Begin(context.Background(), "invoice_id:inv-1")
	if err != nil {
		t.Fatalf("second begin: %v", err)
	}
	if started {
		t.Fatalf("expected second begin to observe the existing record")
	}
	if record.State != core.FulfillmentStateProcessing {
		t.Fatalf("expected existing processing record, got %q", record.State)
	}
}

func TestMemoryLedger_BeginIsAtomicUnderContention(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)

	const callers = 32
	winners := make(chan struct{}, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, started, err := ldg.Begin(context.Background(), "order_id:7001")
			if err != nil {
				t.Errorf("begin: %v", err)
				return
			}
			if started {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)

	count := 0
	for range winners {
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one caller to start, got %d", count)
	}
}

func TestMemoryLedger_DoneIsImmutable(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)
	ctx := context.Background()

	if _, _, err := ldg.Begin(ctx, "k"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ldg.MarkDone(ctx, "k", "first result"); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if err := ldg.MarkDone(ctx, "k", "second result"); err != nil {
		t.Fatalf("repeat mark done: %v", err)
	}

	record, ok, err := ldg.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if record.Result != "first result" {
		t.Fatalf("expected original result preserved, got %q", record.Result)
	}

	if err := ldg.MarkError(ctx, "k"); err == nil {
		t.Fatalf("expected completed record to refuse error transition")
	}
}

func TestMemoryLedger_ResetRules(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)
	ctx := context.Background()

	if err := ldg.Reset(ctx, "missing"); err == nil {
		t.Fatalf("expected reset of unknown key to fail")
	}

	if _, _, err := ldg.Begin(ctx, "k"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ldg.Reset(ctx, "k"); err == nil {
		t.Fatalf("expected reset of processing record to be refused")
	}

	if err := ldg.MarkError(ctx, "k"); err != nil {
		t.Fatalf("mark error: %v", err)
	}
	if err := ldg.Reset(ctx, "k"); err != nil {
		t.Fatalf("reset failed record: %v", err)
	}

	_, started, err := ldg.Begin(ctx, "k")
	if err != nil {
		t.Fatalf("begin after reset: %v", err)
	}
	if !started {
		t.Fatalf("expected reset key to accept a fresh attempt")
	}
}

func TestMemoryLedger_SweepExpired(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	ldg.Now = func() time.Time { return now }
	ctx := context.Background()

	if _, _, err := ldg.Begin(ctx, "old-done"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ldg.MarkDone(ctx, "old-done", "result"); err != nil {
		t.Fatalf("mark done: %v", err)
	}
	if _, _, err := ldg.Begin(ctx, "old-error"); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := ldg.MarkError(ctx, "old-error"); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, _, err := ldg.Begin(ctx, "fresh"); err != nil {
		t.Fatalf("begin fresh: %v", err)
	}

	removed, err := ldg.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected two evictions, got %d", removed)
	}
	if ldg.Len() != 1 {
		t.Fatalf("expected one live record, got %d", ldg.Len())
	}

	// An evicted key fulfills again as a brand-new order.
	_, started, err := ldg.Begin(ctx, "old-done")
	if err != nil {
		t.Fatalf("begin evicted key: %v", err)
	}
	if !started {
		t.Fatalf("expected evicted key to start fresh")
	}
}

func TestMemoryLedger_RejectsBlankKey(t *testing.T) {
	ldg := NewMemoryLedger(time.Hour)
	if _, _, err := ldg.Begin(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank key to be rejected")
	}
}
