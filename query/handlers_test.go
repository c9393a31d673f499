package query

import (
	"context"
	"testing"
	"time"

	"github.com/maskia-arch/esimconnect/core"
)

type stubSnapshotReader struct {
	snapshot core.StatsSnapshot
}

func (s stubSnapshotReader) Snapshot(_ context.Context) (core.StatsSnapshot, error) {
	return s.snapshot, nil
}

type stubFulfillmentReader struct {
	record core.FulfillmentRecord
	found  bool
}

func (s stubFulfillmentReader) Get(_ context.Context, _ string) (core.FulfillmentRecord, bool, error) {
	return s.record, s.found, nil
}

func TestStatsSnapshotQuery(t *testing.T) {
	q := NewStatsSnapshotQuery(stubSnapshotReader{
		snapshot: core.StatsSnapshot{TotalOrders: 12, TotalEsims: 15, Errors: 2},
	})

	snapshot, err := q.Query(context.Background(), StatsSnapshotMessage{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if snapshot.TotalOrders != 12 || snapshot.TotalEsims != 15 || snapshot.Errors != 2 {
		t.Fatalf("unexpected snapshot %+v", snapshot)
	}
}

func TestStatsSnapshotQuery_RequiresReader(t *testing.T) {
	if _, err := NewStatsSnapshotQuery(nil).Query(context.Background(), StatsSnapshotMessage{}); err == nil {
		t.Fatalf("expected missing reader to fail")
	}
}

func TestGetFulfillmentQuery(t *testing.T) {
	record := core.FulfillmentRecord{
		State:     core.FulfillmentStateDone,
		Result:    "deliverable",
		CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	q := NewGetFulfillmentQuery(stubFulfillmentReader{record: record, found: true})

	view, err := q.Query(context.Background(), GetFulfillmentMessage{EventKey: "invoice_id:inv-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !view.Found {
		t.Fatalf("expected record to be found")
	}
	if view.Record.State != core.FulfillmentStateDone || view.Record.Result != "deliverable" {
		t.Fatalf("unexpected record %+v", view.Record)
	}
	if view.EventKey != "invoice_id:inv-1" {
		t.Fatalf("expected event key echoed, got %q", view.EventKey)
	}
}

func TestGetFulfillmentQuery_ValidatesKey(t *testing.T) {
	q := NewGetFulfillmentQuery(stubFulfillmentReader{})
	if _, err := q.Query(context.Background(), GetFulfillmentMessage{}); err == nil {
		t.Fatalf("expected blank key to be rejected")
	}
}

func TestGetFulfillmentQuery_MissingRecord(t *testing.T) {
	q := NewGetFulfillmentQuery(stubFulfillmentReader{found: false})

	view, err := q.Query(context.Background(), GetFulfillmentMessage{EventKey: "invoice_id:missing"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if view.Found {
		t.Fatalf("expected missing record")
	}
}
