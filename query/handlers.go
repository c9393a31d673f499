// Package query exposes the operator read paths as typed query handlers.
package query

import (
	"context"

	"github.com/maskia-arch/esimconnect/core"
)

// SnapshotReader serves the aggregate counters; stats.Service satisfies it.
type SnapshotReader interface {
	Snapshot(ctx context.Context) (core.StatsSnapshot, error)
}

// FulfillmentReader looks up ledger records; core.FulfillmentLedger
// satisfies it.
type FulfillmentReader interface {
	Get(ctx context.Context, key string) (core.FulfillmentRecord, bool, error)
}

// FulfillmentView is one ledger record plus whether it exists.
type FulfillmentView struct {
	EventKey string
	Found    bool
	Record   core.FulfillmentRecord
}

type StatsSnapshotQuery struct {
	reader SnapshotReader
}

func NewStatsSnapshotQuery(reader SnapshotReader) *StatsSnapshotQuery {
	return &StatsSnapshotQuery{reader: reader}
}

func (q *StatsSnapshotQuery) Query(ctx context.Context, _ StatsSnapshotMessage) (core.StatsSnapshot, error) {
	if q == nil || q.reader == nil {
		return core.StatsSnapshot{}, queryDependencyError("query: snapshot reader is required")
	}
	return q.reader.Snapshot(ctx)
}

type GetFulfillmentQuery struct {
	reader FulfillmentReader
}

func NewGetFulfillmentQuery(reader FulfillmentReader) *GetFulfillmentQuery {
	return &GetFulfillmentQuery{reader: reader}
}

func (q *GetFulfillmentQuery) Query(ctx context.Context, msg GetFulfillmentMessage) (FulfillmentView, error) {
	if q == nil || q.reader == nil {
		return FulfillmentView{}, queryDependencyError("query: fulfillment reader is required")
	}
	if err := msg.Validate(); err != nil {
		return FulfillmentView{}, err
	}
	record, found, err := q.reader.Get(ctx, msg.EventKey)
	if err != nil {
		return FulfillmentView{}, err
	}
	return FulfillmentView{
		EventKey: msg.EventKey,
		Found:    found,
		Record:   record,
	}, nil
}
