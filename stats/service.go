// Package stats buffers fulfillment outcomes in memory and flushes them to
// the event store on an interval, keeping the hot path free of storage
// latency.
package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/maskia-arch/esimconnect/core"
	sqlstore "github.com/maskia-arch/esimconnect/store/sql"
)

const defaultFlushInterval = 10 * time.Second

// Sink receives flushed outcome rows; satisfied by
// sqlstore.FulfillmentEventStore.
type Sink interface {
	Append(ctx context.Context, in sqlstore.AppendFulfillmentEventInput) error
}

// Invalidator drops a cached snapshot after new rows land.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service implements core.StatsRecorder by queueing outcomes and writing them
// out in batches. Recording never blocks on storage; a flush that fails keeps
// its rows queued for the next tick.
type Service struct {
	mu      sync.Mutex
	pending []sqlstore.AppendFulfillmentEventInput

	sink        Sink
	snapshots   sqlstore.SnapshotSource
	invalidator Invalidator

	Interval time.Duration
	Logger   core.Logger
}

func NewService(sink Sink, snapshots sqlstore.SnapshotSource) (*Service, error) {
	if sink == nil {
		return nil, fmt.Errorf("stats: event sink is required")
	}
	if snapshots == nil {
		return nil, fmt.Errorf("stats: snapshot source is required")
	}
	service := &Service{
		sink:      sink,
		snapshots: snapshots,
		Interval:  defaultFlushInterval,
	}
	if invalidator, ok := snapshots.(Invalidator); ok {
		service.invalidator = invalidator
	}
	return service, nil
}

func (s *Service) RecordOrder(_ context.Context, order core.OrderStat) {
	if s == nil {
		return
	}
	s.enqueue(sqlstore.AppendFulfillmentEventInput{
		EventKey:      order.EventKey,
		ProductCode:   order.ProductCode,
		Quantity:      order.Quantity,
		ArtifactCount: order.ArtifactCount,
	})
}

func (s *Service) RecordError(_ context.Context, failure core.ErrorStat) {
	if s == nil {
		return
	}
	s.enqueue(sqlstore.AppendFulfillmentEventInput{
		EventKey:    failure.EventKey,
		ProductCode: failure.ProductCode,
		Failed:      true,
		ErrorCode:   failure.ErrorCode,
	})
}

// Flush writes every queued outcome. Rows the sink refuses are re-queued and
// reported through the returned error.
func (s *Service) Flush(ctx context.Context) (int, error) {
	if s == nil || s.sink == nil {
		return 0, fmt.Errorf("stats: service is not configured")
	}

	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}

	written := 0
	var retained []sqlstore.AppendFulfillmentEventInput
	var firstErr error
	for _, row := range batch {
		if err := s.sink.Append(ctx, row); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			retained = append(retained, row)
			continue
		}
		written++
	}

	if len(retained) > 0 {
		s.mu.Lock()
		s.pending = append(retained, s.pending...)
		s.mu.Unlock()
	}

	if written > 0 && s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger().Warn("invalidating stats snapshot cache", "error", err)
		}
	}
	if firstErr != nil {
		return written, fmt.Errorf("stats: flush retained %d rows: %w", len(retained), firstErr)
	}
	return written, nil
}

// Run flushes on every tick until ctx is cancelled, then drains one final
// time so shutdown does not drop queued outcomes.
func (s *Service) Run(ctx context.Context) {
	if s == nil {
		return
	}
	interval := s.Interval
	if interval <= 0 {
		interval = defaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := s.Flush(drainCtx); err != nil {
				s.logger().Error("final stats flush failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			written, err := s.Flush(ctx)
			if err != nil {
				s.logger().Error("stats flush failed", "error", err, "written", written)
			}
		}
	}
}

// Snapshot serves the aggregate operator view.
func (s *Service) Snapshot(ctx context.Context) (core.StatsSnapshot, error) {
	if s == nil || s.snapshots == nil {
		return core.StatsSnapshot{}, fmt.Errorf("stats: service is not configured")
	}
	return s.snapshots.Snapshot(ctx)
}

// PendingCount reports queued rows awaiting flush.
func (s *Service) PendingCount() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Service) enqueue(row sqlstore.AppendFulfillmentEventInput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, row)
}

func (s *Service) logger() core.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return glog.Ensure(nil)
}

var _ core.StatsRecorder = (*Service)(nil)
