package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/maskia-arch/esimconnect/core"
)

// AppendFulfillmentEventInput records one finished fulfillment attempt, either
// a delivery or a terminal failure.
type AppendFulfillmentEventInput struct {
	EventKey      string
	ProductCode   string
	Quantity      int
	ArtifactCount int
	Failed        bool
	ErrorCode     string
}

// FulfillmentEventStore persists per-attempt outcome rows; the operator stats
// snapshot aggregates over them.
type FulfillmentEventStore struct {
	db   *bun.DB
	repo repository.Repository[*fulfillmentEventRecord]
	Now  func() time.Time
}

func NewFulfillmentEventStore(db *bun.DB) (*FulfillmentEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*fulfillmentEventRecord](db, fulfillmentEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid fulfillment event repository wiring: %w", err)
		}
	}
	return &FulfillmentEventStore{
		db:   db,
		repo: repo,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *FulfillmentEventStore) Append(ctx context.Context, in AppendFulfillmentEventInput) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: fulfillment event store is not configured")
	}
	if strings.TrimSpace(in.EventKey) == "" {
		return fmt.Errorf("sqlstore: event key is required")
	}

	status := eventStatusCompleted
	if in.Failed {
		status = eventStatusFailed
	}
	record := &fulfillmentEventRecord{
		EventKey:      strings.TrimSpace(in.EventKey),
		ProductCode:   strings.TrimSpace(in.ProductCode),
		Quantity:      in.Quantity,
		ArtifactCount: in.ArtifactCount,
		Status:        status,
		ErrorCode:     strings.TrimSpace(in.ErrorCode),
		CreatedAt:     s.now(),
	}
	_, err := s.repo.Create(ctx, record)
	return err
}

// Snapshot aggregates every recorded outcome into the operator view.
func (s *FulfillmentEventStore) Snapshot(ctx context.Context) (core.StatsSnapshot, error) {
	if s == nil || s.db == nil {
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: fulfillment event store is not configured")
	}

	snapshot := core.StatsSnapshot{}

	totalOrders, err := s.db.NewSelect().
		Model((*fulfillmentEventRecord)(nil)).
		Where("status = ?", eventStatusCompleted).
		Count(ctx)
	if err != nil {
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: count completed fulfillments: %w", err)
	}
	snapshot.TotalOrders = int64(totalOrders)

	failures, err := s.db.NewSelect().
		Model((*fulfillmentEventRecord)(nil)).
		Where("status = ?", eventStatusFailed).
		Count(ctx)
	if err != nil {
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: count failed fulfillments: %w", err)
	}
	snapshot.Errors = int64(failures)

	if err := s.db.NewSelect().
		Model((*fulfillmentEventRecord)(nil)).
		ColumnExpr("COALESCE(SUM(artifact_count), 0)").
		Where("status = ?", eventStatusCompleted).
		Scan(ctx, &snapshot.TotalEsims); err != nil {
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: sum provisioned esims: %w", err)
	}

	var lastOrderAt time.Time
	err = s.db.NewSelect().
		Model((*fulfillmentEventRecord)(nil)).
		Column("created_at").
		Where("status = ?", eventStatusCompleted).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx, &lastOrderAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return core.StatsSnapshot{}, fmt.Errorf("sqlstore: load last order time: %w", err)
	default:
		lastOrderAt = lastOrderAt.UTC()
		snapshot.LastOrderAt = &lastOrderAt
	}

	return snapshot, nil
}

func (s *FulfillmentEventStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
