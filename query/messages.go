package query

import (
	"strings"
)

const (
	TypeStatsSnapshot  = "esimconnect.query.stats.snapshot"
	TypeGetFulfillment = "esimconnect.query.fulfillment.get"
)

// StatsSnapshotMessage requests the aggregate fulfillment counters.
type StatsSnapshotMessage struct{}

func (StatsSnapshotMessage) Type() string { return TypeStatsSnapshot }

func (StatsSnapshotMessage) Validate() error { return nil }

// GetFulfillmentMessage looks up the ledger record for one event key.
type GetFulfillmentMessage struct {
	EventKey string
}

func (GetFulfillmentMessage) Type() string { return TypeGetFulfillment }

func (m GetFulfillmentMessage) Validate() error {
	if strings.TrimSpace(m.EventKey) == "" {
		return queryValidationError("event_key", "event key is required")
	}
	return nil
}
