package command

import (
	"strings"
)

const (
	TypeResetFulfillment = "esimconnect.command.fulfillment.reset"
	TypeFlushStats       = "esimconnect.command.stats.flush"
)

// ResetFulfillmentMessage asks the ledger to forget a terminal record so the
// next webhook delivery for that key provisions again.
type ResetFulfillmentMessage struct {
	EventKey string
}

func (ResetFulfillmentMessage) Type() string { return TypeResetFulfillment }

func (m ResetFulfillmentMessage) Validate() error {
	if strings.TrimSpace(m.EventKey) == "" {
		return commandValidationError("event_key", "event key is required")
	}
	return nil
}

// FlushStatsMessage forces the buffered stats queue to storage immediately.
type FlushStatsMessage struct{}

func (FlushStatsMessage) Type() string { return TypeFlushStats }

func (FlushStatsMessage) Validate() error { return nil }
