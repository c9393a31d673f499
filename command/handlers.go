// Package command exposes the operator mutations as typed command handlers.
package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
)

// LedgerResetter removes a terminal fulfillment record;
// core.FulfillmentLedger satisfies it.
type LedgerResetter interface {
	Reset(ctx context.Context, key string) error
}

// StatsFlusher drains the buffered stats queue; stats.Service satisfies it.
type StatsFlusher interface {
	Flush(ctx context.Context) (int, error)
}

// FlushResult reports how many queued rows a forced flush wrote.
type FlushResult struct {
	Written int
}

type ResetFulfillmentCommand struct {
	ledger LedgerResetter
}

func NewResetFulfillmentCommand(ledger LedgerResetter) *ResetFulfillmentCommand {
	return &ResetFulfillmentCommand{ledger: ledger}
}

func (c *ResetFulfillmentCommand) Execute(ctx context.Context, msg ResetFulfillmentMessage) error {
	if c == nil || c.ledger == nil {
		return commandDependencyError("command: fulfillment ledger is required")
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.ledger.Reset(ctx, msg.EventKey)
}

type FlushStatsCommand struct {
	flusher StatsFlusher
}

func NewFlushStatsCommand(flusher StatsFlusher) *FlushStatsCommand {
	return &FlushStatsCommand{flusher: flusher}
}

func (c *FlushStatsCommand) Execute(ctx context.Context, msg FlushStatsMessage) error {
	if c == nil || c.flusher == nil {
		return commandDependencyError("command: stats flusher is required")
	}
	written, err := c.flusher.Flush(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, FlushResult{Written: written})
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
