package ledger

import (
	"context"
	"time"

	"github.com/maskia-arch/esimconnect/core"
)

const defaultSweepInterval = 10 * time.Minute

// Sweeper evicts expired fulfillment records on a fixed period, independent
// of request traffic. It shares the ledger's lock domain through SweepExpired,
// so a sweep can never race an in-flight processing→done transition.
type Sweeper struct {
	Ledger   core.FulfillmentLedger
	Interval time.Duration
	Logger   core.Logger
}

func NewSweeper(target core.FulfillmentLedger, interval time.Duration, logger core.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{
		Ledger:   target,
		Interval: interval,
		Logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.Ledger == nil {
		return
	}
	ticker := time.NewTicker(s.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Ledger.SweepExpired(ctx)
			if err != nil {
				if s.Logger != nil {
					s.Logger.Error("ledger sweep failed", "error", err.Error())
				}
				continue
			}
			if removed > 0 && s.Logger != nil {
				s.Logger.Info("ledger sweep evicted expired records", "removed", removed)
			}
		}
	}
}

func (s *Sweeper) interval() time.Duration {
	if s != nil && s.Interval > 0 {
		return s.Interval
	}
	return defaultSweepInterval
}
