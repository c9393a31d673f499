package provisioning

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FailureKind classifies a failed fulfillment attempt. Every kind is terminal
// for the attempt; the caller decides whether a human may retry later.
type FailureKind string

const (
	FailureOrderRejected FailureKind = "order_rejected"
	FailureQueryRejected FailureKind = "query_rejected"
	FailureNetwork       FailureKind = "network_failure"
	FailureTimeout       FailureKind = "timeout"
)

// Error carries the provider's own code and message so operators can diagnose
// a rejected order without replaying it.
type Error struct {
	Kind          FailureKind
	ProviderCode  string
	TransactionID string
	Message       string
	Attempts      int
	Elapsed       time.Duration
	Cause         error
}

func (e *Error) Error() string {
	if e == nil {
		return "provisioning: unknown failure"
	}
	parts := []string{fmt.Sprintf("provisioning: %s", e.Kind)}
	if strings.TrimSpace(e.ProviderCode) != "" {
		parts = append(parts, fmt.Sprintf("provider code %s", e.ProviderCode))
	}
	if strings.TrimSpace(e.Message) != "" {
		parts = append(parts, e.Message)
	}
	if e.Kind == FailureTimeout {
		parts = append(parts, fmt.Sprintf("after %d attempts in %s", e.Attempts, e.Elapsed.Round(time.Second)))
	}
	if strings.TrimSpace(e.TransactionID) != "" {
		parts = append(parts, fmt.Sprintf("tx %s", e.TransactionID))
	}
	out := strings.Join(parts, ": ")
	if e.Cause != nil {
		out = out + ": " + e.Cause.Error()
	}
	return out
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// KindOf extracts the failure kind from any error chain.
func KindOf(err error) (FailureKind, bool) {
	var provErr *Error
	if errors.As(err, &provErr) && provErr != nil {
		return provErr.Kind, true
	}
	return "", false
}
