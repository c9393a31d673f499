package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// FulfillmentState tracks the lifecycle of one logical purchase.
type FulfillmentState string

const (
	FulfillmentStateProcessing FulfillmentState = "processing"
	FulfillmentStateDone       FulfillmentState = "done"
	FulfillmentStateError      FulfillmentState = "error"
)

// FulfillmentRecord is the per-key ledger value. Once a record reaches
// FulfillmentStateDone its Result never changes; an error record is only
// re-entered into processing through an explicit operator reset.
type FulfillmentRecord struct {
	State     FulfillmentState
	Result    string
	CreatedAt time.Time
}

// Artifact is one provisioned eSIM as returned by the provider. ICCID is
// never empty on a successfully provisioned artifact; AccessURL may be.
type Artifact struct {
	ICCID     string
	AccessURL string
}

// PurchaseEvent is a verified inbound purchase webhook. RawBody carries the
// body bytes exactly as received so key derivation can hash them when the
// payload has no order identifier.
type PurchaseEvent struct {
	ProductCode string
	Quantity    int
	RawBody     []byte
}

// FulfillmentResponse is the transport-agnostic outcome of handling one
// purchase event. Body is plain text on success and a JSON error envelope
// otherwise; the webhook sender keys retries off StatusCode alone.
type FulfillmentResponse struct {
	StatusCode  int
	ContentType string
	Body        string
}

// FulfillmentLedger owns the exactly-once-provisioning invariant. Begin must
// be atomic with respect to concurrent callers: the lookup and the processing
// write happen inside a single mutual-exclusion domain, so two requests for
// the same key can never both observe "absent".
type FulfillmentLedger interface {
	// Begin returns the existing record for key, or writes a processing
	// record and reports started=true when none exists.
	Begin(ctx context.Context, key string) (record FulfillmentRecord, started bool, err error)
	Get(ctx context.Context, key string) (FulfillmentRecord, bool, error)
	MarkDone(ctx context.Context, key string, result string) error
	MarkError(ctx context.Context, key string) error
	// Reset removes a terminal record so an operator can allow a re-order.
	// Resetting a processing record is refused.
	Reset(ctx context.Context, key string) error
	SweepExpired(ctx context.Context) (int, error)
}

// ProvisioningClient places one provider order and polls it to completion.
// Implementations hold no cross-call state; the caller guarantees at most one
// concurrent invocation per event key.
type ProvisioningClient interface {
	Order(ctx context.Context, productCode string, quantity int) ([]Artifact, error)
}

// OrderStat describes one delivered fulfillment for the stats pipeline.
type OrderStat struct {
	EventKey      string
	ProductCode   string
	Quantity      int
	ArtifactCount int
}

// ErrorStat describes one terminally failed fulfillment attempt.
type ErrorStat struct {
	EventKey    string
	ProductCode string
	ErrorCode   string
}

// StatsRecorder collects fulfillment outcomes. Calls are fire-and-forget and
// must never block the response path.
type StatsRecorder interface {
	RecordOrder(ctx context.Context, order OrderStat)
	RecordError(ctx context.Context, failure ErrorStat)
}

// StatsSnapshot is the aggregate view served to operators.
type StatsSnapshot struct {
	TotalOrders int64
	TotalEsims  int64
	Errors      int64
	LastOrderAt *time.Time
}

// MessageComposer renders provisioned artifacts into the deliverable text
// returned to the purchaser.
type MessageComposer interface {
	Render(artifacts []Artifact) string
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
