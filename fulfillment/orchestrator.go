package fulfillment

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/maskia-arch/esimconnect/core"
	"github.com/maskia-arch/esimconnect/ledger"
)

const (
	// MinQuantity and MaxQuantity bound how many eSIMs a single purchase
	// event may provision.
	MinQuantity = 1
	MaxQuantity = 10

	contentTypeText = "text/plain; charset=utf-8"
	contentTypeJSON = "application/json"
)

// Orchestrator drives one purchase event through the ledger and the
// provisioning client. It guarantees at most one provider order per event key
// and serves byte-identical replays for keys that already completed.
type Orchestrator struct {
	Ledger   core.FulfillmentLedger
	Client   core.ProvisioningClient
	Composer core.MessageComposer
	Stats    core.StatsRecorder
	Logger   core.Logger
	Now      func() time.Time
}

func NewOrchestrator(
	ldg core.FulfillmentLedger,
	client core.ProvisioningClient,
	composer core.MessageComposer,
) (*Orchestrator, error) {
	if ldg == nil {
		return nil, fmt.Errorf("fulfillment: ledger is required")
	}
	if client == nil {
		return nil, fmt.Errorf("fulfillment: provisioning client is required")
	}
	if composer == nil {
		composer = NewTemplateComposer()
	}
	return &Orchestrator{
		Ledger:   ldg,
		Client:   client,
		Composer: composer,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

// Handle processes one verified purchase event and returns the response the
// transport should relay unchanged. Every outcome maps to a status code the
// webhook sender keys its retry decision off: 200 means delivered, 400 means
// never retry, 5xx means the sender may retry and the ledger decides what the
// retry observes.
func (o *Orchestrator) Handle(ctx context.Context, event core.PurchaseEvent) core.FulfillmentResponse {
	if o == nil || o.Ledger == nil || o.Client == nil {
		return errorResponse(http.StatusInternalServerError, core.ErrorInternal, "fulfillment orchestrator is not configured")
	}

	productCode := strings.TrimSpace(event.ProductCode)
	if productCode == "" {
		return errorResponse(http.StatusBadRequest, core.ErrorBadInput, "packageCode is required")
	}
	if event.Quantity < MinQuantity || event.Quantity > MaxQuantity {
		return errorResponse(http.StatusBadRequest, core.ErrorBadInput,
			fmt.Sprintf("quantity must be between %d and %d", MinQuantity, MaxQuantity))
	}

	key := ledger.DeriveKey(event.RawBody)
	startedAt := o.now()

	record, started, err := o.Ledger.Begin(ctx, key)
	if err != nil {
		o.logError("fulfillment ledger unavailable", key, productCode, err)
		return errorResponse(http.StatusInternalServerError, core.ErrorInternal, "fulfillment state is unavailable")
	}

	if !started {
		return o.replay(key, productCode, record)
	}

	// The attempt runs to completion even when the webhook sender drops the
	// connection; the ledger already holds a processing record for this key.
	artifacts, err := o.Client.Order(context.WithoutCancel(ctx), productCode, event.Quantity)
	if err != nil {
		if markErr := o.Ledger.MarkError(ctx, key); markErr != nil {
			o.logError("marking failed fulfillment", key, productCode, markErr)
		}
		errorCode := textCodeForProvisioning(err)
		o.recordError(ctx, core.ErrorStat{
			EventKey:    key,
			ProductCode: productCode,
			ErrorCode:   errorCode,
		})
		o.logError("provisioning failed", key, productCode, err)
		return errorResponse(http.StatusInternalServerError, errorCode, err.Error())
	}

	message := o.render(artifacts)
	if err := o.Ledger.MarkDone(ctx, key, message); err != nil {
		// Provisioning already happened; the purchaser still gets the
		// deliverable even if the completion write failed.
		o.logError("recording completed fulfillment", key, productCode, err)
	}
	o.recordOrder(ctx, core.OrderStat{
		EventKey:      key,
		ProductCode:   productCode,
		Quantity:      event.Quantity,
		ArtifactCount: len(artifacts),
	})
	o.logInfo("fulfillment completed", key, productCode,
		"quantity", event.Quantity,
		"artifacts", len(artifacts),
		"duration_ms", time.Since(startedAt).Milliseconds(),
	)
	return core.FulfillmentResponse{
		StatusCode:  http.StatusOK,
		ContentType: contentTypeText,
		Body:        message,
	}
}

func (o *Orchestrator) replay(key string, productCode string, record core.FulfillmentRecord) core.FulfillmentResponse {
	switch record.State {
	case core.FulfillmentStateDone:
		o.logInfo("serving replayed fulfillment", key, productCode)
		return core.FulfillmentResponse{
			StatusCode:  http.StatusOK,
			ContentType: contentTypeText,
			Body:        record.Result,
		}
	case core.FulfillmentStateProcessing:
		return errorResponse(http.StatusInternalServerError, core.ErrorDuplicateInFlight,
			"a fulfillment for this order is already in flight")
	default:
		// A failed key never re-orders on its own; an operator reset is the
		// only way back into processing.
		return errorResponse(http.StatusInternalServerError, core.ErrorPreviousAttemptFailed,
			"a previous fulfillment attempt for this order failed")
	}
}

func (o *Orchestrator) render(artifacts []core.Artifact) string {
	composer := o.Composer
	if composer == nil {
		composer = NewTemplateComposer()
	}
	return composer.Render(artifacts)
}

func (o *Orchestrator) recordOrder(ctx context.Context, order core.OrderStat) {
	if o.Stats == nil {
		return
	}
	o.Stats.RecordOrder(ctx, order)
}

func (o *Orchestrator) recordError(ctx context.Context, failure core.ErrorStat) {
	if o.Stats == nil {
		return
	}
	o.Stats.RecordError(ctx, failure)
}

func (o *Orchestrator) logInfo(message string, key string, productCode string, args ...any) {
	logger := glog.Ensure(o.Logger)
	logger.Info(message, append([]any{"event_key", key, "product_code", productCode}, args...)...)
}

func (o *Orchestrator) logError(message string, key string, productCode string, err error) {
	logger := glog.Ensure(o.Logger)
	logger.Error(message, "event_key", key, "product_code", productCode, "error", err)
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func errorResponse(status int, textCode string, message string) core.FulfillmentResponse {
	return core.FulfillmentResponse{
		StatusCode:  status,
		ContentType: contentTypeJSON,
		Body:        renderErrorBody(textCode, message),
	}
}
