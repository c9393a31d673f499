package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/maskia-arch/esimconnect/core"
)

const defaultMaxBodyBytes = 1 << 20

// EventHandler consumes one verified purchase event. The webhook handler
// relays whatever response it returns without reinterpretation.
type EventHandler interface {
	Handle(ctx context.Context, event core.PurchaseEvent) core.FulfillmentResponse
}

// Handler terminates the storefront's purchase webhook. It verifies the
// signature over the raw body before any parsing, extracts the product code
// and quantity, and hands the event to the orchestrator.
type Handler struct {
	Verifier     Verifier
	Events       EventHandler
	Logger       core.Logger
	MaxBodyBytes int64
}

func NewHandler(verifier Verifier, events EventHandler) (*Handler, error) {
	if verifier == nil {
		return nil, fmt.Errorf("webhooks: verifier is required")
	}
	if events == nil {
		return nil, fmt.Errorf("webhooks: event handler is required")
	}
	return &Handler{
		Verifier:     verifier,
		Events:       events,
		MaxBodyBytes: defaultMaxBodyBytes,
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Verifier == nil || h.Events == nil {
		writeJSONError(w, http.StatusInternalServerError, core.ErrorInternal, "webhook handler is not configured")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSONError(w, http.StatusMethodNotAllowed, core.ErrorBadInput, "method not allowed")
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	rawBody, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, core.ErrorBadInput, "reading request body failed")
		return
	}
	if int64(len(rawBody)) > limit {
		writeJSONError(w, http.StatusBadRequest, core.ErrorBadInput, "request body too large")
		return
	}

	if err := h.Verifier.Verify(rawBody, r.Header.Get(SignatureHeader)); err != nil {
		h.logger().Warn("rejected webhook delivery", "error", err, "remote_addr", r.RemoteAddr)
		writeJSONError(w, http.StatusUnauthorized, core.ErrorUnauthorized, "signature verification failed")
		return
	}

	event := core.PurchaseEvent{
		ProductCode: strings.TrimSpace(r.URL.Query().Get("packageCode")),
		Quantity:    parseQuantity(rawBody),
		RawBody:     rawBody,
	}

	resp := h.Events.Handle(r.Context(), event)
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

// parseQuantity reads item.quantity from the event body. A missing quantity
// means a single-item purchase; a present but non-numeric one is passed
// through as zero so validation rejects the event instead of guessing.
func parseQuantity(rawBody []byte) int {
	var payload struct {
		Item struct {
			Quantity any `json:"quantity"`
		} `json:"item"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return 1
	}
	switch quantity := payload.Item.Quantity.(type) {
	case nil:
		return 1
	case float64:
		if quantity != float64(int(quantity)) {
			return 0
		}
		return int(quantity)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(quantity))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func (h *Handler) logger() core.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return glog.Ensure(nil)
}

func writeJSONError(w http.ResponseWriter, status int, textCode string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    textCode,
			"message": message,
		},
	})
}
