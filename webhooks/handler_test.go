package webhooks

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/maskia-arch/esimconnect/core"
)

type capturingEvents struct {
	calls    int
	last     core.PurchaseEvent
	response core.FulfillmentResponse
}

func (c *capturingEvents) Handle(_ context.Context, event core.PurchaseEvent) core.FulfillmentResponse {
	c.calls++
	c.last = event
	return c.response
}

func newTestHandler(t *testing.T, secret string, events *capturingEvents) *Handler {
	t.Helper()
	handler, err := NewHandler(HMACVerifier{Secret: secret}, events)
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	return handler
}

func postWebhook(handler *Handler, url string, body string, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RelaysVerifiedEvent(t *testing.T) {
	events := &capturingEvents{response: core.FulfillmentResponse{
		StatusCode:  http.StatusOK,
		ContentType: "text/plain; charset=utf-8",
		Body:        "deliverable",
	}}
	handler := newTestHandler(t, "shh", events)

	body := `{"invoice_id":"inv-1","item":{"quantity":2}}`
	rec := postWebhook(handler, "/webhook?packageCode=PKG1", body, Sign("shh", []byte(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected relayed 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "deliverable" {
		t.Fatalf("expected relayed body, got %q", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "text/plain; charset=utf-8" {
		t.Fatalf("expected relayed content type, got %q", got)
	}
	if events.calls != 1 {
		t.Fatalf("expected one event, got %d", events.calls)
	}
	if events.last.ProductCode != "PKG1" {
		t.Fatalf("expected product code from query, got %q", events.last.ProductCode)
	}
	if events.last.Quantity != 2 {
		t.Fatalf("expected parsed quantity 2, got %d", events.last.Quantity)
	}
	if string(events.last.RawBody) != body {
		t.Fatalf("expected raw body to pass through untouched")
	}
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	events := &capturingEvents{}
	handler := newTestHandler(t, "shh", events)

	body := `{"invoice_id":"inv-1"}`

	for name, signature := range map[string]string{
		"missing":      "",
		"wrong secret": Sign("other", []byte(body)),
		"not hex":      "zzzz",
	} {
		rec := postWebhook(handler, "/webhook?packageCode=PKG1", body, signature)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s signature: expected 401, got %d", name, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), core.ErrorUnauthorized) {
			t.Fatalf("%s signature: expected unauthorized code, got %s", name, rec.Body.String())
		}
	}
	if events.calls != 0 {
		t.Fatalf("expected no events for rejected deliveries, got %d", events.calls)
	}
}

func TestHandler_SignatureCoversRawBytes(t *testing.T) {
	events := &capturingEvents{response: core.FulfillmentResponse{StatusCode: http.StatusOK}}
	handler := newTestHandler(t, "shh", events)

	// Semantically equal JSON with different bytes must not verify.
	signed := `{"invoice_id":"inv-1","item":{"quantity":1}}`
	delivered := `{"item":{"quantity":1},"invoice_id":"inv-1"}`
	rec := postWebhook(handler, "/webhook?packageCode=PKG1", delivered, Sign("shh", []byte(signed)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected reserialized body to fail verification, got %d", rec.Code)
	}
}

func TestHandler_RejectsNonPost(t *testing.T) {
	events := &capturingEvents{}
	handler := newTestHandler(t, "shh", events)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
	if events.calls != 0 {
		t.Fatalf("expected no events for GET")
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing item", `{"invoice_id":"inv-1"}`, 1},
		{"missing quantity", `{"item":{}}`, 1},
		{"integer", `{"item":{"quantity":3}}`, 3},
		{"numeric string", `{"item":{"quantity":"4"}}`, 4},
		{"fractional", `{"item":{"quantity":1.5}}`, 0},
		{"non numeric", `{"item":{"quantity":"lots"}}`, 0},
		{"wrong type", `{"item":{"quantity":{"n":1}}}`, 0},
		{"unparseable body", `not-json`, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseQuantity([]byte(tc.body)); got != tc.want {
				t.Fatalf("parseQuantity(%s) = %d, want %d", tc.body, got, tc.want)
			}
		})
	}
}
