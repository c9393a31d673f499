package ledger

import (
	"strings"
	"testing"
)

func TestDeriveKey_PrefersInvoiceID(t *testing.T) {
	key := DeriveKey([]byte(`{"invoice_id":"inv-42","order_id":"ord-7"}`))
	if key != "invoice_id:inv-42" {
		t.Fatalf("expected invoice id to win, got %q", key)
	}
}

func TestDeriveKey_FallsBackToOrderID(t *testing.T) {
	key := DeriveKey([]byte(`{"order_id":"ord-7"}`))
	if key != "order_id:ord-7" {
		t.Fatalf("expected order id key, got %q", key)
	}
}

func TestDeriveKey_AcceptsNumericIdentifiers(t *testing.T) {
	key := DeriveKey([]byte(`{"invoice_id":7001}`))
	if key != "invoice_id:7001" {
		t.Fatalf("expected numeric identifier to normalize, got %q", key)
	}
}

func TestDeriveKey_HashesBodyWithoutIdentifier(t *testing.T) {
	body := []byte(`{"item":{"quantity":1}}`)

	first := DeriveKey(body)
	second := DeriveKey(body)
	if first != second {
		t.Fatalf("expected deterministic hash key, got %q and %q", first, second)
	}
	if !strings.HasPrefix(first, hashedKeyPrefix+":") {
		t.Fatalf("expected hashed key prefix, got %q", first)
	}
	if len(first) != len(hashedKeyPrefix)+1+32 {
		t.Fatalf("expected 16-byte hex digest, got %q", first)
	}
}

func TestDeriveKey_HashIsByteSensitive(t *testing.T) {
	// Reordered fields are a different delivery; only byte-identical bodies
	// collide to the same key.
	a := DeriveKey([]byte(`{"a":1,"b":2}`))
	b := DeriveKey([]byte(`{"b":2,"a":1}`))
	if a == b {
		t.Fatalf("expected distinct keys for distinct byte sequences")
	}
}

func TestDeriveKey_IgnoresBlankIdentifiers(t *testing.T) {
	key := DeriveKey([]byte(`{"invoice_id":"  ","order_id":null}`))
	if !strings.HasPrefix(key, hashedKeyPrefix+":") {
		t.Fatalf("expected blank identifiers to fall back to hashing, got %q", key)
	}
}

func TestDeriveKey_NonJSONBody(t *testing.T) {
	key := DeriveKey([]byte("plain text payload"))
	if !strings.HasPrefix(key, hashedKeyPrefix+":") {
		t.Fatalf("expected hashed key for non-JSON body, got %q", key)
	}
}
