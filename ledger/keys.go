package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// identifierFields are the accepted order-identifier field names, in priority
// order, matching what the webhook sender embeds in the event body.
var identifierFields = []string{"invoice_id", "order_id"}

const hashedKeyPrefix = "body"

// DeriveKey maps an inbound event body to its deduplication key. It prefers a
// sender-assigned order identifier; without one it hashes the raw bytes as
// received, so byte-identical retried deliveries collide to the same key even
// when a JSON reserialization would reorder fields or change whitespace.
func DeriveKey(rawBody []byte) string {
	payload := map[string]any{}
	if err := json.Unmarshal(rawBody, &payload); err == nil {
		for _, field := range identifierFields {
			if value := readIdentifier(payload[field]); value != "" {
				return field + ":" + value
			}
		}
	}
	digest := sha256.Sum256(rawBody)
	return hashedKeyPrefix + ":" + hex.EncodeToString(digest[:16])
}

func readIdentifier(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(typed)
	case float64:
		if typed == float64(int64(typed)) {
			return fmt.Sprintf("%d", int64(typed))
		}
		return fmt.Sprintf("%v", typed)
	default:
		return strings.TrimSpace(fmt.Sprint(typed))
	}
}
