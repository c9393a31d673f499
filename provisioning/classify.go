package provisioning

import (
	"net/http"
	"strings"

	"github.com/maskia-arch/esimconnect/core"
)

// pendingErrorCode is the provider's recognized "order is still being
// provisioned" acknowledgement on the query endpoint.
const pendingErrorCode = "200010"

type pollOutcome int

const (
	outcomePending pollOutcome = iota
	outcomeTransient
	outcomeFatal
	outcomeIncomplete
	outcomeReady
)

func (o pollOutcome) String() string {
	switch o {
	case outcomePending:
		return "pending"
	case outcomeTransient:
		return "transient"
	case outcomeFatal:
		return "fatal"
	case outcomeIncomplete:
		return "incomplete"
	case outcomeReady:
		return "ready"
	default:
		return "unknown"
	}
}

type queryClassification struct {
	Outcome      pollOutcome
	ProviderCode string
	Message      string
	Artifacts    []core.Artifact
}

// classifyQuery maps one poll response to exactly one outcome. parsed is nil
// when the body could not be decoded; statusCode is zero only for transport
// failures, which the caller classifies before decoding.
func classifyQuery(statusCode int, parsed *queryResponse, quantity int) queryClassification {
	if parsed != nil && !parsed.Success && strings.TrimSpace(parsed.ErrorCode) == pendingErrorCode {
		return queryClassification{Outcome: outcomePending, ProviderCode: parsed.ErrorCode, Message: parsed.ErrorMsg}
	}
	if statusCode >= http.StatusInternalServerError {
		return queryClassification{Outcome: outcomeTransient}
	}
	if parsed == nil {
		// Parsed garbage from a 2xx usually means a proxy or provider hiccup;
		// burning an attempt keeps the loop bounded either way.
		if statusCode >= http.StatusBadRequest {
			return queryClassification{Outcome: outcomeFatal, Message: http.StatusText(statusCode)}
		}
		return queryClassification{Outcome: outcomeTransient}
	}
	if statusCode >= http.StatusBadRequest {
		return queryClassification{Outcome: outcomeFatal, ProviderCode: parsed.ErrorCode, Message: parsed.ErrorMsg}
	}
	if !parsed.Success && strings.TrimSpace(parsed.ErrorCode) != "" {
		return queryClassification{Outcome: outcomeFatal, ProviderCode: parsed.ErrorCode, Message: parsed.ErrorMsg}
	}

	ready := make([]core.Artifact, 0, quantity)
	for _, esim := range parsed.artifacts() {
		iccid := strings.TrimSpace(esim.ICCID)
		if iccid == "" {
			// An entry without an identifier is not a deliverable artifact.
			continue
		}
		ready = append(ready, core.Artifact{
			ICCID:     iccid,
			AccessURL: esim.accessURL(),
		})
		if len(ready) == quantity {
			break
		}
	}
	if len(ready) < quantity {
		return queryClassification{Outcome: outcomeIncomplete}
	}
	return queryClassification{Outcome: outcomeReady, Artifacts: ready}
}
