package fulfillment

import (
	"encoding/json"

	"github.com/maskia-arch/esimconnect/core"
	"github.com/maskia-arch/esimconnect/provisioning"
)

type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func renderErrorBody(textCode string, message string) string {
	payload, err := json.Marshal(errorEnvelope{
		Error: errorDetail{Code: textCode, Message: message},
	})
	if err != nil {
		return `{"error":{"code":"` + core.ErrorInternal + `","message":"An unexpected error occurred"}}`
	}
	return string(payload)
}

// textCodeForProvisioning maps a provisioning failure kind onto the error code
// surfaced in the response envelope.
func textCodeForProvisioning(err error) string {
	kind, ok := provisioning.KindOf(err)
	if !ok {
		return core.ErrorInternal
	}
	switch kind {
	case provisioning.FailureOrderRejected:
		return core.ErrorOrderRejected
	case provisioning.FailureQueryRejected:
		return core.ErrorQueryRejected
	case provisioning.FailureNetwork:
		return core.ErrorNetworkFailure
	case provisioning.FailureTimeout:
		return core.ErrorTimeout
	default:
		return core.ErrorInternal
	}
}
