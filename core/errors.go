package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorBadInput              = "FULFILLMENT_BAD_INPUT"
	ErrorUnauthorized          = "FULFILLMENT_UNAUTHORIZED"
	ErrorDuplicateInFlight     = "FULFILLMENT_DUPLICATE_IN_FLIGHT"
	ErrorPreviousAttemptFailed = "FULFILLMENT_PREVIOUS_ATTEMPT_FAILED"
	ErrorOrderRejected         = "PROVISIONING_ORDER_REJECTED"
	ErrorQueryRejected         = "PROVISIONING_QUERY_REJECTED"
	ErrorNetworkFailure        = "PROVISIONING_NETWORK_FAILURE"
	ErrorTimeout               = "PROVISIONING_TIMEOUT"
	ErrorInternal              = "FULFILLMENT_INTERNAL_ERROR"
)

// MapError normalizes any error into an enveloped *goerrors.Error carrying an
// HTTP status code and a machine-readable text code. Provisioning failures and
// ledger conflict states keep their own text codes; everything unrecognized
// becomes an internal error.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newCoreError(err.Error(), goerrors.CategoryAuth, ErrorUnauthorized)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newCoreError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newCoreError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = httpStatusForCategory(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorUnauthorized
	case goerrors.CategoryConflict:
		return ErrorDuplicateInFlight
	default:
		return ErrorInternal
	}
}

func httpStatusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	default:
		// Conflict states deliberately surface as 500: the webhook sender
		// retries on any 5xx and must never treat an in-flight or failed
		// fulfillment as delivered.
		return http.StatusInternalServerError
	}
}
