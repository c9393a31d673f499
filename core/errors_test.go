package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestMapError_NilStaysNil(t *testing.T) {
	if got := MapError(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestMapError_PreservesRichErrors(t *testing.T) {
	source := goerrors.New("order rejected by provider", goerrors.CategoryExternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorOrderRejected)

	mapped := MapError(fmt.Errorf("placing order: %w", source))
	if mapped.TextCode != ErrorOrderRejected {
		t.Fatalf("expected text code %s, got %s", ErrorOrderRejected, mapped.TextCode)
	}
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", mapped.Code)
	}
}

func TestMapError_FillsMissingEnvelopeFields(t *testing.T) {
	source := goerrors.New("replayed while processing", goerrors.CategoryConflict)

	mapped := MapError(source)
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("conflict must surface as 500, got %d", mapped.Code)
	}
	if mapped.TextCode != ErrorDuplicateInFlight {
		t.Fatalf("expected text code %s, got %s", ErrorDuplicateInFlight, mapped.TextCode)
	}
}

func TestMapError_ClassifiesPlainErrors(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{
			name:     "signature failure",
			err:      errors.New("webhook signature mismatch"),
			wantCode: http.StatusUnauthorized,
			wantText: ErrorUnauthorized,
		},
		{
			name:     "missing field",
			err:      errors.New("product code is required"),
			wantCode: http.StatusBadRequest,
			wantText: ErrorBadInput,
		},
		{
			name:     "invalid value",
			err:      errors.New("invalid quantity"),
			wantCode: http.StatusBadRequest,
			wantText: ErrorBadInput,
		},
		{
			name:     "anything else",
			err:      errors.New("connection reset by peer"),
			wantCode: http.StatusInternalServerError,
			wantText: ErrorInternal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if mapped == nil {
				t.Fatal("expected a mapped error")
			}
			if mapped.Code != tc.wantCode {
				t.Fatalf("expected status %d, got %d", tc.wantCode, mapped.Code)
			}
			if mapped.TextCode != tc.wantText {
				t.Fatalf("expected text code %s, got %s", tc.wantText, mapped.TextCode)
			}
		})
	}
}
