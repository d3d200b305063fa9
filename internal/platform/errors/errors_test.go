package errors

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := New(CodeOpenRateLimited, "caller is rate limited")
	wrapped := fmt.Errorf("open pack: %w", err)

	if !errors.Is(wrapped, New(CodeOpenRateLimited, "different message")) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(wrapped, New(CodeOperationPaused, "caller is rate limited")) {
		t.Fatal("expected errors.Is to reject different codes")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeOracleUnavailable, "oracle request failed", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be traversable")
	}
	if got := GetCode(err); got != CodeOracleUnavailable {
		t.Fatalf("expected code %s, got %s", CodeOracleUnavailable, got)
	}
}

func TestGetCodeUnknownForPlainErrors(t *testing.T) {
	if got := GetCode(errors.New("plain")); got != CodeUnknown {
		t.Fatalf("expected %s, got %s", CodeUnknown, got)
	}
	if GetMetadata(errors.New("plain")) != nil {
		t.Fatal("expected nil metadata for plain error")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodePaymentInsufficient, http.StatusPaymentRequired},
		{CodeOpenRateLimited, http.StatusTooManyRequests},
		{CodeOperationPaused, http.StatusLocked},
		{CodeRequestAlreadyFulfilled, http.StatusConflict},
		{CodeRequestUnknown, http.StatusNotFound},
		{CodeEmissionCapExceeded, http.StatusConflict},
		{CodeOracleUnavailable, http.StatusBadGateway},
		{CodeUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Fatalf("code %s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestHandleErrorWritesDomainError(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, WithMetadata(CodeDeckUnknown, "deck not found", map[string]string{"deck": "starter"}))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json content type, got %q", ct)
	}
}

func TestHandleErrorMasksUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	HandleError(w, errors.New("sql: database is closed"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := w.Body.String()
	if body == "" {
		t.Fatal("expected response body")
	}
	if strings.Contains(body, "database is closed") {
		t.Fatalf("expected internal message to be masked, got %q", body)
	}
}
