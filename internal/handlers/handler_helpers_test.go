package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int) ErrorResponse {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d", status, rr.Code)
	}
	if ct := rr.Result().Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("expected content type application/json, got %q", ct)
	}

	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return response
}

func assertErrorResponse(t *testing.T, rr *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if response := decodeErrorResponse(t, rr, status); response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
}

func assertErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, message, code string) {
	t.Helper()
	response := decodeErrorResponse(t, rr, status)
	if response.Error != message {
		t.Fatalf("expected error %q, got %q", message, response.Error)
	}
	if response.Code != code {
		t.Fatalf("expected code %q, got %q", code, response.Code)
	}
}
