package api

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func TestNormalizeError_UnwrapsStructuredBody(t *testing.T) {
	err := &StatusError{StatusCode: http.StatusBadRequest, Body: []byte(`{"detail":"bad"}`)}

	got := NormalizeError(err)

	body, ok := got.(ErrorBody)
	if !ok {
		t.Fatalf("Expected ErrorBody, got %T", got)
	}
	if !reflect.DeepEqual(map[string]any(body), map[string]any{"detail": "bad"}) {
		t.Errorf("Expected exactly {detail: bad}, got %v", body)
	}
	if body.Error() != "bad" {
		t.Errorf("Expected message bad, got %q", body.Error())
	}
}

func TestNormalizeError_PassesThroughOriginal(t *testing.T) {
	transportErr := errors.New("dial tcp: connection refused")
	if got := NormalizeError(transportErr); got != transportErr {
		t.Errorf("Expected the original error, got %v", got)
	}

	for _, body := range []string{"", "<html>Bad Gateway</html>", "null", `""`, "false", "0"} {
		statusErr := &StatusError{StatusCode: http.StatusBadGateway, Body: []byte(body)}
		if got := NormalizeError(statusErr); got != error(statusErr) {
			t.Errorf("body %q: expected the original StatusError, got %v", body, got)
		}
	}
}

func TestNormalizeError_UnwrapsNonObjectBodies(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    error
		wantMsg string
	}{
		{"list", `["Email already registered."]`, ErrorList{"Email already registered."}, "Email already registered."},
		{"empty list", `[]`, ErrorList{}, ""},
		{"mixed list", `["a",{"b":1}]`, ErrorList{"a", map[string]any{"b": float64(1)}}, `["a",{"b":1}]`},
		{"string", `"Service unavailable"`, ErrorMessage("Service unavailable"), "Service unavailable"},
		{"number", `42`, ErrorMessage("42"), "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &StatusError{StatusCode: http.StatusBadRequest, Body: []byte(tt.body)}

			got := NormalizeError(err)

			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Expected %#v, got %#v", tt.want, got)
			}
			if got.Error() != tt.wantMsg {
				t.Errorf("Expected message %q, got %q", tt.wantMsg, got.Error())
			}
		})
	}
}

func TestErrorBody_Error(t *testing.T) {
	tests := []struct {
		name string
		body ErrorBody
		want string
	}{
		{"detail", ErrorBody{"detail": "Logged out."}, "Logged out."},
		{"error", ErrorBody{"error": "Invalid or missing token"}, "Invalid or missing token"},
		{"non field", ErrorBody{"non_field_errors": []any{"Invalid email or password."}}, "Invalid email or password."},
		{"field map", ErrorBody{"username": []any{"taken"}, "email": []any{"invalid", "required"}}, "email: invalid, required; username: taken"},
		{"fallback", ErrorBody{"code": float64(7)}, `{"code":7}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.body.Error(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStatusError_Error(t *testing.T) {
	err := &StatusError{StatusCode: http.StatusNotFound}
	if err.Error() != "request failed with status 404 Not Found" {
		t.Errorf("Unexpected message %q", err.Error())
	}
}
