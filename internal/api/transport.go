package api

import (
	"net/http"

	"github.com/google/uuid"
)

// TokenSource provides the current bearer credential. An empty string means none.
type TokenSource interface {
	Token() string
}

// RequestInterceptor augments an outbound request before it is sent. It cannot fail.
type RequestInterceptor func(req *http.Request)

// AttachBearer sets "Authorization: Bearer <token>" unless token is empty or the
// request already carries an Authorization header
func AttachBearer(req *http.Request, token string) {
	if token == "" || req.Header.Get("Authorization") != "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

// BearerTransport is an http.RoundTripper that attaches the credential from Tokens to
// every request passing through it. The caller's request is never modified.
type BearerTransport struct {
	Base   http.RoundTripper
	Tokens TokenSource
}

// RoundTrip implements http.RoundTripper
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := t.Tokens.Token()
	if token == "" || req.Header.Get("Authorization") != "" {
		return base.RoundTrip(req)
	}

	clone := req.Clone(req.Context())
	AttachBearer(clone, token)
	return base.RoundTrip(clone)
}

// RequestID sets a unique X-Request-ID header for correlation with server logs
func RequestID() RequestInterceptor {
	return func(req *http.Request) {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.New().String())
		}
	}
}
