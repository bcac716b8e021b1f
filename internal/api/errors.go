package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// StatusError is the transport-level error for a response outside the 2xx range
type StatusError struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// ServerError decodes the response body into the server's error payload. Any JSON value
// other than null, false, 0 or "" counts: objects become ErrorBody, arrays ErrorList and
// scalars ErrorMessage. An empty or non-JSON body returns nil.
func (e *StatusError) ServerError() error {
	data := bytes.TrimSpace(e.Body)
	if len(data) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}

	switch v := v.(type) {
	case map[string]any:
		return ErrorBody(v)
	case []any:
		return ErrorList(v)
	case string:
		if v == "" {
			return nil
		}
		return ErrorMessage(v)
	case float64:
		if v == 0 {
			return nil
		}
		return ErrorMessage(data)
	case bool:
		if !v {
			return nil
		}
		return ErrorMessage(data)
	default:
		return nil
	}
}

// ErrorBody is the server's structured error payload, surfaced to callers as-is.
// Typical shapes are {"detail": "..."}, {"error": "..."} and field maps such as
// {"email": ["already registered"], "non_field_errors": ["..."]}.
type ErrorBody map[string]any

func (b ErrorBody) Error() string {
	for _, key := range []string{"detail", "error", "message"} {
		if s, ok := b[key].(string); ok && s != "" {
			return s
		}
	}

	if msgs := b.Messages("non_field_errors"); len(msgs) > 0 {
		return strings.Join(msgs, "; ")
	}

	fields := make([]string, 0, len(b))
	for field := range b {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		if msgs := b.Messages(field); len(msgs) > 0 {
			parts = append(parts, field+": "+strings.Join(msgs, ", "))
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, "; ")
	}

	data, _ := json.Marshal(map[string]any(b))
	return string(data)
}

// Messages returns the string messages stored under field, whether the server sent a
// single string or a list
func (b ErrorBody) Messages(field string) []string {
	switch v := b[field].(type) {
	case string:
		return []string{v}
	case []any:
		msgs := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				msgs = append(msgs, s)
			}
		}
		return msgs
	default:
		return nil
	}
}

// ErrorList is a server error sent as a bare JSON array, e.g. ["Email already registered."]
type ErrorList []any

func (l ErrorList) Error() string {
	msgs := make([]string, 0, len(l))
	for _, item := range l {
		s, ok := item.(string)
		if !ok {
			data, _ := json.Marshal([]any(l))
			return string(data)
		}
		msgs = append(msgs, s)
	}
	return strings.Join(msgs, "; ")
}

// ErrorMessage is a server error sent as a bare JSON scalar
type ErrorMessage string

func (m ErrorMessage) Error() string {
	return string(m)
}

// NormalizeError unwraps a StatusError carrying a server error payload into that payload.
// Any other error, including network failures and empty, null or non-JSON bodies, is
// returned unchanged.
func NormalizeError(err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if serverErr := statusErr.ServerError(); serverErr != nil {
			return serverErr
		}
	}
	return err
}
