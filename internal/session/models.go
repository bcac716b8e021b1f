package session

import (
	"maps"
	"strconv"

	"noticeboard/internal/api"
)

// User is the current user's profile as returned by the backend. Its shape is not fixed.
type User map[string]any

// ID returns the user's id rendered as a string, or "" when absent.
// The backend sends either user_id or id.
func (u User) ID() string {
	for _, field := range []string{"user_id", "id"} {
		switch v := u[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

// String returns a string field, or "" when absent or not a string
func (u User) String(field string) string {
	s, _ := u[field].(string)
	return s
}

// Clone returns a shallow copy
func (u User) Clone() User {
	return maps.Clone(u)
}

// Extractor pulls the credential and the user out of an auth response. Fields are tried
// in order; the first present, non-empty value wins.
type Extractor struct {
	TokenFields []string
	UserFields  []string
}

// DefaultExtractor matches the token and user fields the backend and its auth
// libraries are known to emit
var DefaultExtractor = Extractor{
	TokenFields: []string{"token", "access", "key"},
	UserFields:  []string{"user", "profile"},
}

// Token returns the first non-empty string or non-zero number among TokenFields.
// Numbers are formatted without exponent or trailing zeros.
func (e Extractor) Token(p api.Payload) string {
	for _, field := range e.TokenFields {
		switch v := p[field].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			if v != 0 {
				return strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	return ""
}

// User returns the first JSON object among UserFields
func (e Extractor) User(p api.Payload) User {
	for _, field := range e.UserFields {
		if u := asUser(p[field]); u != nil {
			return u
		}
	}
	return nil
}

func asUser(v any) User {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil
	}
	return User(m)
}
