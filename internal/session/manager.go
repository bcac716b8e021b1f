package session

import (
	"context"

	"noticeboard/internal/api"
)

// Backend endpoints, relative to the API base URL
const (
	LoginPath    = "/auth/login/"
	RegisterPath = "/auth/register/"
	ProfilePath  = "/auth/profile/"
)

// API is the subset of the HTTP client the session actions need
type API interface {
	Get(ctx context.Context, path string) (*api.Response, error)
	Post(ctx context.Context, path string, body any) (*api.Response, error)
	Patch(ctx context.Context, path string, body any) (*api.Response, error)
}

// Manager defines the session accessors and the actions that change the session.
// Errors from the backend are returned as produced by the API client; nothing is retried.
// Concurrent actions are not serialized: whichever response is committed last wins.
//
// Actions return the decoded response body: an api.Payload for a JSON object, otherwise
// the bare JSON value. A body that is not an object is treated as carrying no fields.
// Request bodies may be any JSON-encodable value or an *api.Form.
type Manager interface {
	IsAuthenticated() bool
	CurrentUser() User
	Login(ctx context.Context, credentials any) (any, error)
	Register(ctx context.Context, form any) (any, error)
	UpdateProfile(ctx context.Context, form any) (any, error)
	FetchProfile(ctx context.Context) (any, error)
	Logout()
}

// manager implements Manager
type manager struct {
	store     *Store
	api       API
	extractor Extractor
}

// ManagerOption configures a Manager
type ManagerOption func(*manager)

// WithExtractor overrides the token/user field lists
func WithExtractor(e Extractor) ManagerOption {
	return func(m *manager) {
		m.extractor = e
	}
}

// NewManager creates a Manager over store, sending requests through client
func NewManager(store *Store, client API, opts ...ManagerOption) Manager {
	m := &manager{
		store:     store,
		api:       client,
		extractor: DefaultExtractor,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *manager) IsAuthenticated() bool {
	return m.store.IsAuthenticated()
}

func (m *manager) CurrentUser() User {
	return m.store.CurrentUser()
}

// Login authenticates and always commits the extracted token and user, even when the
// response carried neither
func (m *manager) Login(ctx context.Context, credentials any) (any, error) {
	body, err := decode(m.api.Post(ctx, LoginPath, credentials))
	if err != nil {
		return nil, err
	}

	payload := asPayload(body)
	token := m.extractor.Token(payload)
	user := m.extractor.User(payload)
	m.store.SetAuth(token, user)

	m.store.logger.Info("Logged in",
		"token_present", token != "",
		"user_id", user.ID(),
	)
	return body, nil
}

// Register creates an account. The session is only committed when the response carried
// a token or a user, since some deployments require a separate login afterwards.
func (m *manager) Register(ctx context.Context, form any) (any, error) {
	body, err := decode(m.api.Post(ctx, RegisterPath, form))
	if err != nil {
		return nil, err
	}

	payload := asPayload(body)
	token := m.extractor.Token(payload)
	user := m.extractor.User(payload)
	if token != "" || user != nil {
		m.store.SetAuth(token, user)
	}

	m.store.logger.Info("Registered",
		"session_committed", token != "" || user != nil,
		"user_id", user.ID(),
	)
	return body, nil
}

// UpdateProfile applies a partial update and replaces the current user. The token is
// left untouched.
func (m *manager) UpdateProfile(ctx context.Context, form any) (any, error) {
	body, err := decode(m.api.Patch(ctx, ProfilePath, form))
	if err != nil {
		return nil, err
	}

	m.store.SetCurrentUser(profileUser(body))
	return body, nil
}

// FetchProfile reloads the current user from the backend
func (m *manager) FetchProfile(ctx context.Context) (any, error) {
	body, err := decode(m.api.Get(ctx, ProfilePath))
	if err != nil {
		return nil, err
	}

	m.store.SetCurrentUser(profileUser(body))
	return body, nil
}

// Logout clears the session locally. No request is sent.
func (m *manager) Logout() {
	m.store.ClearAuth()
	m.store.logger.Info("Logged out")
}

// profileUser returns the "user" object when the response wraps one, else the whole body.
// A body that is not a JSON object cannot be a User and clears the current user.
func profileUser(body any) User {
	payload := asPayload(body)
	if u := asUser(payload["user"]); u != nil {
		return u
	}
	if payload == nil {
		return nil
	}
	return User(payload)
}

func asPayload(body any) api.Payload {
	payload, _ := body.(api.Payload)
	return payload
}

func decode(resp *api.Response, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return resp.Value(), nil
}
