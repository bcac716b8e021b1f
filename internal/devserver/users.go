package devserver

import (
	"crypto/subtle"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when email and password do not match
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken is returned when a bearer token is unknown
	ErrInvalidToken = errors.New("invalid or missing token")
	// ErrUserNotFound is returned for an unknown user_id
	ErrUserNotFound = errors.New("user not found")
)

// readOnlyFields cannot be changed through a profile update
var readOnlyFields = map[string]bool{
	"user_id":       true,
	"password":      true,
	"date_joined":   true,
	"profile_image": true,
}

type account struct {
	password string
	profile  map[string]any
	image    *upload
}

// userStore is an in-memory user table with token auth
type userStore struct {
	mu       sync.RWMutex
	accounts map[string]*account // by user_id
	byEmail  map[string]string
	tokens   map[string]string // token -> user_id
}

func newUserStore() *userStore {
	return &userStore{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		tokens:   make(map[string]string),
	}
}

// create validates a registration form and stores the account.
// It returns DRF-style field errors on validation failure.
func (s *userStore) create(form map[string]any) (map[string]any, map[string][]string) {
	email := strings.ToLower(strings.TrimSpace(str(form["email"])))
	username := strings.TrimSpace(str(form["username"]))
	password := str(form["password"])

	fieldErrs := make(map[string][]string)
	if email == "" {
		fieldErrs["email"] = append(fieldErrs["email"], "This field is required.")
	} else if !strings.Contains(email, "@") {
		fieldErrs["email"] = append(fieldErrs["email"], "Enter a valid email address.")
	}
	if username == "" {
		fieldErrs["username"] = append(fieldErrs["username"], "This field is required.")
	}
	if len(password) < 8 {
		fieldErrs["password"] = append(fieldErrs["password"], "Ensure this field has at least 8 characters.")
	}
	if pw2, ok := form["password2"]; ok && str(pw2) != password {
		fieldErrs["password2"] = append(fieldErrs["password2"], "Passwords do not match.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; email != "" && taken {
		fieldErrs["email"] = append(fieldErrs["email"], "A user with this email already exists.")
	}
	for _, acc := range s.accounts {
		if strings.EqualFold(str(acc.profile["username"]), username) && username != "" {
			fieldErrs["username"] = append(fieldErrs["username"], "A user with this username already exists.")
			break
		}
	}
	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}

	id := uuid.New().String()
	profile := map[string]any{
		"user_id":       id,
		"email":         email,
		"username":      username,
		"first_name":    str(form["first_name"]),
		"last_name":     str(form["last_name"]),
		"phone":         str(form["phone"]),
		"profile_image": nil,
		"date_joined":   time.Now().UTC().Format(time.RFC3339),
	}

	s.accounts[id] = &account{password: password, profile: profile}
	s.byEmail[email] = id

	return cloneProfile(profile), nil
}

// authenticate checks credentials and issues a fresh token. identifier is an email
// address or a username.
func (s *userStore) authenticate(identifier, password string) (string, map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.lookupLocked(identifier)
	if !ok {
		return "", nil, ErrInvalidCredentials
	}
	acc := s.accounts[id]
	if subtle.ConstantTimeCompare([]byte(acc.password), []byte(password)) != 1 {
		return "", nil, ErrInvalidCredentials
	}

	token := s.issueTokenLocked(id)
	return token, cloneProfile(acc.profile), nil
}

func (s *userStore) lookupLocked(identifier string) (string, bool) {
	identifier = strings.TrimSpace(identifier)
	if id, ok := s.byEmail[strings.ToLower(identifier)]; ok {
		return id, true
	}
	for id, acc := range s.accounts {
		if identifier != "" && strings.EqualFold(str(acc.profile["username"]), identifier) {
			return id, true
		}
	}
	return "", false
}

// issueToken creates a new token for an existing user
func (s *userStore) issueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *userStore) issueTokenLocked(userID string) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	s.tokens[token] = userID
	return token
}

// byToken resolves a bearer token to its user's profile
func (s *userStore) byToken(token string) (string, map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return "", nil, ErrInvalidToken
	}
	return id, cloneProfile(s.accounts[id].profile), nil
}

// update merges writable fields of form into the user's profile
func (s *userStore) update(userID string, form map[string]any) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userID]
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if readOnlyFields[key] {
			continue
		}
		if key == "email" {
			// email is the login identifier; keep the index in sync
			email := strings.ToLower(strings.TrimSpace(str(form[key])))
			if email == "" {
				continue
			}
			delete(s.byEmail, str(acc.profile["email"]))
			s.byEmail[email] = userID
			acc.profile["email"] = email
			continue
		}
		acc.profile[key] = form[key]
	}

	return cloneProfile(acc.profile)
}

// setImage stores the user's profile image and points profile_image at it
func (s *userStore) setImage(userID string, img *upload) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userID]
	acc.image = img
	acc.profile["profile_image"] = "/auth/profile/image/" + userID + "/"
	return cloneProfile(acc.profile)
}

// image returns the user's profile image, nil when none was uploaded
func (s *userStore) image(userID string) (*upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return acc.image, nil
}

// revoke invalidates a token
func (s *userStore) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func cloneProfile(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
