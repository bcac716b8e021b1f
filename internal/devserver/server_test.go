package devserver

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestHandler(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return New(cfg, nil).RegisterRoutes()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

func doMultipart(t *testing.T, h http.Handler, method, path, token string, fields map[string]string, image []byte) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	if image != nil {
		part, err := mw.CreateFormFile("profile_image", "avatar.png")
		if err != nil {
			t.Fatalf("Failed to create file part: %v", err)
		}
		part.Write(image)
	}
	mw.Close()

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

var alice = map[string]any{
	"email":    "alice@example.com",
	"username": "alice",
	"password": "correct-horse",
}

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())

	w, resp := doJSON(t, h, http.MethodPost, "/auth/register/", "", alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %v", w.Code, resp)
	}
	if resp["token"] == "" || resp["user"] == nil {
		t.Errorf("Expected token and user in register response, got %v", resp)
	}

	w, resp = doJSON(t, h, http.MethodPost, "/auth/login/", "", map[string]any{
		"username": "alice",
		"password": "correct-horse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", w.Code, resp)
	}
	user := resp["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Errorf("Expected alice's profile, got %v", user)
	}
	if _, leaked := user["password"]; leaked {
		t.Error("Password must not be part of the profile")
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())
	doJSON(t, h, http.MethodPost, "/auth/register/", "", alice)

	w, resp := doJSON(t, h, http.MethodPost, "/auth/login/", "", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	errs, _ := resp["non_field_errors"].([]any)
	if len(errs) != 1 || errs[0] != "Invalid email or password." {
		t.Errorf("Unexpected error body %v", resp)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())
	doJSON(t, h, http.MethodPost, "/auth/register/", "", alice)

	w, resp := doJSON(t, h, http.MethodPost, "/auth/register/", "", map[string]any{
		"email":    "alice@example.com",
		"username": "",
		"password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	for _, field := range []string{"email", "username", "password"} {
		if _, ok := resp[field]; !ok {
			t.Errorf("Expected an error for %s, got %v", field, resp)
		}
	}
}

func TestProfile_RequiresToken(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())

	w, resp := doJSON(t, h, http.MethodGet, "/auth/profile/", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected status 401, got %d", w.Code)
	}
	if resp["error"] != "Invalid or missing token" {
		t.Errorf("Unexpected error body %v", resp)
	}

	w, _ = doJSON(t, h, http.MethodGet, "/auth/profile/", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for unknown token, got %d", w.Code)
	}
}

func TestProfile_UpdateAndLogout(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())
	_, reg := doJSON(t, h, http.MethodPost, "/auth/register/", "", alice)
	token := reg["token"].(string)

	w, resp := doJSON(t, h, http.MethodPatch, "/auth/profile/", token, map[string]any{
		"first_name": "Alice",
		"user_id":    "hijack",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", w.Code, resp)
	}
	if resp["first_name"] != "Alice" {
		t.Errorf("Expected first_name updated, got %v", resp)
	}
	if resp["user_id"] == "hijack" {
		t.Error("user_id must be read-only")
	}

	w, resp = doJSON(t, h, http.MethodPost, "/auth/logout/", token, nil)
	if w.Code != http.StatusOK || resp["detail"] != "Logged out." {
		t.Fatalf("Unexpected logout response %d %v", w.Code, resp)
	}

	w, _ = doJSON(t, h, http.MethodGet, "/auth/profile/", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected revoked token to be rejected, got %d", w.Code)
	}
}

func TestProfile_MultipartImage(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())
	png := []byte("\x89PNG\r\n\x1a\nfake")

	w, reg := doMultipart(t, h, http.MethodPost, "/auth/register/", "", map[string]string{
		"email":    "dana@example.com",
		"username": "dana",
		"password": "correct-horse",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %v", w.Code, reg)
	}
	user := reg["user"].(map[string]any)
	if user["profile_image"] != nil {
		t.Errorf("Expected no image yet, got %v", user["profile_image"])
	}

	w, resp := doMultipart(t, h, http.MethodPatch, "/auth/profile/", reg["token"].(string),
		map[string]string{"first_name": "Dana"}, png)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %v", w.Code, resp)
	}
	if resp["first_name"] != "Dana" {
		t.Errorf("Expected first_name updated, got %v", resp)
	}
	imageURL := "/auth/profile/image/" + user["user_id"].(string) + "/"
	if resp["profile_image"] != imageURL {
		t.Fatalf("Expected profile_image %q, got %v", imageURL, resp["profile_image"])
	}

	req := httptest.NewRequest(http.MethodGet, imageURL, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), png) {
		t.Errorf("Expected stored image, got %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %q", ct)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/profile/image/missing/", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown user, got %d", rec.Code)
	}
}

func TestConfig_AlternateFieldNames(t *testing.T) {
	h := newTestHandler(t, Config{
		TokenField:  "access",
		UserField:   "profile",
		WrapProfile: true,
	})

	w, resp := doJSON(t, h, http.MethodPost, "/auth/register/", "", alice)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d", w.Code)
	}
	if _, ok := resp["access"]; ok {
		t.Error("Expected no token when registration does not log in")
	}
	if resp["profile"] == nil {
		t.Errorf("Expected profile field, got %v", resp)
	}

	_, resp = doJSON(t, h, http.MethodPost, "/auth/login/", "", alice)
	token, _ := resp["access"].(string)
	if token == "" {
		t.Fatalf("Expected access token, got %v", resp)
	}

	_, resp = doJSON(t, h, http.MethodGet, "/auth/profile/", token, nil)
	if resp["user"] == nil {
		t.Errorf("Expected wrapped profile, got %v", resp)
	}
}

func TestRequestIDMiddleware_EchoesHeader(t *testing.T) {
	h := newTestHandler(t, DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-1" {
		t.Errorf("Expected X-Request-ID req-1, got %q", got)
	}
}
