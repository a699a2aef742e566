package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/probelink/probelink/internal/service"
)

func TestSessionAuthRejectsMissingToken(t *testing.T) {
	store := service.NewSessionStore(service.SessionStoreConfig{})
	h := SessionAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var body struct {
		Ok    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Ok || body.Error != "unauthorized" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestSessionAuthPassesSessionThroughContext(t *testing.T) {
	store := service.NewSessionStore(service.SessionStoreConfig{TrustedDeviceEnabled: true})
	token, _ := store.Login(service.LoginMetadata{DeviceID: "home-laptop"})

	called := false
	h := SessionAuth(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			t.Fatal("session missing from context")
		}
		if sess.Token != token || !sess.IsTrusted {
			t.Fatalf("unexpected session %+v", sess)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TokenHeader, token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler should run for a valid token")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSessionFromContextAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := SessionFromContext(req.Context()); ok {
		t.Fatal("no session should be present on a bare context")
	}
}
