package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/homelink/internal/infrastructure/database"
)

// signToken mints an HS256 token with the given expiry for tests.
func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func newTokenStore(t *testing.T) *SQLiteTokenStore {
	t.Helper()
	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "homelink.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLiteTokenStore(db.DB)
}

func TestLoginStoresAndAttachesToken(t *testing.T) {
	token := signToken(t, time.Now().Add(time.Hour))

	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			var creds map[string]string
			if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
				t.Errorf("decoding credentials: %v", err)
			}
			if creds["username"] != "admin" || creds["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(LoginResult{
				Status: "ok", Token: token, Username: "admin", Role: "admin",
			})
		case "/api/rooms":
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string][]string{"rooms": {"Salón", "Entrada"}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)

	result, err := client.Login(context.Background(), "admin", "secret")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if result.Token != token || result.Role != "admin" {
		t.Errorf("LoginResult = %+v", result)
	}
	if client.Username() != "admin" {
		t.Errorf("Username() = %q, want admin", client.Username())
	}

	rooms, err := client.Rooms(context.Background())
	if err != nil {
		t.Fatalf("Rooms() error: %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("Rooms() = %v, want 2 rooms", rooms)
	}
	if gotAuth != "Bearer "+token {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestDevicesConvertsWireForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/devices" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.URL.Query().Get("type"); got != "camera" {
			t.Errorf("type query = %q, want camera", got)
		}
		w.Write([]byte(`[{"id":"cam_1","name":"Cam","type":"camera","room":"Entrada","status":"true","value":"0","color":""}]`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	records, err := client.Devices(context.Background(), "camera")
	if err != nil {
		t.Fatalf("Devices() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].ID != "cam_1" || !records[0].Status {
		t.Errorf("record = %+v", records[0])
	}
}

func TestControlRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["deviceId"] != "light_1" || body["command"] != "SET_VALUE" || body["value"] != "50" {
			t.Errorf("control body = %v", body)
		}
		json.NewEncoder(w).Encode(ControlResult{Status: "ok", NewValue: "50"})
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	result, err := client.Control(context.Background(), "light_1", "SET_VALUE", "50")
	if err != nil {
		t.Fatalf("Control() error: %v", err)
	}
	if result.NewValue != "50" {
		t.Errorf("NewValue = %q, want 50", result.NewValue)
	}
}

func TestServerMessageSurfacesInError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"device is busy"}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	_, err := client.Control(context.Background(), "d", "ON", "")
	if err == nil {
		t.Fatal("expected error")
	}

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("error type = %T, want *ServerError", err)
	}
	if serverErr.Message != "device is busy" || serverErr.StatusCode != http.StatusConflict {
		t.Errorf("ServerError = %+v", serverErr)
	}
}

func TestUnauthorizedSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	_, err := client.Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
}

func TestEnergyReturnsRawJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("type"); got != EnergySummary {
			t.Errorf("type = %q, want summary", got)
		}
		w.Write([]byte(`{"totalKwh":12.5}`))
	}))
	defer srv.Close()

	client := New(Config{BaseURL: srv.URL}, nil)
	raw, err := client.Energy(context.Background(), EnergySummary)
	if err != nil {
		t.Fatalf("Energy() error: %v", err)
	}
	var payload map[string]float64
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["totalKwh"] != 12.5 {
		t.Errorf("totalKwh = %v", payload["totalKwh"])
	}
}

func TestTokenPersistenceAcrossClients(t *testing.T) {
	store := newTokenStore(t)
	token := signToken(t, time.Now().Add(time.Hour))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(LoginResult{Status: "ok", Token: token, Username: "admin"})
	}))
	defer srv.Close()

	first := New(Config{BaseURL: srv.URL}, store)
	if _, err := first.Login(context.Background(), "admin", "secret"); err != nil {
		t.Fatalf("Login() error: %v", err)
	}

	// A fresh client against the same server restores the session.
	second := New(Config{BaseURL: srv.URL}, store)
	restored, err := second.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession() error: %v", err)
	}
	if !restored {
		t.Fatal("session not restored")
	}
	if second.Username() != "admin" {
		t.Errorf("Username() = %q, want admin", second.Username())
	}

	// Logout removes the persisted token.
	if err := second.Logout(context.Background()); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	third := New(Config{BaseURL: srv.URL}, store)
	restored, err = third.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession() after logout error: %v", err)
	}
	if restored {
		t.Error("session restored after logout")
	}
}

func TestRestoreSessionDiscardsExpiredToken(t *testing.T) {
	store := newTokenStore(t)
	expired := signToken(t, time.Now().Add(-time.Hour))

	if err := store.Save(context.Background(), "http://server", "admin", expired); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	client := New(Config{BaseURL: "http://server"}, store)
	restored, err := client.RestoreSession(context.Background())
	if err != nil {
		t.Fatalf("RestoreSession() error: %v", err)
	}
	if restored {
		t.Error("expired token restored")
	}

	// The dead token is removed from the store.
	_, token, err := store.Load(context.Background(), "http://server")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if token != "" {
		t.Error("expired token still persisted")
	}
}

func TestTokenExpired(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"valid", signToken(t, time.Now().Add(time.Hour)), false},
		{"expired", signToken(t, time.Now().Add(-time.Minute)), true},
		{"garbage", "not-a-jwt", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expired, _ := TokenExpired(tt.token, time.Now())
			if expired != tt.expired {
				t.Errorf("TokenExpired() = %v, want %v", expired, tt.expired)
			}
		})
	}
}
