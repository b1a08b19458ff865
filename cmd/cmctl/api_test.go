package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clickmoment/clickmoment/internal/profile"
)

func newTestAPIClient(serverURL string) *apiClient {
	return newAPIClient(&Config{ServerURL: serverURL, AccessToken: "test-token"})
}

func TestAPIClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	if _, err := newTestAPIClient(srv.URL).ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q, want Bearer test-token", gotAuth)
	}
}

func TestAPIClientGetProjectNotFoundReturnsNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"project not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := newTestAPIClient(srv.URL).GetProject(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if p != nil {
		t.Errorf("expected nil project, got %+v", p)
	}
}

func TestAPIClientDecodesErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "name must be 120 characters or fewer"})
	}))
	defer srv.Close()

	_, err := newTestAPIClient(srv.URL).ListProjects(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "name must be 120 characters or fewer") {
		t.Errorf("error %q does not carry the server message", err)
	}
}

func TestAPIClientUnauthorizedSuggestsLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestAPIClient(srv.URL).ListProjects(context.Background())
	if err == nil || !strings.Contains(err.Error(), "cmctl login") {
		t.Errorf("error %v should point at cmctl login", err)
	}
}

func TestAPIClientLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["email"] != "creator@example.com" || creds["password"] != "hunter2!" {
			t.Errorf("unexpected credentials %v", creds)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh-token"})
	}))
	defer srv.Close()

	client := newAPIClient(&Config{ServerURL: srv.URL})
	token, err := client.Login(context.Background(), "creator@example.com", "hunter2!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "fresh-token" {
		t.Errorf("token = %q, want fresh-token", token)
	}
	if client.token != "fresh-token" {
		t.Errorf("client kept token %q after login", client.token)
	}
}

func TestAPIClientLoginRefreshesAnalysisToken(t *testing.T) {
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"access_token": "fresh-token"})
	}))
	defer authSrv.Close()

	var backendAuth string
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		backendAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]string{"signed_url": "https://stub/play"})
	}))
	defer backendSrv.Close()

	client := newAPIClient(&Config{ServerURL: authSrv.URL, AnalysisURL: backendSrv.URL, AccessToken: "stale-token"})
	if _, err := client.Login(context.Background(), "creator@example.com", "pw"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := client.PlaybackURL(context.Background(), "videos/u/p/clip.mp4"); err != nil {
		t.Fatalf("PlaybackURL: %v", err)
	}
	if backendAuth != "Bearer fresh-token" {
		t.Errorf("backend Authorization = %q, want the fresh session token", backendAuth)
	}
}

func TestAPIClientMeDecodesUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"userId": "user-42", "email": "creator@example.com"})
	}))
	defer srv.Close()

	id, err := newTestAPIClient(srv.URL).Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if id != "user-42" {
		t.Errorf("user id = %q, want user-42", id)
	}
}

func TestAPIClientLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/profile/limits" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"allowed": true, "remaining": -1})
	}))
	defer srv.Close()

	allowed, remaining, err := newTestAPIClient(srv.URL).Limits(context.Background())
	if err != nil {
		t.Fatalf("Limits: %v", err)
	}
	if !allowed || remaining != -1 {
		t.Errorf("got allowed=%v remaining=%d, want true/-1", allowed, remaining)
	}
}

func TestAPIClientIncrementAnalysisCount(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := newTestAPIClient(srv.URL).IncrementAnalysisCount(context.Background()); err != nil {
		t.Fatalf("IncrementAnalysisCount: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/profile/usage" {
		t.Errorf("got %s %s, want POST /api/profile/usage", gotMethod, gotPath)
	}
}

func TestAPIClientProfileComplete(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		profile *profile.Profile
		want    bool
	}{
		{"no profile", http.StatusNotFound, nil, false},
		{"partial profile", http.StatusOK, &profile.Profile{Stage: "growing"}, false},
		{"complete profile", http.StatusOK, &profile.Profile{Stage: "growing", ContentNiche: "tech"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.profile == nil {
					http.Error(w, `{"error":"profile not found"}`, tt.status)
					return
				}
				json.NewEncoder(w).Encode(tt.profile)
			}))
			defer srv.Close()

			complete, err := newTestAPIClient(srv.URL).ProfileComplete(context.Background())
			if err != nil {
				t.Fatalf("ProfileComplete: %v", err)
			}
			if complete != tt.want {
				t.Errorf("complete = %v, want %v", complete, tt.want)
			}
		})
	}
}

func TestAPIClientPlaybackURLWithoutBackend(t *testing.T) {
	client := newAPIClient(&Config{ServerURL: "http://localhost:8080"})
	if _, err := client.PlaybackURL(context.Background(), "videos/u/p/clip.mp4"); err == nil {
		t.Error("expected an error when no analysis backend is configured")
	}
}
