// Package proxy forwards browser calls to the analysis backend. The backend
// has no CORS configuration of its own, so the app fronts the two endpoints
// the browser hits directly and relays status and body untouched.
package proxy

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/clickmoment/clickmoment/internal/httputil"
)

type Handler struct {
	backendURL string
	httpClient *http.Client
}

// NewHandler fronts the analysis backend at backendURL. An empty URL is
// tolerated at construction and reported per request, so the rest of the
// app still serves when analysis is unconfigured.
func NewHandler(backendURL string) *Handler {
	return &Handler{
		backendURL: backendURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// GenerateThumbnails forwards POST /api/thumbnails/generate.
func (h *Handler) GenerateThumbnails(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, "/thumbnails/generate")
}

// RefreshFrameURLs forwards POST /api/refresh-frame-urls.
func (h *Handler) RefreshFrameURLs(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, "/refresh-frame-urls")
}

func (h *Handler) forward(w http.ResponseWriter, r *http.Request, path string) {
	writeCORSHeaders(w)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.backendURL == "" {
		httputil.WriteError(w, http.StatusInternalServerError, "analysis backend URL is not configured")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, h.backendURL+path, bytes.NewReader(body))
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to build backend request")
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if auth := r.Header.Get("Authorization"); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		slog.Error("proxy: backend call failed", "path", path, "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "analysis backend is unreachable")
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadGateway, "failed to read backend response")
		return
	}

	httputil.WriteProxied(w, resp.StatusCode, respBody)
}

func writeCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}
