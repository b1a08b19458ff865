package project

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/clickmoment/clickmoment/internal/auth"
	"github.com/clickmoment/clickmoment/internal/httputil"
	"github.com/clickmoment/clickmoment/internal/storage"
	"github.com/clickmoment/clickmoment/internal/validate"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
)

// ObjectStorage is the slice of the storage layer the project handlers use:
// presigned upload targets, playback URLs, and cleanup on deletion.
type ObjectStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string, contentLength int64, expiry time.Duration) (string, error)
	GenerateDownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

type Handler struct {
	store          *Store
	storage        ObjectStorage
	maxUploadBytes int64
}

func NewHandler(store *Store, s ObjectStorage, maxUploadBytes int64) *Handler {
	return &Handler{store: store, storage: s, maxUploadBytes: maxUploadBytes}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	httputil.WriteJSON(w, http.StatusOK, h.store.List(r.Context(), userID))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateDraft(draft); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.store.Create(r.Context(), userID, draft)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, p)
}

type detailResponse struct {
	*Project
	VideoURL string `json:"video_url,omitempty"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	p := h.store.Get(r.Context(), userID, projectID)
	if p == nil {
		httputil.WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	resp := detailResponse{Project: p}
	if p.ContentSources.VideoPath != "" && h.storage != nil {
		if url, err := h.storage.GenerateDownloadURL(r.Context(), p.ContentSources.VideoPath, time.Hour); err == nil {
			resp.VideoURL = url
		}
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	var fields UpdateFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validateUpdate(fields); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.store.Update(r.Context(), userID, projectID, fields)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "project not found")
			return
		}
		if errors.Is(err, ErrNothingToUpdate) {
			httputil.WriteError(w, http.StatusBadRequest, "nothing to update")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to update project")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	// Read the video path before the row disappears so the stored object
	// can be cleaned up too.
	videoPath := ""
	if p := h.store.Get(r.Context(), userID, projectID); p != nil {
		videoPath = p.ContentSources.VideoPath
	}

	if err := h.store.Delete(r.Context(), userID, projectID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httputil.WriteError(w, http.StatusNotFound, "project not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	// Best effort: the row is gone either way, a leftover object is only
	// storage waste.
	if videoPath != "" && h.storage != nil {
		if err := h.storage.DeleteObject(r.Context(), videoPath); err != nil {
			slog.Error("project: failed to delete stored video", "project_id", projectID, "key", videoPath, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"`
}

type uploadURLResponse struct {
	SignedURL string `json:"signed_url"`
	GCSPath   string `json:"gcs_path"`
}

// UploadURL issues a presigned upload target plus the stable object path the
// client persists after the upload succeeds.
func (h *Handler) UploadURL(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	var req uploadURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if msg := validate.Filename(req.Filename); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if req.ContentType != "video/mp4" && req.ContentType != "video/webm" && req.ContentType != "video/quicktime" {
		httputil.WriteError(w, http.StatusBadRequest, "only video/mp4, video/webm, and video/quicktime uploads are supported")
		return
	}

	if req.FileSize <= 0 {
		httputil.WriteError(w, http.StatusBadRequest, "file_size must be positive")
		return
	}

	if h.maxUploadBytes > 0 && req.FileSize > h.maxUploadBytes {
		httputil.WriteError(w, http.StatusBadRequest, "file too large")
		return
	}

	if p := h.store.Get(r.Context(), userID, projectID); p == nil {
		httputil.WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	key := storage.VideoObjectKey(userID, projectID, req.ContentType)
	signedURL, err := h.storage.GenerateUploadURL(r.Context(), key, req.ContentType, req.FileSize, 30*time.Minute)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to generate upload URL")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, uploadURLResponse{SignedURL: signedURL, GCSPath: key})
}

type addAnalysisRequest struct {
	Result  json.RawMessage `json:"result"`
	GCSPath string          `json:"gcs_path"`
}

func (h *Handler) AddAnalysis(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	if p := h.store.Get(r.Context(), userID, projectID); p == nil {
		httputil.WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	var req addAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Result) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "result is required")
		return
	}

	a, err := h.store.AddAnalysis(r.Context(), projectID, req.Result, req.GCSPath)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnserializable):
			httputil.WriteError(w, http.StatusBadRequest, "analysis payload is not serializable")
		case errors.Is(err, ErrAnalysisTimeout):
			httputil.WriteError(w, http.StatusGatewayTimeout, "analysis write timed out")
		default:
			httputil.WriteError(w, http.StatusInternalServerError, "failed to save analysis")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, a)
}

func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	projectID := chi.URLParam(r, "id")

	if p := h.store.Get(r.Context(), userID, projectID); p == nil {
		httputil.WriteError(w, http.StatusNotFound, "project not found")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.store.ListAnalyses(r.Context(), projectID))
}

func validateDraft(draft Draft) string {
	if msg := validate.ProjectName(draft.Name); msg != "" {
		return msg
	}
	if msg := validate.Mood(draft.CreativeDirection.Mood); msg != "" {
		return msg
	}
	if msg := validate.TitleHint(draft.CreativeDirection.TitleHint); msg != "" {
		return msg
	}
	if msg := validate.Notes(draft.CreativeDirection.Notes); msg != "" {
		return msg
	}
	if msg := validate.MaturityHint(draft.CreatorContext.MaturityHint); msg != "" {
		return msg
	}
	if msg := validate.Niche(draft.CreatorContext.NicheHint); msg != "" {
		return msg
	}
	return ""
}

func validateUpdate(fields UpdateFields) string {
	if fields.Name != nil {
		if msg := validate.ProjectName(*fields.Name); msg != "" {
			return msg
		}
	}
	if fields.CreativeDirection != nil {
		if msg := validate.Mood(fields.CreativeDirection.Mood); msg != "" {
			return msg
		}
		if msg := validate.TitleHint(fields.CreativeDirection.TitleHint); msg != "" {
			return msg
		}
		if msg := validate.Notes(fields.CreativeDirection.Notes); msg != "" {
			return msg
		}
	}
	if fields.CreatorContext != nil {
		if msg := validate.MaturityHint(fields.CreatorContext.MaturityHint); msg != "" {
			return msg
		}
		if msg := validate.Niche(fields.CreatorContext.NicheHint); msg != "" {
			return msg
		}
	}
	return ""
}
