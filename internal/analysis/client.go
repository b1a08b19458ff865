// Package analysis is the HTTP client for the thumbnail-moment analysis
// backend. Every call is a single POST; authenticated calls attach the
// session token as a bearer header when one is set.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clickmoment/clickmoment/internal/project"
)

// Moment is one candidate thumbnail moment from the analysis backend.
type Moment struct {
	Timestamp     string            `json:"timestamp"`
	FrameURL      string            `json:"frame_url"`
	FrameID       string            `json:"frame_id"`
	MomentSummary string            `json:"moment_summary"`
	ViewerFeel    string            `json:"viewer_feel"`
	WhyThisReads  []string          `json:"why_this_reads"`
	Pillars       map[string]string `json:"pillars"`
}

type Phase1 struct {
	Moments []Moment `json:"moments"`
}

// ThumbnailResult is the full analysis payload. It is stored verbatim as an
// analysis record; these types exist so the client can pick verdicts out of
// it without re-parsing.
type ThumbnailResult struct {
	Phase1        Phase1  `json:"phase1"`
	VideoDuration float64 `json:"video_duration,omitempty"`
}

type UploadTarget struct {
	SignedURL string `json:"signed_url"`
	GCSPath   string `json:"gcs_path"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient builds a client for the analysis backend at baseURL. token is
// the session token to send as a bearer header; empty sends none.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// SetToken swaps the bearer token, for when a session is established after
// the client is built.
func (c *Client) SetToken(token string) {
	c.token = token
}

type uploadURLRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	UserID      string `json:"user_id,omitempty"`
	ProjectID   string `json:"project_id,omitempty"`
}

// GetUploadURL asks the backend for a short-lived upload target plus the
// stable storage path to persist once the upload lands.
func (c *Client) GetUploadURL(ctx context.Context, filename, contentType, userID, projectID string) (*UploadTarget, error) {
	var target UploadTarget
	err := c.post(ctx, "/get-upload-url", uploadURLRequest{
		Filename:    filename,
		ContentType: contentType,
		UserID:      userID,
		ProjectID:   projectID,
	}, &target)
	if err != nil {
		return nil, err
	}
	if target.SignedURL == "" || target.GCSPath == "" {
		return nil, fmt.Errorf("upload target response missing signed_url or gcs_path")
	}
	return &target, nil
}

// GetVideoURL exchanges a stored object path for a short-lived playback URL.
func (c *Client) GetVideoURL(ctx context.Context, gcsPath string) (string, error) {
	var resp struct {
		SignedURL string `json:"signed_url"`
	}
	if err := c.post(ctx, "/get-video-url", map[string]string{"gcs_path": gcsPath}, &resp); err != nil {
		return "", err
	}
	if resp.SignedURL == "" {
		return "", fmt.Errorf("video URL response missing signed_url")
	}
	return resp.SignedURL, nil
}

type generateRequest struct {
	ProjectID         string                    `json:"project_id"`
	ContentSources    project.ContentSources    `json:"content_sources"`
	CreativeDirection project.CreativeDirection `json:"creative_direction"`
	CreatorContext    project.CreatorContext    `json:"creator_context"`
	ProfilePhotos     []string                  `json:"profile_photos"`
}

// GenerateThumbnails runs the full analysis for a project's uploaded video.
// This is the metered call; callers check the usage limit first.
func (c *Client) GenerateThumbnails(ctx context.Context, p *project.Project) (*ThumbnailResult, error) {
	photos := p.ProfilePhotos
	if photos == nil {
		photos = []string{}
	}

	var result ThumbnailResult
	err := c.post(ctx, "/thumbnails/generate", generateRequest{
		ProjectID:         p.ID,
		ContentSources:    p.ContentSources,
		CreativeDirection: p.CreativeDirection,
		CreatorContext:    p.CreatorContext,
		ProfilePhotos:     photos,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshFrameURLs forwards an opaque body to the backend and relays the
// response without interpreting either side.
func (c *Client) RefreshFrameURLs(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/refresh-frame-urls", bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request to %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analysis backend returned status %d for %s: %s", resp.StatusCode, path, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
