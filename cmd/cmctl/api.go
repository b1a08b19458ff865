package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clickmoment/clickmoment/internal/analysis"
	"github.com/clickmoment/clickmoment/internal/profile"
	"github.com/clickmoment/clickmoment/internal/project"
)

var errNotFound = errors.New("not found")

// apiClient talks to the clickmoment server. It doubles as the data source
// for the view controller and the store/usage surface for the upload
// pipeline; playback URLs come from the analysis backend when one is
// configured.
type apiClient struct {
	baseURL string
	token   string
	backend *analysis.Client
	http    *http.Client
}

func newAPIClient(cfg *Config) *apiClient {
	c := &apiClient{
		baseURL: cfg.ServerURL,
		token:   cfg.AccessToken,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	if cfg.AnalysisURL != "" {
		c.backend = analysis.NewClient(cfg.AnalysisURL, cfg.AccessToken)
	}
	return c
}

func (c *apiClient) Login(ctx context.Context, email, password string) (string, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return "", err
	}
	c.token = resp.AccessToken
	if c.backend != nil {
		c.backend.SetToken(resp.AccessToken)
	}
	return resp.AccessToken, nil
}

func (c *apiClient) Me(ctx context.Context) (string, error) {
	var resp struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp); err != nil {
		return "", err
	}
	return resp.UserID, nil
}

func (c *apiClient) ListProjects(ctx context.Context) ([]project.Project, error) {
	var projects []project.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

func (c *apiClient) GetProject(ctx context.Context, id string) (*project.Project, error) {
	var p project.Project
	err := c.do(ctx, http.MethodGet, "/api/projects/"+id, nil, &p)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *apiClient) CreateProject(ctx context.Context, draft project.Draft) (*project.Project, error) {
	var p project.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", draft, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Get satisfies the upload pipeline's store surface.
func (c *apiClient) Get(ctx context.Context, id string) (*project.Project, error) {
	return c.GetProject(ctx, id)
}

func (c *apiClient) Update(ctx context.Context, id string, fields project.UpdateFields) (*project.Project, error) {
	var p project.Project
	if err := c.do(ctx, http.MethodPatch, "/api/projects/"+id, fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *apiClient) DeleteProject(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/projects/"+id, nil, nil)
}

func (c *apiClient) AddAnalysis(ctx context.Context, projectID string, result json.RawMessage, gcsPath string) error {
	payload := map[string]any{"result": result}
	if gcsPath != "" {
		payload["gcs_path"] = gcsPath
	}
	return c.do(ctx, http.MethodPost, "/api/projects/"+projectID+"/analyses", payload, nil)
}

func (c *apiClient) ListAnalyses(ctx context.Context, projectID string) ([]project.Analysis, error) {
	var analyses []project.Analysis
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/analyses", nil, &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (c *apiClient) PlaybackURL(ctx context.Context, gcsPath string) (string, error) {
	if c.backend == nil {
		return "", errors.New("analysis_url is not configured; cannot resolve playback URLs")
	}
	return c.backend.GetVideoURL(ctx, gcsPath)
}

func (c *apiClient) GetProfile(ctx context.Context) (*profile.Profile, error) {
	var p profile.Profile
	err := c.do(ctx, http.MethodGet, "/api/profile", nil, &p)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *apiClient) SaveProfile(ctx context.Context, fields profile.Fields) (*profile.Profile, error) {
	var p profile.Profile
	if err := c.do(ctx, http.MethodPut, "/api/profile", fields, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *apiClient) ProfileComplete(ctx context.Context) (bool, error) {
	p, err := c.GetProfile(ctx)
	if err != nil {
		return false, err
	}
	return p.Complete(), nil
}

func (c *apiClient) CanAnalyze(ctx context.Context) (bool, error) {
	allowed, _, err := c.Limits(ctx)
	return allowed, err
}

func (c *apiClient) IncrementAnalysisCount(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/profile/usage", nil, nil)
}

// Limits returns the server's usage verdict and remaining count, -1 for
// unlimited.
func (c *apiClient) Limits(ctx context.Context) (bool, int, error) {
	var resp struct {
		Allowed   bool `json:"allowed"`
		Remaining int  `json:"remaining"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/profile/limits", nil, &resp); err != nil {
		return false, 0, err
	}
	return resp.Allowed, resp.Remaining, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New("not logged in or session expired; run `cmctl login`")
	case resp.StatusCode >= 400:
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Error)
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", path, err)
		}
	}
	return nil
}
