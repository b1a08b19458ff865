// Package view holds the client-side navigation state: which panel is
// visible, which project is open, and the in-flight guard that keeps
// concurrent list renders from interleaving.
package view

import (
	"context"
	"fmt"
	"sync"

	"github.com/clickmoment/clickmoment/internal/project"
)

// Panel names one screen. Exactly one panel is visible at a time.
type Panel int

const (
	Landing Panel = iota
	ProjectsList
	CreateProject
	EditProject
	ProjectDetail
	Profile
)

func (p Panel) String() string {
	switch p {
	case Landing:
		return "landing"
	case ProjectsList:
		return "projects"
	case CreateProject:
		return "create-project"
	case EditProject:
		return "edit-project"
	case ProjectDetail:
		return "project-detail"
	case Profile:
		return "profile"
	default:
		return "unknown"
	}
}

// DataSource supplies the reads a panel transition needs.
type DataSource interface {
	ListProjects(ctx context.Context) ([]project.Project, error)
	GetProject(ctx context.Context, id string) (*project.Project, error)
	PlaybackURL(ctx context.Context, gcsPath string) (string, error)
	ProfileComplete(ctx context.Context) (bool, error)
}

// Renderer draws panels. Implementations need not be safe for concurrent
// use; the controller serializes list renders itself.
type Renderer interface {
	ShowPanel(p Panel)
	RenderProjects(projects []project.Project)
	RenderProjectDetail(p *project.Project, playbackURL string)
}

// Controller tracks the visible panel and runs the data refresh each
// transition requires. All methods are safe for concurrent use.
type Controller struct {
	source   DataSource
	renderer Renderer

	mu             sync.Mutex
	current        Panel
	projectID      string
	detailExpanded bool

	rendering     bool
	renderPending bool
}

func NewController(source DataSource, renderer Renderer) *Controller {
	return &Controller{
		source:   source,
		renderer: renderer,
		current:  Landing,
	}
}

// Start picks the initial panel: Landing without a session, Profile for a
// session without a complete profile, ProjectsList otherwise.
func (c *Controller) Start(ctx context.Context, authenticated bool) error {
	if !authenticated {
		c.ShowLanding()
		return nil
	}

	complete, err := c.source.ProfileComplete(ctx)
	if err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if !complete {
		c.ShowProfile()
		return nil
	}
	return c.ShowProjectsList(ctx)
}

func (c *Controller) Current() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// CurrentProjectID returns the open project, or empty outside the edit and
// detail panels.
func (c *Controller) CurrentProjectID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

func (c *Controller) ShowLanding() {
	c.setPanel(Landing, "")
}

func (c *Controller) ShowProfile() {
	c.setPanel(Profile, "")
}

func (c *Controller) ShowCreateProject() {
	c.setPanel(CreateProject, "")
}

// ShowProjectsList re-queries and re-renders the list on every entry.
func (c *Controller) ShowProjectsList(ctx context.Context) error {
	c.setPanel(ProjectsList, "")
	return c.RefreshProjects(ctx)
}

func (c *Controller) ShowEditProject(ctx context.Context, id string) (*project.Project, error) {
	p, err := c.source.GetProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load project for edit: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %s not found", id)
	}
	c.setPanel(EditProject, id)
	return p, nil
}

// ShowProjectDetail loads the project, resolves a playback URL when a video
// is attached, and collapses the detail sections.
func (c *Controller) ShowProjectDetail(ctx context.Context, id string) error {
	p, err := c.source.GetProject(ctx, id)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if p == nil {
		return fmt.Errorf("project %s not found", id)
	}

	playbackURL := ""
	if p.ContentSources.VideoPath != "" {
		playbackURL, err = c.source.PlaybackURL(ctx, p.ContentSources.VideoPath)
		if err != nil {
			return fmt.Errorf("resolve playback URL: %w", err)
		}
	}

	c.setPanel(ProjectDetail, id)
	c.mu.Lock()
	c.detailExpanded = false
	c.mu.Unlock()

	c.renderer.RenderProjectDetail(p, playbackURL)
	return nil
}

// ToggleDetailSections flips the expanded state of the detail panel's
// collapsible sections and reports the new state.
func (c *Controller) ToggleDetailSections() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detailExpanded = !c.detailExpanded
	return c.detailExpanded
}

// RefreshProjects re-renders the project list. Concurrent calls never
// interleave: while a render is in flight any number of further requests
// collapse into exactly one follow-up render.
func (c *Controller) RefreshProjects(ctx context.Context) error {
	c.mu.Lock()
	if c.rendering {
		c.renderPending = true
		c.mu.Unlock()
		return nil
	}
	c.rendering = true
	c.mu.Unlock()

	for {
		projects, err := c.source.ListProjects(ctx)
		if err != nil {
			c.mu.Lock()
			c.rendering = false
			c.renderPending = false
			c.mu.Unlock()
			return fmt.Errorf("list projects: %w", err)
		}
		c.renderer.RenderProjects(projects)

		c.mu.Lock()
		if !c.renderPending {
			c.rendering = false
			c.mu.Unlock()
			return nil
		}
		c.renderPending = false
		c.mu.Unlock()
	}
}

func (c *Controller) setPanel(p Panel, projectID string) {
	c.mu.Lock()
	c.current = p
	c.projectID = projectID
	c.mu.Unlock()
	c.renderer.ShowPanel(p)
}
