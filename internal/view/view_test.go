package view

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/clickmoment/clickmoment/internal/project"
)

type fakeSource struct {
	projects        []project.Project
	listErr         error
	getResult       *project.Project
	getErr          error
	playbackURL     string
	playbackCalls   int
	profileComplete bool

	mu        sync.Mutex
	listCalls int
	listGate  chan struct{}
}

func (f *fakeSource) ListProjects(_ context.Context) ([]project.Project, error) {
	f.mu.Lock()
	f.listCalls++
	gate := f.listGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.projects, f.listErr
}

func (f *fakeSource) GetProject(_ context.Context, _ string) (*project.Project, error) {
	return f.getResult, f.getErr
}

func (f *fakeSource) PlaybackURL(_ context.Context, _ string) (string, error) {
	f.playbackCalls++
	return f.playbackURL, nil
}

func (f *fakeSource) ProfileComplete(_ context.Context) (bool, error) {
	return f.profileComplete, nil
}

type fakeRenderer struct {
	mu            sync.Mutex
	panels        []Panel
	renderCount   int
	detailProject *project.Project
	detailURL     string
}

func (f *fakeRenderer) ShowPanel(p Panel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.panels = append(f.panels, p)
}

func (f *fakeRenderer) RenderProjects(_ []project.Project) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renderCount++
}

func (f *fakeRenderer) RenderProjectDetail(p *project.Project, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailProject = p
	f.detailURL = url
}

func (f *fakeRenderer) renders() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.renderCount
}

func TestStart_Unauthenticated(t *testing.T) {
	c := NewController(&fakeSource{}, &fakeRenderer{})
	if err := c.Start(context.Background(), false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Current() != Landing {
		t.Errorf("initial panel = %s, want landing", c.Current())
	}
}

func TestStart_IncompleteProfile(t *testing.T) {
	c := NewController(&fakeSource{profileComplete: false}, &fakeRenderer{})
	if err := c.Start(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Current() != Profile {
		t.Errorf("initial panel = %s, want profile", c.Current())
	}
}

func TestStart_CompleteProfile(t *testing.T) {
	r := &fakeRenderer{}
	c := NewController(&fakeSource{profileComplete: true}, r)
	if err := c.Start(context.Background(), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Current() != ProjectsList {
		t.Errorf("initial panel = %s, want projects", c.Current())
	}
	if r.renders() != 1 {
		t.Errorf("entering the list must render it, got %d renders", r.renders())
	}
}

func TestShowProjectDetail_WithVideo(t *testing.T) {
	src := &fakeSource{
		getResult: &project.Project{
			ID:             "p1",
			ContentSources: project.ContentSources{VideoPath: "videos/u1/p1/clip.mp4"},
		},
		playbackURL: "https://stub/play",
	}
	r := &fakeRenderer{}
	c := NewController(src, r)

	if err := c.ShowProjectDetail(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Current() != ProjectDetail {
		t.Errorf("panel = %s, want project-detail", c.Current())
	}
	if c.CurrentProjectID() != "p1" {
		t.Errorf("current project = %q, want p1", c.CurrentProjectID())
	}
	if r.detailURL != "https://stub/play" {
		t.Errorf("playback URL = %q, want resolved URL", r.detailURL)
	}
}

func TestShowProjectDetail_WithoutVideoSkipsPlaybackLookup(t *testing.T) {
	src := &fakeSource{getResult: &project.Project{ID: "p1"}}
	c := NewController(src, &fakeRenderer{})

	if err := c.ShowProjectDetail(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.playbackCalls != 0 {
		t.Error("playback URL must not be resolved when no video is attached")
	}
}

func TestShowProjectDetail_ResetsExpandedSections(t *testing.T) {
	src := &fakeSource{getResult: &project.Project{ID: "p1"}}
	c := NewController(src, &fakeRenderer{})

	if err := c.ShowProjectDetail(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if !c.ToggleDetailSections() {
		t.Fatal("first toggle must expand")
	}

	if err := c.ShowProjectDetail(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	if !c.ToggleDetailSections() {
		t.Error("re-entering the detail panel must collapse sections again")
	}
}

func TestCreateFlow_CompletionLandsOnProjectDetail(t *testing.T) {
	src := &fakeSource{getResult: &project.Project{ID: "p1"}}
	r := &fakeRenderer{}
	c := NewController(src, r)

	c.ShowCreateProject()
	if c.Current() != CreateProject {
		t.Fatalf("panel = %s, want create-project", c.Current())
	}

	// Form completion hands the new project id to the detail transition.
	if err := c.ShowProjectDetail(context.Background(), "p1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Current() != ProjectDetail {
		t.Errorf("panel after completion = %s, want project-detail", c.Current())
	}
	if c.CurrentProjectID() != "p1" {
		t.Errorf("current project = %q, want the created project", c.CurrentProjectID())
	}
	if r.detailProject == nil || r.detailProject.ID != "p1" {
		t.Error("completion must render the created project's detail")
	}
}

func TestShowEditProject_NotFound(t *testing.T) {
	c := NewController(&fakeSource{getResult: nil}, &fakeRenderer{})
	if _, err := c.ShowEditProject(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing project")
	}
	if c.Current() == EditProject {
		t.Error("panel must not change when the load fails")
	}
}

func TestRefreshProjects_CoalescesConcurrentRequests(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{listGate: gate}
	r := &fakeRenderer{}
	c := NewController(src, r)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = c.RefreshProjects(context.Background())
	}()

	// Wait for the first render to be in flight, then pile on requests.
	deadline := time.After(2 * time.Second)
	for {
		src.mu.Lock()
		started := src.listCalls == 1
		src.mu.Unlock()
		if started {
			break
		}
		select {
		case <-deadline:
			t.Fatal("first render never started")
		case <-time.After(time.Millisecond):
		}
	}

	for range 5 {
		if err := c.RefreshProjects(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	src.mu.Lock()
	src.listGate = nil
	src.mu.Unlock()
	close(gate)
	wg.Wait()

	if got := r.renders(); got != 2 {
		t.Errorf("render count = %d, want exactly one follow-up render", got)
	}
}

func TestRefreshProjects_ErrorClearsInFlightGuard(t *testing.T) {
	src := &fakeSource{listErr: errors.New("store down")}
	c := NewController(src, &fakeRenderer{})

	if err := c.RefreshProjects(context.Background()); err == nil {
		t.Fatal("expected the list error to propagate")
	}

	src.listErr = nil
	if err := c.RefreshProjects(context.Background()); err != nil {
		t.Fatalf("guard must be released after a failure: %v", err)
	}
}
