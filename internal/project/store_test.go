package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
)

const testUserID = "550e8400-e29b-41d4-a716-446655440000"
const otherUserID = "99999999-9999-4999-8999-999999999999"
const testProjectID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"

func projectRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "user_id", "name", "content_sources", "creative_direction",
		"creator_context", "profile_photos", "created_at", "updated_at",
	})
}

func TestList_NewestUpdatedFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM projects WHERE user_id`).
		WithArgs(testUserID).
		WillReturnRows(projectRows().
			AddRow("p2", testUserID, "Newer", `{}`, `{}`, `{}`, `[]`, now, now).
			AddRow("p1", testUserID, "Older", `{"video_path":"videos/u/p/a.mp4"}`, `{"mood":"energetic"}`, `{}`, `[]`, now.Add(-time.Hour), now.Add(-time.Hour)))

	store := NewStore(mock)
	projects := store.List(context.Background(), testUserID)

	if len(projects) != 2 {
		t.Fatalf("expected 2 projects, got %d", len(projects))
	}
	if projects[0].Name != "Newer" {
		t.Errorf("expected newest-updated project first, got %q", projects[0].Name)
	}
	if projects[1].ContentSources.VideoPath != "videos/u/p/a.mp4" {
		t.Errorf("expected decoded video path, got %q", projects[1].ContentSources.VideoPath)
	}
	if projects[1].CreativeDirection.Mood != "energetic" {
		t.Errorf("expected decoded mood, got %q", projects[1].CreativeDirection.Mood)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestList_ErrorDegradesToEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM projects WHERE user_id`).
		WithArgs(testUserID).
		WillReturnError(errors.New("permission denied for table projects"))

	store := NewStore(mock)
	projects := store.List(context.Background(), testUserID)

	if projects == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(projects) != 0 {
		t.Errorf("expected empty slice on error, got %d projects", len(projects))
	}
}

func TestCreate_DefaultsApplied(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(testUserID, pgxmock.AnyArg(), `{}`, `{}`, `{}`, `[]`).
		WillReturnRows(projectRows().
			AddRow(testProjectID, testUserID, "Project 2026-08-31T00:00:00Z", `{}`, `{}`, `{}`, `[]`, now, now))

	store := NewStore(mock)
	p, err := store.Create(context.Background(), testUserID, Draft{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.ContentSources.VideoPath != "" {
		t.Errorf("expected empty content sources, got %+v", p.ContentSources)
	}
	if p.ProfilePhotos == nil || len(p.ProfilePhotos) != 0 {
		t.Errorf("expected empty photo list, got %#v", p.ProfilePhotos)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestCreate_UsesDraftFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs(testUserID, "Launch Video", `{}`, `{"mood":"bold","title_hint":"big reveal"}`, `{"niche_hint":"tech"}`, `[]`).
		WillReturnRows(projectRows().
			AddRow(testProjectID, testUserID, "Launch Video", `{}`, `{"mood":"bold","title_hint":"big reveal"}`, `{"niche_hint":"tech"}`, `[]`, now, now))

	store := NewStore(mock)
	p, err := store.Create(context.Background(), testUserID, Draft{
		Name:              "Launch Video",
		CreativeDirection: CreativeDirection{Mood: "bold", TitleHint: "big reveal"},
		CreatorContext:    CreatorContext{NicheHint: "tech"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CreativeDirection.Mood != "bold" {
		t.Errorf("expected mood round trip, got %q", p.CreativeDirection.Mood)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestGet_ForeignOwnerReturnsNil(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM projects WHERE id = \$1 AND user_id = \$2`).
		WithArgs(testProjectID, otherUserID).
		WillReturnError(pgx.ErrNoRows)

	store := NewStore(mock)
	if p := store.Get(context.Background(), otherUserID, testProjectID); p != nil {
		t.Errorf("expected nil for a project owned by someone else, got %+v", p)
	}
}

func TestGet_OwnerSeesProject(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM projects WHERE id = \$1 AND user_id = \$2`).
		WithArgs(testProjectID, testUserID).
		WillReturnRows(projectRows().
			AddRow(testProjectID, testUserID, "Mine", `{}`, `{}`, `{}`, `[]`, now, now))

	store := NewStore(mock)
	p := store.Get(context.Background(), testUserID, testProjectID)
	if p == nil {
		t.Fatal("expected project for owner")
	}
	if p.ID != testProjectID {
		t.Errorf("expected id %q, got %q", testProjectID, p.ID)
	}
}

func TestUpdate_ReplacesJSONFieldWholesale(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`UPDATE projects SET content_sources = \$1, updated_at = now\(\)`).
		WithArgs(`{"video_path":"videos/u1/p1/f.mp4"}`, testProjectID, testUserID).
		WillReturnRows(projectRows().
			AddRow(testProjectID, testUserID, "Mine", `{"video_path":"videos/u1/p1/f.mp4"}`, `{}`, `{}`, `[]`, now, now))

	store := NewStore(mock)
	p, err := store.Update(context.Background(), testUserID, testProjectID, UpdateFields{
		ContentSources: &ContentSources{VideoPath: "videos/u1/p1/f.mp4"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ContentSources.VideoPath != "videos/u1/p1/f.mp4" {
		t.Errorf("expected updated video path, got %q", p.ContentSources.VideoPath)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet pgxmock expectations: %v", err)
	}
}

func TestUpdate_NoFields(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := NewStore(mock)
	_, err = store.Update(context.Background(), testUserID, testProjectID, UpdateFields{})
	if !errors.Is(err, ErrNothingToUpdate) {
		t.Errorf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestDelete_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectExec(`DELETE FROM projects`).
		WithArgs(testProjectID, testUserID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	store := NewStore(mock)
	err = store.Delete(context.Background(), testUserID, testProjectID)
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Errorf("expected pgx.ErrNoRows for missing project, got %v", err)
	}
}

func TestAddAnalysis_RejectsUnserializablePayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	store := NewStore(mock)
	_, err = store.AddAnalysis(context.Background(), testProjectID, make(chan int), "")
	if !errors.Is(err, ErrUnserializable) {
		t.Errorf("expected ErrUnserializable, got %v", err)
	}

	// The write must never reach the database.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database traffic: %v", err)
	}
}

func TestAddAnalysis_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	sourcePath := "videos/u1/p1/f.mp4"
	mock.ExpectQuery(`INSERT INTO analyses`).
		WithArgs(testProjectID, &sourcePath, `{"phase1":{"moments":[]}}`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_id", "gcs_path", "result", "created_at"}).
			AddRow("a1", testProjectID, &sourcePath, `{"phase1":{"moments":[]}}`, now))

	store := NewStore(mock)
	a, err := store.AddAnalysis(context.Background(), testProjectID,
		map[string]any{"phase1": map[string]any{"moments": []any{}}}, sourcePath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID != "a1" {
		t.Errorf("expected analysis id a1, got %q", a.ID)
	}
	if a.GCSPath == nil || *a.GCSPath != sourcePath {
		t.Errorf("expected gcs path %q, got %v", sourcePath, a.GCSPath)
	}
}

func TestAddAnalysis_TimeoutIsDistinct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`INSERT INTO analyses`).
		WithArgs(testProjectID, pgxmock.AnyArg(), `{}`).
		WillReturnError(context.DeadlineExceeded)

	// An already-expired parent context stands in for a stalled insert.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	store := NewStore(mock)
	_, err = store.AddAnalysis(ctx, testProjectID, map[string]any{}, "")
	if !errors.Is(err, ErrAnalysisTimeout) {
		t.Errorf("expected ErrAnalysisTimeout, got %v", err)
	}
}

func TestListAnalyses_NewestFirst(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM analyses WHERE project_id`).
		WithArgs(testProjectID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "project_id", "gcs_path", "result", "created_at"}).
			AddRow("a2", testProjectID, nil, `{"phase1":{"moments":[{"timestamp":"8.5s"}]}}`, now).
			AddRow("a1", testProjectID, nil, `{}`, now.Add(-time.Minute)))

	store := NewStore(mock)
	analyses := store.ListAnalyses(context.Background(), testProjectID)

	if len(analyses) != 2 {
		t.Fatalf("expected 2 analyses, got %d", len(analyses))
	}
	if analyses[0].ID != "a2" {
		t.Errorf("expected newest analysis first, got %q", analyses[0].ID)
	}
}

func TestListAnalyses_ErrorDegradesToEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT .+ FROM analyses WHERE project_id`).
		WithArgs(testProjectID).
		WillReturnError(errors.New("relation does not exist"))

	store := NewStore(mock)
	analyses := store.ListAnalyses(context.Background(), testProjectID)
	if analyses == nil || len(analyses) != 0 {
		t.Errorf("expected empty slice on error, got %#v", analyses)
	}
}
