package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clickmoment/clickmoment/internal/database"
	"github.com/jackc/pgx/v5"
)

// ErrAnalysisTimeout marks an analysis write that hit the bounded wait.
// Callers show it differently from an ordinary store failure.
var ErrAnalysisTimeout = errors.New("analysis write timed out")

// ErrUnserializable marks an analysis payload that cannot be encoded; the
// write is never attempted.
var ErrUnserializable = errors.New("analysis payload is not serializable")

// ErrNothingToUpdate is returned when an update carries no fields.
var ErrNothingToUpdate = errors.New("nothing to update")

const analysisWriteTimeout = 30 * time.Second

// Store translates typed project operations into owner-scoped queries. Read
// paths degrade to empty results on store errors (logged, not propagated);
// write paths return explicit errors. Nothing here retries.
type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

const projectColumns = `id, user_id, name, content_sources, creative_direction, creator_context, profile_photos, created_at, updated_at`

// List returns the user's projects, newest-updated first. On error it
// returns an empty slice so callers always have something to render.
func (s *Store) List(ctx context.Context, userID string) []Project {
	rows, err := s.db.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		slog.Error("project: list query failed", "user_id", userID, "error", err)
		return []Project{}
	}
	defer rows.Close()

	projects := []Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			slog.Error("project: list scan failed", "user_id", userID, "error", err)
			return []Project{}
		}
		projects = append(projects, *p)
	}
	if err := rows.Err(); err != nil {
		slog.Error("project: list rows failed", "user_id", userID, "error", err)
		return []Project{}
	}
	return projects
}

func (s *Store) Create(ctx context.Context, userID string, draft Draft) (*Project, error) {
	name := draft.Name
	if name == "" {
		name = "Project " + time.Now().UTC().Format(time.RFC3339)
	}

	photos := draft.ProfilePhotos
	if photos == nil {
		photos = []string{}
	}

	sources, err := json.Marshal(draft.ContentSources)
	if err != nil {
		return nil, fmt.Errorf("encode content sources: %w", err)
	}
	direction, err := json.Marshal(draft.CreativeDirection)
	if err != nil {
		return nil, fmt.Errorf("encode creative direction: %w", err)
	}
	creator, err := json.Marshal(draft.CreatorContext)
	if err != nil {
		return nil, fmt.Errorf("encode creator context: %w", err)
	}
	photosJSON, err := json.Marshal(photos)
	if err != nil {
		return nil, fmt.Errorf("encode profile photos: %w", err)
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO projects (user_id, name, content_sources, creative_direction, creator_context, profile_photos)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+projectColumns,
		userID, name, string(sources), string(direction), string(creator), string(photosJSON),
	)

	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Get returns nil for a missing row or a row owned by someone else; callers
// cannot tell the two apart, which is the intended row-level-security
// behavior. Store errors are logged and also surface as nil.
func (s *Store) Get(ctx context.Context, userID, projectID string) *Project {
	row := s.db.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)

	p, err := scanProject(row)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			slog.Error("project: get failed", "project_id", projectID, "error", err)
		}
		return nil
	}
	return p
}

// Update applies the non-nil fields. JSON-valued fields replace the stored
// value wholesale.
func (s *Store) Update(ctx context.Context, userID, projectID string, fields UpdateFields) (*Project, error) {
	set := []string{}
	args := []any{}
	idx := 1

	appendSet := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if fields.Name != nil {
		appendSet("name", *fields.Name)
	}
	if fields.ContentSources != nil {
		encoded, err := json.Marshal(fields.ContentSources)
		if err != nil {
			return nil, fmt.Errorf("encode content sources: %w", err)
		}
		appendSet("content_sources", string(encoded))
	}
	if fields.CreativeDirection != nil {
		encoded, err := json.Marshal(fields.CreativeDirection)
		if err != nil {
			return nil, fmt.Errorf("encode creative direction: %w", err)
		}
		appendSet("creative_direction", string(encoded))
	}
	if fields.CreatorContext != nil {
		encoded, err := json.Marshal(fields.CreatorContext)
		if err != nil {
			return nil, fmt.Errorf("encode creator context: %w", err)
		}
		appendSet("creator_context", string(encoded))
	}
	if fields.ProfilePhotos != nil {
		encoded, err := json.Marshal(*fields.ProfilePhotos)
		if err != nil {
			return nil, fmt.Errorf("encode profile photos: %w", err)
		}
		appendSet("profile_photos", string(encoded))
	}

	if len(set) == 0 {
		return nil, ErrNothingToUpdate
	}

	query := "UPDATE projects SET "
	for i, clause := range set {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += fmt.Sprintf(", updated_at = now() WHERE id = $%d AND user_id = $%d RETURNING ", idx, idx+1)
	query += projectColumns
	args = append(args, projectID, userID)

	row := s.db.QueryRow(ctx, query, args...)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update project: %w", pgx.ErrNoRows)
		}
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

func (s *Store) Delete(ctx context.Context, userID, projectID string) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddAnalysis persists an analysis result. The payload is serialized before
// anything touches the database, and the insert gets a bounded wait so a
// stalled connection surfaces as ErrAnalysisTimeout instead of hanging the
// pipeline.
func (s *Store) AddAnalysis(ctx context.Context, projectID string, payload any, sourcePath string) (*Analysis, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializable, err)
	}

	var gcsPath *string
	if sourcePath != "" {
		gcsPath = &sourcePath
	}

	writeCtx, cancel := context.WithTimeout(ctx, analysisWriteTimeout)
	defer cancel()

	row := s.db.QueryRow(writeCtx,
		`INSERT INTO analyses (project_id, gcs_path, result)
		 VALUES ($1, $2, $3)
		 RETURNING id, project_id, gcs_path, result, created_at`,
		projectID, gcsPath, string(encoded),
	)

	a, err := scanAnalysis(row)
	if err != nil {
		if writeCtx.Err() != nil {
			return nil, fmt.Errorf("%w after %s", ErrAnalysisTimeout, analysisWriteTimeout)
		}
		return nil, fmt.Errorf("save analysis: %w", err)
	}
	return a, nil
}

// ListAnalyses returns a project's analyses, newest first; empty on error.
func (s *Store) ListAnalyses(ctx context.Context, projectID string) []Analysis {
	rows, err := s.db.Query(ctx,
		`SELECT id, project_id, gcs_path, result, created_at
		 FROM analyses WHERE project_id = $1 ORDER BY created_at DESC`,
		projectID,
	)
	if err != nil {
		slog.Error("project: list analyses failed", "project_id", projectID, "error", err)
		return []Analysis{}
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			slog.Error("project: analysis scan failed", "project_id", projectID, "error", err)
			return []Analysis{}
		}
		analyses = append(analyses, *a)
	}
	if err := rows.Err(); err != nil {
		slog.Error("project: analysis rows failed", "project_id", projectID, "error", err)
		return []Analysis{}
	}
	return analyses
}

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	var sources, direction, creator, photos string
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &sources, &direction, &creator, &photos, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sources), &p.ContentSources); err != nil {
		return nil, fmt.Errorf("decode content sources: %w", err)
	}
	if err := json.Unmarshal([]byte(direction), &p.CreativeDirection); err != nil {
		return nil, fmt.Errorf("decode creative direction: %w", err)
	}
	if err := json.Unmarshal([]byte(creator), &p.CreatorContext); err != nil {
		return nil, fmt.Errorf("decode creator context: %w", err)
	}
	if err := json.Unmarshal([]byte(photos), &p.ProfilePhotos); err != nil {
		return nil, fmt.Errorf("decode profile photos: %w", err)
	}
	if p.ProfilePhotos == nil {
		p.ProfilePhotos = []string{}
	}
	return &p, nil
}

func scanAnalysis(row pgx.Row) (*Analysis, error) {
	var a Analysis
	var result string
	if err := row.Scan(&a.ID, &a.ProjectID, &a.GCSPath, &result, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Result = json.RawMessage(result)
	return &a, nil
}
