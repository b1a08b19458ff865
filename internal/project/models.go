package project

import (
	"encoding/json"
	"time"
)

// CreativeDirection, CreatorContext and ContentSources are stored as jsonb
// and travel to the analysis backend unchanged, so the field names follow the
// wire contract rather than this API's casing.

type CreativeDirection struct {
	Mood      string `json:"mood,omitempty"`
	TitleHint string `json:"title_hint,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type CreatorContext struct {
	MaturityHint string `json:"maturity_hint,omitempty"`
	NicheHint    string `json:"niche_hint,omitempty"`
}

type ContentSources struct {
	VideoPath string `json:"video_path,omitempty"`
}

type Project struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user_id"`
	Name              string            `json:"name"`
	ContentSources    ContentSources    `json:"content_sources"`
	CreativeDirection CreativeDirection `json:"creative_direction"`
	CreatorContext    CreatorContext    `json:"creator_context"`
	ProfilePhotos     []string          `json:"profile_photos"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Draft is the caller-supplied part of a new project. Zero values get the
// store defaults: timestamped name, empty maps, empty photo list.
type Draft struct {
	Name              string            `json:"name"`
	ContentSources    ContentSources    `json:"content_sources"`
	CreativeDirection CreativeDirection `json:"creative_direction"`
	CreatorContext    CreatorContext    `json:"creator_context"`
	ProfilePhotos     []string          `json:"profile_photos"`
}

// UpdateFields carries a partial update. Nil fields are left untouched;
// non-nil JSON-valued fields REPLACE the stored map wholesale — callers that
// want to keep sibling keys must read-merge first.
type UpdateFields struct {
	Name              *string            `json:"name"`
	ContentSources    *ContentSources    `json:"content_sources"`
	CreativeDirection *CreativeDirection `json:"creative_direction"`
	CreatorContext    *CreatorContext    `json:"creator_context"`
	ProfilePhotos     *[]string          `json:"profile_photos"`
}

type Analysis struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	GCSPath   *string         `json:"gcs_path,omitempty"`
	Result    json.RawMessage `json:"result"`
	CreatedAt time.Time       `json:"created_at"`
}
