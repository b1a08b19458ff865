package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/clickmoment/clickmoment/internal/database"
	"github.com/jackc/pgx/v5"
)

// Profile describes a creator's channel, one row per user. The analysis
// usage counter lives in the same table but is never exposed here; it is
// only reachable through the server-side limit functions below.
type Profile struct {
	Stage           string    `json:"stage"`
	SubscriberCount string    `json:"subscriber_count"`
	ContentNiche    string    `json:"content_niche"`
	UploadFrequency string    `json:"upload_frequency"`
	GrowthGoal      string    `json:"growth_goal"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Complete reports whether the profile carries enough context to skip the
// profile setup screen.
func (p *Profile) Complete() bool {
	return p != nil && p.Stage != "" && p.ContentNiche != ""
}

// Fields is the writable subset of a profile.
type Fields struct {
	Stage           string `json:"stage"`
	SubscriberCount string `json:"subscriber_count"`
	ContentNiche    string `json:"content_niche"`
	UploadFrequency string `json:"upload_frequency"`
	GrowthGoal      string `json:"growth_goal"`
}

// Store gives owner-scoped access to channel profiles and delegates usage
// accounting to database functions so the limit is computed in one place.
type Store struct {
	db database.DBTX
}

func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

const profileColumns = `stage, subscriber_count, content_niche, upload_frequency, growth_goal, created_at, updated_at`

// Get returns the user's profile, or nil when none exists or the read
// fails. Failures are logged, not propagated.
func (s *Store) Get(ctx context.Context, userID string) *Profile {
	var p Profile
	var stage, subscribers, niche, frequency, goal *string
	err := s.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM channel_profiles WHERE user_id = $1`,
		userID,
	).Scan(&stage, &subscribers, &niche, &frequency, &goal, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		slog.Error("profile: get query failed", "user_id", userID, "error", err)
		return nil
	}

	p.Stage = deref(stage)
	p.SubscriberCount = deref(subscribers)
	p.ContentNiche = deref(niche)
	p.UploadFrequency = deref(frequency)
	p.GrowthGoal = deref(goal)
	return &p
}

// Save upserts the user's profile. The check-then-write split keeps the
// at-most-one-row-per-user invariant visible in the queries, backed by the
// unique constraint on user_id.
func (s *Store) Save(ctx context.Context, userID string, fields Fields) (*Profile, error) {
	var existingID string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM channel_profiles WHERE user_id = $1`,
		userID,
	).Scan(&existingID)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.db.Exec(ctx,
			`INSERT INTO channel_profiles (user_id, stage, subscriber_count, content_niche, upload_frequency, growth_goal)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			userID, fields.Stage, fields.SubscriberCount, fields.ContentNiche, fields.UploadFrequency, fields.GrowthGoal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert profile: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to check for existing profile: %w", err)
	default:
		_, err = s.db.Exec(ctx,
			`UPDATE channel_profiles
			 SET stage = $2, subscriber_count = $3, content_niche = $4, upload_frequency = $5, growth_goal = $6, updated_at = now()
			 WHERE user_id = $1`,
			userID, fields.Stage, fields.SubscriberCount, fields.ContentNiche, fields.UploadFrequency, fields.GrowthGoal,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	p := s.Get(ctx, userID)
	if p == nil {
		return nil, errors.New("failed to read profile back after save")
	}
	return p, nil
}

// CanAnalyze asks the database whether the user may start another analysis.
// Users without a profile and testers are always allowed.
func (s *Store) CanAnalyze(ctx context.Context, userID string) (bool, error) {
	var allowed bool
	if err := s.db.QueryRow(ctx, `SELECT can_user_analyze($1)`, userID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("failed to check analysis allowance: %w", err)
	}
	return allowed, nil
}

// IncrementAnalysisCount records one consumed analysis for the user.
func (s *Store) IncrementAnalysisCount(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `SELECT increment_analysis_count($1)`, userID); err != nil {
		return fmt.Errorf("failed to increment analysis count: %w", err)
	}
	return nil
}

// Remaining returns how many analyses the user has left this period.
// A negative value means unlimited.
func (s *Store) Remaining(ctx context.Context, userID string) (int, error) {
	var remaining int
	if err := s.db.QueryRow(ctx, `SELECT get_remaining_analyses($1)`, userID).Scan(&remaining); err != nil {
		return 0, fmt.Errorf("failed to fetch remaining analyses: %w", err)
	}
	return remaining, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
