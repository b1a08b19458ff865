// Package uploader runs the upload-and-analyze pipeline: gate on duration,
// fetch an upload target, PUT the file with progress, persist the storage
// path, then run the metered analysis behind the usage limit.
package uploader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/clickmoment/clickmoment/internal/analysis"
	"github.com/clickmoment/clickmoment/internal/project"
)

// MaxDurationSeconds is the upload ceiling. A file reporting exactly this
// duration is rejected; anything under it proceeds.
const MaxDurationSeconds = 900.0

// Status is the terminal state of one pipeline run.
type Status int

const (
	// StatusComplete means the video is stored and analyzed.
	StatusComplete Status = iota
	// StatusUnreadable means local metadata inspection failed; nothing was
	// sent anywhere.
	StatusUnreadable
	// StatusTooLong means the duration gate rejected the file before any
	// network call.
	StatusTooLong
	// StatusUploadFailed covers target-request and PUT failures; the
	// project row is untouched.
	StatusUploadFailed
	// StatusSaveFailed means the object uploaded but the project row could
	// not record it. The orphan is logged.
	StatusSaveFailed
	// StatusLimitReached means the usage limit stopped the pipeline before
	// the analysis call. The video itself is stored.
	StatusLimitReached
	// StatusAnalysisFailed means the analysis call failed after a
	// successful upload. Retrying skips straight to the analysis step.
	StatusAnalysisFailed
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusUnreadable:
		return "unreadable"
	case StatusTooLong:
		return "too-long"
	case StatusUploadFailed:
		return "upload-failed"
	case StatusSaveFailed:
		return "save-failed"
	case StatusLimitReached:
		return "limit-reached"
	case StatusAnalysisFailed:
		return "analysis-failed"
	default:
		return "unknown"
	}
}

// Verdict places one analysis moment on the video timeline. Slot is
// safe/bold/avoid by position in the backend's moment order. Fraction is
// the moment's timestamp over the video duration, or 0 when either side is
// unknown.
type Verdict struct {
	Slot     string
	Moment   analysis.Moment
	Fraction float64
}

var verdictSlots = [3]string{"safe", "bold", "avoid"}

// Result reports one pipeline run. GCSPath is set from the moment the
// object is stored, regardless of what happens afterwards. Err can be
// non-nil alongside StatusComplete when the analysis succeeded but its
// record write failed.
type Result struct {
	Status   Status
	Err      error
	GCSPath  string
	Analysis *analysis.ThumbnailResult
	Verdicts []Verdict
}

// Backend is the slice of the analysis API the pipeline needs.
type Backend interface {
	GetUploadURL(ctx context.Context, filename, contentType, userID, projectID string) (*analysis.UploadTarget, error)
	GenerateThumbnails(ctx context.Context, p *project.Project) (*analysis.ThumbnailResult, error)
}

// ProjectStore persists the pipeline's side effects.
type ProjectStore interface {
	Get(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, id string, fields project.UpdateFields) (*project.Project, error)
	AddAnalysis(ctx context.Context, projectID string, result json.RawMessage, gcsPath string) error
}

// Usage is the limit surface; the decision always comes from the server.
type Usage interface {
	CanAnalyze(ctx context.Context) (bool, error)
	IncrementAnalysisCount(ctx context.Context) error
}

// ProbeDuration inspects a local file and reports its duration in seconds.
type ProbeDuration func(ctx context.Context, path string) (float64, error)

type Uploader struct {
	backend    Backend
	store      ProjectStore
	usage      Usage
	userID     string
	probe      ProbeDuration
	httpClient *http.Client
}

func New(backend Backend, store ProjectStore, usage Usage, userID string) *Uploader {
	return &Uploader{
		backend: backend,
		store:   store,
		usage:   usage,
		userID:  userID,
		probe:   FFProbeDuration,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
	}
}

// SetProbe swaps the duration prober.
func (u *Uploader) SetProbe(probe ProbeDuration) {
	u.probe = probe
}

// Run executes the pipeline for a local file against an existing project.
// progress receives upload fractions in [0, 1]; it may be nil. Every
// failure path returns a Result rather than panicking, so callers always
// get back to an interactive state.
func (u *Uploader) Run(ctx context.Context, projectID, filePath, contentType string, progress func(float64)) *Result {
	duration, err := u.probe(ctx, filePath)
	if err != nil {
		return &Result{Status: StatusUnreadable, Err: fmt.Errorf("read video metadata: %w", err)}
	}
	if duration >= MaxDurationSeconds {
		return &Result{
			Status: StatusTooLong,
			Err:    fmt.Errorf("video is %.1fs, the limit is %.0fs", duration, MaxDurationSeconds),
		}
	}

	target, err := u.backend.GetUploadURL(ctx, filepath.Base(filePath), contentType, u.userID, projectID)
	if err != nil {
		return &Result{Status: StatusUploadFailed, Err: fmt.Errorf("request upload target: %w", err)}
	}

	if err := u.put(ctx, target.SignedURL, filePath, contentType, progress); err != nil {
		return &Result{Status: StatusUploadFailed, Err: err}
	}

	p, err := u.persistVideoPath(ctx, projectID, target.GCSPath)
	if err != nil {
		slog.Error("uploader: uploaded object is not recorded on any project",
			"project_id", projectID, "gcs_path", target.GCSPath, "error", err)
		return &Result{Status: StatusSaveFailed, Err: err, GCSPath: target.GCSPath}
	}

	return u.analyze(ctx, p, target.GCSPath, duration)
}

// Retry re-runs the analysis step for a project whose video is already
// stored, without re-uploading.
func (u *Uploader) Retry(ctx context.Context, projectID string) *Result {
	p, err := u.store.Get(ctx, projectID)
	if err != nil {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("load project: %w", err)}
	}
	if p == nil || p.ContentSources.VideoPath == "" {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("project %s has no stored video", projectID)}
	}
	return u.analyze(ctx, p, p.ContentSources.VideoPath, 0)
}

func (u *Uploader) analyze(ctx context.Context, p *project.Project, gcsPath string, duration float64) *Result {
	allowed, err := u.usage.CanAnalyze(ctx)
	if err != nil {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("check usage limit: %w", err), GCSPath: gcsPath}
	}
	if !allowed {
		return &Result{Status: StatusLimitReached, GCSPath: gcsPath}
	}

	if err := u.usage.IncrementAnalysisCount(ctx); err != nil {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("record usage: %w", err), GCSPath: gcsPath}
	}

	result, err := u.backend.GenerateThumbnails(ctx, p)
	if err != nil {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("generate thumbnails: %w", err), GCSPath: gcsPath}
	}

	if duration == 0 && result.VideoDuration > 0 {
		duration = result.VideoDuration
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return &Result{Status: StatusAnalysisFailed, Err: fmt.Errorf("encode analysis: %w", err), GCSPath: gcsPath}
	}
	// A failed record write does not void the analysis the caller already
	// has, so the run still completes; Err carries the gap.
	var recordErr error
	if err := u.store.AddAnalysis(ctx, p.ID, payload, gcsPath); err != nil {
		recordErr = fmt.Errorf("record analysis: %w", err)
		slog.Error("uploader: analysis completed but could not be recorded",
			"project_id", p.ID, "error", err)
	}

	return &Result{
		Status:   StatusComplete,
		Err:      recordErr,
		GCSPath:  gcsPath,
		Analysis: result,
		Verdicts: Verdicts(result, duration),
	}
}

// persistVideoPath stores the object path via read-merge: the update
// replaces content_sources wholesale, so sibling keys are re-read first.
func (u *Uploader) persistVideoPath(ctx context.Context, projectID, gcsPath string) (*project.Project, error) {
	p, err := u.store.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %s not found", projectID)
	}

	sources := p.ContentSources
	sources.VideoPath = gcsPath
	updated, err := u.store.Update(ctx, projectID, project.UpdateFields{ContentSources: &sources})
	if err != nil {
		return nil, fmt.Errorf("save video path: %w", err)
	}
	return updated, nil
}

func (u *Uploader) put(ctx context.Context, signedURL, filePath, contentType string, progress func(float64)) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat video file: %w", err)
	}

	body := io.Reader(f)
	if progress != nil && info.Size() > 0 {
		body = &progressReader{r: f, total: info.Size(), report: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, body)
	if err != nil {
		return fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload to storage: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("storage returned status %d", resp.StatusCode)
	}
	return nil
}

// Verdicts maps the backend's moments onto the three verdict slots and a
// proportional timeline. Moments beyond the third are dropped.
func Verdicts(result *analysis.ThumbnailResult, duration float64) []Verdict {
	moments := result.Phase1.Moments
	if len(moments) > len(verdictSlots) {
		moments = moments[:len(verdictSlots)]
	}

	verdicts := make([]Verdict, 0, len(moments))
	for i, m := range moments {
		v := Verdict{Slot: verdictSlots[i], Moment: m}
		if seconds, ok := parseTimestampSeconds(m.Timestamp); ok && duration > 0 {
			v.Fraction = seconds / duration
		}
		verdicts = append(verdicts, v)
	}
	return verdicts
}

// parseTimestampSeconds reads backend timestamps like "8.5s", "22.0", or
// "1:23".
func parseTimestampSeconds(ts string) (float64, bool) {
	ts = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(ts), "s"))
	if ts == "" {
		return 0, false
	}

	if minutes, seconds, found := strings.Cut(ts, ":"); found {
		m, err1 := strconv.ParseFloat(minutes, 64)
		s, err2 := strconv.ParseFloat(seconds, 64)
		if err1 != nil || err2 != nil {
			return 0, false
		}
		return m*60 + s, true
	}

	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return 0, false
	}
	return seconds, true
}

type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.report(float64(p.read) / float64(p.total))
	}
	return n, err
}

// FFProbeDuration shells out to ffprobe for the container duration.
func FFProbeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe output %q: %w", strings.TrimSpace(string(output)), err)
	}
	return duration, nil
}
