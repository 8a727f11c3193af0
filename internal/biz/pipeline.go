package biz

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"videomod/internal/pkg/media"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// ExtractionError is the fatal failure of the metadata probe. No video
// can be processed without its duration, so this aborts the whole run.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("metadata extraction failed for %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RunLease is the single-flight discipline: at most one live run per
// video id. Acquire reports false when another run holds the lease.
type RunLease interface {
	Acquire(ctx context.Context, videoID, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, videoID, token string) error
}

// PipelineConfig holds configuration for the orchestrator.
type PipelineConfig struct {
	WorkDir  string        // parent of per-run temp dirs
	LeaseTTL time.Duration // upper bound on a run's lifetime
}

// DefaultPipelineConfig returns default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		WorkDir:  os.TempDir(),
		LeaseTTL: 30 * time.Minute,
	}
}

// Stage names carried on progress events.
const (
	StageValidate = "validate"
	StageMetadata = "metadata"
	StageSampling = "sampling"
	StageVisual   = "visual_analysis"
	StageAudio    = "audio_analysis"
	StageClassify = "classify"
	StageFinalize = "finalize"
)

// Pipeline orchestrates a full moderation run: validate, extract
// metadata, sample frames, classify, combine, finalize. Stage boundaries
// broadcast progress; fatal errors route through a single failure path.
type Pipeline struct {
	config      PipelineConfig
	repo        VideoRepo
	toolkit     media.Toolkit
	sampler     *FrameSampler
	visual      *VisualClassifier
	audio       *AudioAnalyzer
	engine      *Engine
	broadcaster *Broadcaster
	lease       RunLease
	log         *log.Helper
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	config PipelineConfig,
	repo VideoRepo,
	toolkit media.Toolkit,
	sampler *FrameSampler,
	visual *VisualClassifier,
	audio *AudioAnalyzer,
	engine *Engine,
	broadcaster *Broadcaster,
	lease RunLease,
	logger log.Logger,
) *Pipeline {
	return &Pipeline{
		config:      config,
		repo:        repo,
		toolkit:     toolkit,
		sampler:     sampler,
		visual:      visual,
		audio:       audio,
		engine:      engine,
		broadcaster: broadcaster,
		lease:       lease,
		log:         log.NewHelper(logger),
	}
}

// Run is a single pipeline execution handle. Its ID doubles as the lease
// token and the name of the run-scoped temp directory.
type Run struct {
	ID string

	p            *Pipeline
	video        *Video
	workDir      string
	lastProgress int
}

// Begin acquires the single-flight lease for the video and loads its
// record. A second concurrent Begin for the same video returns
// ErrRunInFlight.
func (p *Pipeline) Begin(ctx context.Context, videoID string) (*Run, error) {
	runID := uuid.NewString()

	ok, err := p.lease.Acquire(ctx, videoID, runID, p.config.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lease: %w", err)
	}
	if !ok {
		return nil, ErrRunInFlight
	}

	video, err := p.repo.FindByID(ctx, videoID)
	if err != nil {
		if relErr := p.lease.Release(ctx, videoID, runID); relErr != nil {
			p.log.Warnf("failed to release lease for %s: %v", videoID, relErr)
		}
		return nil, err
	}

	return &Run{
		ID:      runID,
		p:       p,
		video:   video,
		workDir: filepath.Join(p.config.WorkDir, "run_"+runID),
	}, nil
}

// Reprocess resets the record to its pre-run state and returns a fresh
// run. The rerun is indistinguishable from a first run.
func (p *Pipeline) Reprocess(ctx context.Context, videoID string) (*Run, error) {
	run, err := p.Begin(ctx, videoID)
	if err != nil {
		return nil, err
	}

	pending := StatusPending
	zero := 0
	unprocessed := ClassificationUnprocessed
	notReady := false
	if err := p.repo.Update(ctx, videoID, &VideoUpdate{
		ProcessingStatus:          &pending,
		ProcessingProgress:        &zero,
		ClearError:                true,
		SensitivityClassification: &unprocessed,
		ClearScores:               true,
		IsStreamReady:             &notReady,
	}); err != nil {
		run.release(ctx)
		return nil, fmt.Errorf("failed to reset video for reprocessing: %w", err)
	}

	run.video.ProcessingStatus = pending
	run.video.ProcessingProgress = 0
	run.video.ProcessingError = nil
	run.video.SensitivityClassification = unprocessed
	run.video.SensitivityScore = nil
	run.video.AdultScore = nil
	run.video.LanguageScore = nil
	run.video.IsStreamReady = false

	return run, nil
}

// Process runs the full pipeline for the video synchronously.
func (p *Pipeline) Process(ctx context.Context, videoID string) error {
	run, err := p.Begin(ctx, videoID)
	if err != nil {
		return err
	}
	return run.Execute(ctx)
}

// Execute drives the run to a terminal state. It never leaves the record
// mid-flight: every outcome ends in completed or failed, ephemeral files
// are removed, and the lease is released.
func (r *Run) Execute(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected failure: %v", rec)
			r.fail(ctx, err)
		}
		if rmErr := os.RemoveAll(r.workDir); rmErr != nil {
			r.p.log.Warnf("failed to remove run dir %s: %v", r.workDir, rmErr)
		}
		r.release(ctx)
	}()

	if err = r.execute(ctx); err != nil {
		r.fail(ctx, err)
		return err
	}
	return nil
}

func (r *Run) execute(ctx context.Context) error {
	video := r.video
	r.p.log.Infof("run %s: processing video %s", r.ID, video.ID)

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create run dir: %w", err)
	}

	// Validate: 0-10
	if err := r.progress(ctx, StageValidate, 0, "starting processing"); err != nil {
		return err
	}
	if _, err := os.Stat(video.FilePath); err != nil {
		return fmt.Errorf("source file missing: %s", video.FilePath)
	}
	if err := r.progress(ctx, StageValidate, 10, "validation complete"); err != nil {
		return err
	}

	// Metadata + frames + thumbnail: 10-30
	md, err := r.p.toolkit.Probe(ctx, video.FilePath)
	if err != nil {
		return &ExtractionError{Path: video.FilePath, Err: err}
	}
	duration := int(math.Round(md.Duration))
	if err := r.p.repo.Update(ctx, video.ID, &VideoUpdate{
		DurationSeconds: &duration,
		Width:           &md.Width,
		Height:          &md.Height,
	}); err != nil {
		return fmt.Errorf("failed to persist metadata: %w", err)
	}
	if err := r.progress(ctx, StageMetadata, 15, "metadata extracted"); err != nil {
		return err
	}

	framesDir := filepath.Join(r.workDir, "frames")
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return fmt.Errorf("failed to create frames dir: %w", err)
	}
	frames := r.p.sampler.Sample(ctx, video.FilePath, md.Duration, framesDir)
	if err := r.progress(ctx, StageSampling, 25, fmt.Sprintf("extracted %d frames", len(frames))); err != nil {
		return err
	}

	r.generateThumbnail(ctx, md.Duration)
	if err := r.progress(ctx, StageSampling, 30, "sampling complete"); err != nil {
		return err
	}

	// Visual analysis: 30-60
	var progressErr error
	frameScores := r.p.visual.ScoreFrames(ctx, frames, func(done, total int) {
		pct := 30 + 30*done/total
		if err := r.progress(ctx, StageVisual, pct, fmt.Sprintf("analyzed %d/%d frames", done, total)); err != nil {
			progressErr = err
		}
	})
	if progressErr != nil {
		return progressErr
	}

	// Audio analysis: 60-75
	languageScore := r.p.audio.Score(ctx, video.FilePath, r.workDir)
	if err := r.progress(ctx, StageAudio, 75, "audio analysis complete"); err != nil {
		return err
	}

	// Classify: 75-90
	result := r.p.engine.Combine(frameScores, languageScore)
	if err := r.p.repo.Update(ctx, video.ID, &VideoUpdate{
		SensitivityClassification: &result.Classification,
		SensitivityScore:          &result.OverallScore,
		AdultScore:                &result.AdultScore,
		LanguageScore:             &result.LanguageScore,
	}); err != nil {
		return fmt.Errorf("failed to persist classification: %w", err)
	}
	if err := r.progress(ctx, StageClassify, 90, fmt.Sprintf("classified as %s", result.Classification)); err != nil {
		return err
	}

	// Finalize: 90-100. The 100% boundary broadcasts first; the terminal
	// status overwrites the persisted record after.
	if err := r.progress(ctx, StageFinalize, 100, "processing complete"); err != nil {
		return err
	}
	completed := StatusCompleted
	full := 100
	ready := true
	if err := r.p.repo.Update(ctx, video.ID, &VideoUpdate{
		ProcessingStatus:   &completed,
		ProcessingProgress: &full,
		IsStreamReady:      &ready,
	}); err != nil {
		return fmt.Errorf("failed to finalize video: %w", err)
	}

	payload := &CompletePayload{
		VideoID:        video.ID,
		Classification: string(result.Classification),
		Score:          result.OverallScore,
		AdultScore:     result.AdultScore,
		LanguageScore:  result.LanguageScore,
	}
	if video.ThumbnailPath != nil {
		payload.ThumbnailPath = *video.ThumbnailPath
	}
	r.p.broadcaster.Complete(ctx, video, payload)

	r.p.log.Infof("run %s: video %s completed as %s (score %.3f)",
		r.ID, video.ID, result.Classification, result.OverallScore)
	return nil
}

// generateThumbnail is best-effort: any failure leaves thumbnailPath null.
func (r *Run) generateThumbnail(ctx context.Context, duration float64) {
	video := r.video
	thumbPath := filepath.Join(filepath.Dir(video.FilePath), video.ID+"_thumb.jpg")
	if err := r.p.sampler.Thumbnail(ctx, video.FilePath, duration, thumbPath); err != nil {
		r.p.log.Warnf("thumbnail generation failed for %s: %v", video.ID, err)
		return
	}
	if err := r.p.repo.Update(ctx, video.ID, &VideoUpdate{ThumbnailPath: &thumbPath}); err != nil {
		r.p.log.Warnf("failed to persist thumbnail path for %s: %v", video.ID, err)
		return
	}
	video.ThumbnailPath = &thumbPath
}

// progress broadcasts a stage boundary. Values are clamped so observers
// never see the percentage decrease within the run.
func (r *Run) progress(ctx context.Context, stage string, pct int, message string) error {
	if pct < r.lastProgress {
		pct = r.lastProgress
	}
	r.lastProgress = pct
	return r.p.broadcaster.Progress(ctx, r.video, stage, pct, message)
}

// fail routes any fatal error through the single failure path: persist
// status=failed with the message, broadcast the error event. Progress
// freezes at the last value reached.
func (r *Run) fail(ctx context.Context, cause error) {
	msg := cause.Error()
	failed := StatusFailed
	if err := r.p.repo.Update(ctx, r.video.ID, &VideoUpdate{
		ProcessingStatus: &failed,
		ProcessingError:  &msg,
	}); err != nil {
		r.p.log.Errorf("failed to persist failure for %s: %v", r.video.ID, err)
	}
	r.p.broadcaster.Error(ctx, r.video, msg)
	r.p.log.Errorf("run %s: video %s failed: %s", r.ID, r.video.ID, msg)
}

func (r *Run) release(ctx context.Context) {
	if err := r.p.lease.Release(ctx, r.video.ID, r.ID); err != nil {
		r.p.log.Warnf("failed to release lease for %s: %v", r.video.ID, err)
	}
}
