package biz

import (
	"context"
	"os"
	"strings"

	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/inference"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// SafeFrameCache remembers frames already classified as safe. Contains
// must be definitive: an implementation that screens with a
// probabilistic structure has to confirm the hit against an exact
// record before reporting true, or a collision would suppress a
// classification.
type SafeFrameCache interface {
	Remember(ctx context.Context, h *hash.FrameHash) error
	Contains(ctx context.Context, h *hash.FrameHash) (bool, error)
}

// VisualConfig holds configuration for frame classification.
type VisualConfig struct {
	BatchSize          int     // frames classified concurrently per batch
	NSFWLabel          string  // label name matched case-insensitively
	SafeCacheThreshold float64 // frames scoring below this are remembered as safe
	EnableFrameCache   bool    // perceptual-hash cache of known-safe frames
}

// DefaultVisualConfig returns default configuration.
func DefaultVisualConfig() VisualConfig {
	return VisualConfig{
		BatchSize:          4,
		NSFWLabel:          "nsfw",
		SafeCacheThreshold: 0.2,
		EnableFrameCache:   true,
	}
}

// VisualClassifier scores sampled frames through the external image
// classification service. Frames run in fixed-size batches: concurrent
// within a batch, batches sequential, so the inference service sees
// bounded parallelism.
type VisualClassifier struct {
	config     VisualConfig
	classifier inference.ImageClassifier
	hasher     *hash.PerceptualHasher
	safeFrames SafeFrameCache // may be nil when the cache is disabled
	log        *log.Helper
}

// NewVisualClassifier creates a new VisualClassifier. safeFrames may be
// nil to disable the known-safe frame cache.
func NewVisualClassifier(
	config VisualConfig,
	classifier inference.ImageClassifier,
	hasher *hash.PerceptualHasher,
	safeFrames SafeFrameCache,
	logger log.Logger,
) *VisualClassifier {
	return &VisualClassifier{
		config:     config,
		classifier: classifier,
		hasher:     hasher,
		safeFrames: safeFrames,
		log:        log.NewHelper(logger),
	}
}

// ScoreFrames returns one adult score per frame, in frame order. Any
// single frame's failure yields 0 for that frame without affecting the
// rest of its batch. onProgress, when non-nil, is invoked at each batch
// boundary with the number of frames settled so far.
func (v *VisualClassifier) ScoreFrames(ctx context.Context, frames []FrameSample, onProgress func(done, total int)) []float64 {
	scores := make([]float64, len(frames))
	if len(frames) == 0 {
		return scores
	}

	batch := v.config.BatchSize
	if batch <= 0 {
		batch = 1
	}

	for start := 0; start < len(frames); start += batch {
		end := start + batch
		if end > len(frames) {
			end = len(frames)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				scores[i] = v.scoreFrame(gctx, frames[i])
				return nil
			})
		}
		// workers never return errors; per-frame failures score 0
		_ = g.Wait()

		if onProgress != nil {
			onProgress(end, len(frames))
		}
	}

	return scores
}

// scoreFrame classifies one frame. Every failure path returns 0.
func (v *VisualClassifier) scoreFrame(ctx context.Context, frame FrameSample) float64 {
	data, err := os.ReadFile(frame.Path)
	if err != nil {
		v.log.Warnf("failed to read frame %s: %v", frame.Path, err)
		return 0
	}

	frameHash := v.frameHash(frame)
	if frameHash != nil && v.cacheHit(ctx, frameHash) {
		return 0
	}

	labels, err := v.classifier.Classify(ctx, data)
	if err != nil {
		v.log.Warnf("classification failed for frame at %.3fs: %v", frame.Timestamp, err)
		return 0
	}

	score := 0.0
	for _, label := range labels {
		if strings.EqualFold(label.Name, v.config.NSFWLabel) {
			score = label.Score
			break
		}
	}

	if frameHash != nil && score < v.config.SafeCacheThreshold {
		if err := v.safeFrames.Remember(ctx, frameHash); err != nil {
			v.log.Debugf("safe-frame cache add failed: %v", err)
		}
	}

	return score
}

func (v *VisualClassifier) frameHash(frame FrameSample) *hash.FrameHash {
	if !v.config.EnableFrameCache || v.safeFrames == nil || v.hasher == nil {
		return nil
	}
	h, err := v.hasher.ComputeFromFile(frame.Path)
	if err != nil {
		v.log.Debugf("frame hash failed for %s: %v", frame.Path, err)
		return nil
	}
	return h
}

// cacheHit reports whether the frame was previously seen and scored safe.
// Cache errors degrade to a miss.
func (v *VisualClassifier) cacheHit(ctx context.Context, h *hash.FrameHash) bool {
	hit, err := v.safeFrames.Contains(ctx, h)
	if err != nil {
		v.log.Debugf("safe-frame cache check failed: %v", err)
		return false
	}
	return hit
}
