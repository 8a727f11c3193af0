package biz

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"videomod/internal/pkg/media"

	"github.com/go-kratos/kratos/v2/log"
)

// FrameSample is one extracted frame, owned exclusively by the active run
// and deleted with its directory at run end.
type FrameSample struct {
	Timestamp float64
	Path      string
}

// SamplerConfig holds configuration for frame sampling.
type SamplerConfig struct {
	SceneThreshold float64 // scene-change sensitivity passed to the toolkit
	MergeWindow    float64 // seconds; scene timestamps this close to a regular one are dropped
	ThumbnailWidth int     // pixels
}

// DefaultSamplerConfig returns default configuration.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		SceneThreshold: 0.3,
		MergeWindow:    0.5,
		ThumbnailWidth: 320,
	}
}

// FrameSampler selects and extracts representative frames using a hybrid
// fixed-interval/scene-change strategy.
type FrameSampler struct {
	config  SamplerConfig
	toolkit media.Toolkit
	log     *log.Helper
}

// NewFrameSampler creates a new FrameSampler.
func NewFrameSampler(config SamplerConfig, toolkit media.Toolkit, logger log.Logger) *FrameSampler {
	return &FrameSampler{
		config:  config,
		toolkit: toolkit,
		log:     log.NewHelper(logger),
	}
}

// SampleInterval returns the fixed sampling interval for a duration.
// Short clips are sampled densely, long ones sparsely.
func SampleInterval(duration float64) float64 {
	switch {
	case duration <= 15:
		return 1
	case duration <= 30:
		return 2
	case duration <= 120:
		return 3
	case duration <= 600:
		return 4
	case duration <= 1800:
		return 6
	default:
		return 8
	}
}

// RegularTimestamps generates the fixed-interval timestamps: starting at
// 0.5s, stepping by interval, up to but excluding duration. A near-zero
// duration falls back to the single midpoint.
func RegularTimestamps(duration, interval float64) []float64 {
	var out []float64
	for ts := 0.5; ts < duration; ts += interval {
		out = append(out, ts)
	}
	if len(out) == 0 && duration > 0 {
		out = append(out, duration/2)
	}
	return out
}

// MergeTimestamps appends the scene timestamps that are not within window
// of any regular timestamp, then returns the combined list sorted
// ascending with exact duplicates removed.
func MergeTimestamps(regular, scenes []float64, window float64) []float64 {
	merged := append([]float64(nil), regular...)
	for _, sc := range scenes {
		near := false
		for _, reg := range regular {
			if math.Abs(sc-reg) < window {
				near = true
				break
			}
		}
		if !near {
			merged = append(merged, sc)
		}
	}
	sort.Float64s(merged)

	dedup := merged[:0]
	for i, ts := range merged {
		if i == 0 || ts != merged[i-1] {
			dedup = append(dedup, ts)
		}
	}
	return dedup
}

// Plan computes the full ordered timestamp list for a file. Scene
// detection failure degrades to the regular timestamps alone.
func (s *FrameSampler) Plan(ctx context.Context, path string, duration float64) []float64 {
	interval := SampleInterval(duration)
	regular := RegularTimestamps(duration, interval)

	scenes, err := s.toolkit.DetectSceneChanges(ctx, path, duration, s.config.SceneThreshold)
	if err != nil {
		s.log.Warnf("scene detection failed for %s, using interval sampling only: %v", path, err)
		scenes = nil
	}

	return MergeTimestamps(regular, scenes, s.config.MergeWindow)
}

// Sample extracts one frame per planned timestamp into dir. A failure on
// an individual timestamp is logged and skipped. If nothing could be
// extracted, a single fallback frame at t=0 is attempted; an empty result
// is still a valid outcome.
func (s *FrameSampler) Sample(ctx context.Context, path string, duration float64, dir string) []FrameSample {
	timestamps := s.Plan(ctx, path, duration)

	frames := make([]FrameSample, 0, len(timestamps))
	for i, ts := range timestamps {
		outPath := filepath.Join(dir, fmt.Sprintf("frame_%04d.jpg", i))
		if err := s.toolkit.ExtractFrame(ctx, path, ts, outPath); err != nil {
			s.log.Warnf("frame extraction at %.3fs failed, skipping: %v", ts, err)
			continue
		}
		frames = append(frames, FrameSample{Timestamp: ts, Path: outPath})
	}

	if len(frames) == 0 {
		outPath := filepath.Join(dir, "frame_fallback.jpg")
		if err := s.toolkit.ExtractFrame(ctx, path, 0, outPath); err != nil {
			s.log.Warnf("fallback frame extraction failed, continuing with no frames: %v", err)
			return frames
		}
		frames = append(frames, FrameSample{Timestamp: 0, Path: outPath})
	}

	return frames
}

// Thumbnail extracts a single preview frame near min(1, duration) scaled
// to the configured width. Best-effort: the error is for logging only.
func (s *FrameSampler) Thumbnail(ctx context.Context, path string, duration float64, outPath string) error {
	ts := math.Min(1, duration)
	return s.toolkit.ExtractScaledFrame(ctx, path, ts, s.config.ThumbnailWidth, outPath)
}
