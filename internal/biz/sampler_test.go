package biz

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"

	"videomod/internal/pkg/media"

	"github.com/go-kratos/kratos/v2/log"
)

// fakeToolkit is a configurable media.Toolkit for tests.
type fakeToolkit struct {
	metadata     *media.Metadata
	probeErr     error
	scenes       []float64
	scenesErr    error
	frameErr     func(timestamp float64) error
	audioErr     error
	thumbErr     error
	audioContent []byte
	extracted    []float64
}

func (f *fakeToolkit) Probe(ctx context.Context, path string) (*media.Metadata, error) {
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	if f.metadata != nil {
		return f.metadata, nil
	}
	return &media.Metadata{Duration: 20, Width: 1280, Height: 720}, nil
}

func (f *fakeToolkit) ExtractFrame(ctx context.Context, path string, timestamp float64, outPath string) error {
	if f.frameErr != nil {
		if err := f.frameErr(timestamp); err != nil {
			return err
		}
	}
	f.extracted = append(f.extracted, timestamp)
	return os.WriteFile(outPath, []byte(fmt.Sprintf("frame@%f", timestamp)), 0o644)
}

func (f *fakeToolkit) ExtractScaledFrame(ctx context.Context, path string, timestamp float64, width int, outPath string) error {
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(outPath, []byte("thumb"), 0o644)
}

func (f *fakeToolkit) ExtractAudio(ctx context.Context, path, outPath string) error {
	if f.audioErr != nil {
		return f.audioErr
	}
	content := f.audioContent
	if content == nil {
		content = make([]byte, 8192)
	}
	return os.WriteFile(outPath, content, 0o644)
}

func (f *fakeToolkit) DetectSceneChanges(ctx context.Context, path string, duration, threshold float64) ([]float64, error) {
	if f.scenesErr != nil {
		return nil, f.scenesErr
	}
	return f.scenes, nil
}

func testLogger() log.Logger {
	return log.NewStdLogger(os.Stderr)
}

func TestSampleInterval(t *testing.T) {
	cases := []struct {
		duration float64
		want     float64
	}{
		{5, 1}, {15, 1}, {16, 2}, {30, 2}, {31, 3}, {120, 3},
		{121, 4}, {600, 4}, {601, 6}, {1800, 6}, {1801, 8}, {7200, 8},
	}
	for _, c := range cases {
		if got := SampleInterval(c.duration); got != c.want {
			t.Errorf("SampleInterval(%g) = %g, want %g", c.duration, got, c.want)
		}
	}
}

func TestRegularTimestamps_20s(t *testing.T) {
	got := RegularTimestamps(20, 2)
	want := []float64{0.5, 2.5, 4.5, 6.5, 8.5, 10.5, 12.5, 14.5, 16.5, 18.5}
	if len(got) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timestamps[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestRegularTimestamps_5s(t *testing.T) {
	got := RegularTimestamps(5, 1)
	want := []float64{0.5, 1.5, 2.5, 3.5, 4.5}
	if len(got) != len(want) {
		t.Fatalf("Expected %d timestamps, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("timestamps[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestRegularTimestamps_NearZeroDuration(t *testing.T) {
	got := RegularTimestamps(0.4, 1)
	if len(got) != 1 || got[0] != 0.2 {
		t.Errorf("Expected midpoint fallback [0.2], got %v", got)
	}

	if got := RegularTimestamps(0, 1); len(got) != 0 {
		t.Errorf("Expected no timestamps for zero duration, got %v", got)
	}
}

func TestMergeTimestamps(t *testing.T) {
	regular := []float64{0.5, 2.5, 4.5}
	// 2.7 is within 0.5s of 2.5 and must be dropped; 3.6 survives
	scenes := []float64{2.7, 3.6}

	got := MergeTimestamps(regular, scenes, 0.5)
	want := []float64{0.5, 2.5, 3.6, 4.5}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("merged[%d] = %g, want %g", i, got[i], want[i])
		}
	}
}

func TestMergeTimestamps_StrictlyAscendingNoDuplicates(t *testing.T) {
	regular := []float64{0.5, 2.5}
	scenes := []float64{1.5, 1.5, 4.0, 4.0}

	got := MergeTimestamps(regular, scenes, 0.5)
	if !sort.Float64sAreSorted(got) {
		t.Errorf("Expected sorted output, got %v", got)
	}
	for i := 1; i < len(got); i++ {
		if got[i] == got[i-1] {
			t.Errorf("Duplicate timestamp %g in %v", got[i], got)
		}
	}
}

func TestFrameSampler_Sample_SkipsFailedFrames(t *testing.T) {
	tk := &fakeToolkit{
		frameErr: func(ts float64) error {
			if ts == 2.5 {
				return errors.New("decode failure")
			}
			return nil
		},
	}
	s := NewFrameSampler(DefaultSamplerConfig(), tk, testLogger())

	frames := s.Sample(context.Background(), "in.mp4", 5, t.TempDir())
	if len(frames) != 4 {
		t.Fatalf("Expected 4 frames (one skipped), got %d", len(frames))
	}
	for _, fr := range frames {
		if fr.Timestamp == 2.5 {
			t.Error("Failed timestamp must not appear in output")
		}
	}
}

func TestFrameSampler_Sample_FallbackFrame(t *testing.T) {
	calls := 0
	tk := &fakeToolkit{
		frameErr: func(ts float64) error {
			calls++
			if ts != 0 {
				return errors.New("broken")
			}
			return nil
		},
	}
	s := NewFrameSampler(DefaultSamplerConfig(), tk, testLogger())

	frames := s.Sample(context.Background(), "in.mp4", 5, t.TempDir())
	if len(frames) != 1 {
		t.Fatalf("Expected single fallback frame, got %d", len(frames))
	}
	if frames[0].Timestamp != 0 {
		t.Errorf("Expected fallback at t=0, got %g", frames[0].Timestamp)
	}
}

func TestFrameSampler_Sample_EmptyWhenAllFail(t *testing.T) {
	tk := &fakeToolkit{
		frameErr: func(ts float64) error { return errors.New("broken") },
	}
	s := NewFrameSampler(DefaultSamplerConfig(), tk, testLogger())

	frames := s.Sample(context.Background(), "in.mp4", 5, t.TempDir())
	if len(frames) != 0 {
		t.Fatalf("Expected no frames, got %d", len(frames))
	}
}

func TestFrameSampler_Plan_SceneDetectionFailureDegrades(t *testing.T) {
	tk := &fakeToolkit{scenesErr: errors.New("scene filter crashed")}
	s := NewFrameSampler(DefaultSamplerConfig(), tk, testLogger())

	got := s.Plan(context.Background(), "in.mp4", 5)
	want := RegularTimestamps(5, 1)
	if len(got) != len(want) {
		t.Fatalf("Expected regular timestamps only, got %v", got)
	}
}

func TestFrameSampler_Plan_Deterministic(t *testing.T) {
	tk := &fakeToolkit{scenes: []float64{3.6, 7.1}}
	s := NewFrameSampler(DefaultSamplerConfig(), tk, testLogger())

	a := s.Plan(context.Background(), "in.mp4", 20)
	b := s.Plan(context.Background(), "in.mp4", 20)
	if len(a) != len(b) {
		t.Fatalf("Plan not deterministic: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Plan not deterministic at %d: %v vs %v", i, a, b)
		}
	}
}
