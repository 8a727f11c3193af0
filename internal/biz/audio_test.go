package biz

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"videomod/internal/pkg/media"
	pkgredis "videomod/internal/pkg/redis"
)

// fakeTranscriber is a configurable inference.Transcriber for tests.
type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func newTestAnalyzer(tk media.Toolkit, tr *fakeTranscriber) *AudioAnalyzer {
	return NewAudioAnalyzer(DefaultAudioConfig(), tk, tr, nil, testLogger())
}

func TestAudioAnalyzer_ScoreTranscript(t *testing.T) {
	a := newTestAnalyzer(&fakeToolkit{}, &fakeTranscriber{})

	cases := []struct {
		transcript string
		want       float64
	}{
		// 5 tokens, 1 profane: min(1, 1/5*3) = 0.6
		{"this is a fuck test", 0.6},
		{"completely clean sentence here", 0},
		// punctuation and case are stripped before matching:
		// "F.U?CK!" cleans to "fuck", 1 token, min(1, 3) = 1
		{"F.U?CK!", 1},
		{"FUCK this", 1}, // 2 tokens, 1 profane: min(1, 1/2*3) = 1
		{"", 0},
		{"   ", 0},
	}
	for _, c := range cases {
		if got := a.ScoreTranscript(c.transcript); got != c.want {
			t.Errorf("ScoreTranscript(%q) = %v, want %v", c.transcript, got, c.want)
		}
	}
}

func TestAudioAnalyzer_ScoreTranscript_SubstringContainment(t *testing.T) {
	a := newTestAnalyzer(&fakeToolkit{}, &fakeTranscriber{})

	// "shitty" contains "shit": 5 tokens, 1 profane = min(1, 1/5*3) = 0.6
	if got := a.ScoreTranscript("what a shitty day today"); got != 0.6 {
		t.Errorf("Expected 0.6 (1/5*3), got %v", got)
	}
}

func TestAudioAnalyzer_Score_CleanAudio(t *testing.T) {
	tr := &fakeTranscriber{text: "a perfectly ordinary conversation"}
	a := newTestAnalyzer(&fakeToolkit{}, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0, got %v", got)
	}
	if tr.calls != 1 {
		t.Errorf("Expected 1 transcription call, got %d", tr.calls)
	}
}

func TestAudioAnalyzer_Score_NoAudioTrack(t *testing.T) {
	tr := &fakeTranscriber{}
	tk := &fakeToolkit{audioErr: fmt.Errorf("%w: in.mp4", media.ErrNoAudioStream)}
	a := newTestAnalyzer(tk, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0 for missing audio, got %v", got)
	}
	if tr.calls != 0 {
		t.Error("Transcriber must not be called when extraction is skipped")
	}
}

func TestAudioAnalyzer_Score_ExtractionFailureNonFatal(t *testing.T) {
	tk := &fakeToolkit{audioErr: errors.New("codec exploded")}
	a := newTestAnalyzer(tk, &fakeTranscriber{})

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0 on extraction failure, got %v", got)
	}
}

func TestAudioAnalyzer_Score_SilenceGate(t *testing.T) {
	tr := &fakeTranscriber{text: "should never be seen"}
	// Below MinAudioBytes: likely silence, skip transcription entirely.
	tk := &fakeToolkit{audioContent: make([]byte, 100)}
	a := newTestAnalyzer(tk, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0 for near-empty audio, got %v", got)
	}
	if tr.calls != 0 {
		t.Error("Transcriber must not be called for silent audio")
	}
}

func TestAudioAnalyzer_Score_TranscriptionFailureNonFatal(t *testing.T) {
	tr := &fakeTranscriber{err: errors.New("model unavailable")}
	a := newTestAnalyzer(&fakeToolkit{}, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0 on transcription failure, got %v", got)
	}
}

func TestAudioAnalyzer_Score_EmptyTranscript(t *testing.T) {
	tr := &fakeTranscriber{text: "   "}
	a := newTestAnalyzer(&fakeToolkit{}, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0 {
		t.Errorf("Expected score 0 for empty transcript, got %v", got)
	}
}

func TestAudioAnalyzer_Score_ProfaneAudio(t *testing.T) {
	tr := &fakeTranscriber{text: "this is a fuck test"}
	a := newTestAnalyzer(&fakeToolkit{}, tr)

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0.6 {
		t.Errorf("Expected 0.6, got %v", got)
	}
}

// mapCache stubs only the string operations the transcript cache uses.
type mapCache struct {
	pkgredis.Cache
	m map[string]string
}

func (c *mapCache) GetString(ctx context.Context, key string) (string, error) {
	v, ok := c.m[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (c *mapCache) SetString(ctx context.Context, key, value string, exp time.Duration) error {
	c.m[key] = value
	return nil
}

func TestAudioAnalyzer_Score_TranscriptCached(t *testing.T) {
	tr := &fakeTranscriber{text: "this is a fuck test"}
	cache := &mapCache{m: make(map[string]string)}
	a := NewAudioAnalyzer(DefaultAudioConfig(), &fakeToolkit{}, tr, cache, testLogger())

	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0.6 {
		t.Fatalf("First score = %v, want 0.6", got)
	}
	if tr.calls != 1 {
		t.Fatalf("Expected 1 transcription call, got %d", tr.calls)
	}

	// same audio bytes: the transcript comes from the cache
	if got := a.Score(context.Background(), "in.mp4", t.TempDir()); got != 0.6 {
		t.Fatalf("Second score = %v, want 0.6", got)
	}
	if tr.calls != 1 {
		t.Errorf("Expected cached transcript to skip transcription, got %d calls", tr.calls)
	}
}
