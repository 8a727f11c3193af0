package media

import (
	"context"
	"errors"
	"time"
)

// ErrNoAudioStream reports that the source file has no usable audio track.
// Callers treat this as "silent video", not as a failure.
var ErrNoAudioStream = errors.New("media: no audio stream")

// Metadata holds the technical metadata probed from a media file.
type Metadata struct {
	Duration float64 // seconds
	Width    int
	Height   int
}

// Toolkit abstracts the media operations the pipeline needs. The ffmpeg
// implementation is the only production one; tests inject fakes.
type Toolkit interface {
	// Probe returns duration and resolution of the file at path.
	Probe(ctx context.Context, path string) (*Metadata, error)

	// ExtractFrame writes the frame nearest to timestamp as a JPEG at outPath.
	ExtractFrame(ctx context.Context, path string, timestamp float64, outPath string) error

	// ExtractScaledFrame is ExtractFrame with the output scaled to width,
	// height kept proportional.
	ExtractScaledFrame(ctx context.Context, path string, timestamp float64, width int, outPath string) error

	// ExtractAudio writes the audio track as mono 16kHz PCM WAV at outPath.
	// Returns ErrNoAudioStream (possibly wrapped) when the file has no audio.
	ExtractAudio(ctx context.Context, path, outPath string) error

	// DetectSceneChanges returns timestamps strictly between 0 and duration
	// where consecutive frames differ beyond threshold.
	DetectSceneChanges(ctx context.Context, path string, duration, threshold float64) ([]float64, error)
}

// Config holds configuration for the ffmpeg toolkit.
type Config struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration // per-invocation cap
}

// DefaultConfig returns default toolkit configuration.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     2 * time.Minute,
	}
}
