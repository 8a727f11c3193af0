package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
)

// Default resolution reported when a file carries no video stream.
const (
	fallbackWidth  = 1920
	fallbackHeight = 1080
)

// FFmpegToolkit implements Toolkit by shelling out to ffmpeg/ffprobe.
type FFmpegToolkit struct {
	config Config
	log    *log.Helper
}

// NewFFmpegToolkit creates a new FFmpegToolkit.
func NewFFmpegToolkit(config Config, logger log.Logger) *FFmpegToolkit {
	return &FFmpegToolkit{
		config: config,
		log:    log.NewHelper(logger),
	}
}

// ffprobeOutput matches the JSON emitted by `ffprobe -print_format json`.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Probe returns duration and resolution of the file at path.
func (t *FFmpegToolkit) Probe(ctx context.Context, path string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.config.FFprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(out []byte) (*Metadata, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	duration, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", probe.Format.Duration, err)
	}

	md := &Metadata{
		Duration: duration,
		Width:    fallbackWidth,
		Height:   fallbackHeight,
	}
	for _, s := range probe.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			md.Width = s.Width
			md.Height = s.Height
			break
		}
	}
	return md, nil
}

// ExtractFrame writes the frame nearest to timestamp as a JPEG at outPath.
func (t *FFmpegToolkit) ExtractFrame(ctx context.Context, path string, timestamp float64, outPath string) error {
	return t.runFFmpeg(ctx,
		"-ss", formatSeconds(timestamp),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "2",
		"-y", outPath,
	)
}

// ExtractScaledFrame extracts a single frame scaled to width, height
// proportional.
func (t *FFmpegToolkit) ExtractScaledFrame(ctx context.Context, path string, timestamp float64, width int, outPath string) error {
	return t.runFFmpeg(ctx,
		"-ss", formatSeconds(timestamp),
		"-i", path,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", width),
		"-q:v", "2",
		"-y", outPath,
	)
}

// ExtractAudio writes the audio track as mono 16kHz PCM WAV at outPath.
func (t *FFmpegToolkit) ExtractAudio(ctx context.Context, path, outPath string) error {
	err := t.runFFmpeg(ctx,
		"-i", path,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y", outPath,
	)
	if err != nil && isNoAudioOutput(err.Error()) {
		return fmt.Errorf("%w: %s", ErrNoAudioStream, path)
	}
	return err
}

// isNoAudioOutput reports whether ffmpeg output indicates a missing or
// unsupported audio track rather than a real failure.
func isNoAudioOutput(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "does not contain any stream") ||
		strings.Contains(lower, "matches no streams") ||
		strings.Contains(lower, "no audio")
}

// DetectSceneChanges runs ffmpeg scene detection over the file and returns
// the flagged timestamps strictly between 0 and duration.
func (t *FFmpegToolkit) DetectSceneChanges(ctx context.Context, path string, duration, threshold float64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath,
		"-i", path,
		"-vf", fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold),
		"-f", "null", "-",
	)
	// showinfo writes to stderr
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg scene detection %s: %w: %s", path, err, truncate(string(out), 512))
	}

	times := parseShowinfoTimes(string(out))
	result := make([]float64, 0, len(times))
	for _, ts := range times {
		if ts > 0 && ts < duration {
			result = append(result, ts)
		}
	}
	return result, nil
}

var ptsTimeRe = regexp.MustCompile(`pts_time:([0-9]+(?:\.[0-9]+)?)`)

// parseShowinfoTimes extracts pts_time values from showinfo filter output.
func parseShowinfoTimes(out string) []float64 {
	matches := ptsTimeRe.FindAllStringSubmatch(out, -1)
	times := make([]float64, 0, len(matches))
	for _, m := range matches {
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		times = append(times, ts)
	}
	return times
}

func (t *FFmpegToolkit) runFFmpeg(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.log.Debugf("ffmpeg %s failed: %s", strings.Join(args, " "), truncate(string(out), 512))
		return fmt.Errorf("ffmpeg execution failed: %w: %s", err, truncate(string(out), 512))
	}
	return nil
}

func formatSeconds(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 3, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
