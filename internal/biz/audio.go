package biz

import (
	"context"
	"encoding/hex"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"videomod/internal/pkg/filter"
	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/inference"
	"videomod/internal/pkg/media"
	pkgredis "videomod/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

// AudioConfig holds configuration for audio language analysis.
type AudioConfig struct {
	MinAudioBytes     int           // extracted tracks below this size are treated as silence
	DensityMultiplier float64       // profane density scale factor
	Lexicon           []string      // fixed profanity word list
	TranscriptTTL     time.Duration // lifetime of cached transcripts
}

// DefaultAudioConfig returns default configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		MinAudioBytes:     4096,
		DensityMultiplier: 3,
		Lexicon:           DefaultLexicon(),
		TranscriptTTL:     24 * time.Hour,
	}
}

// DefaultLexicon is the built-in profanity word list. Matching is
// substring containment per transcript token, not semantic analysis.
func DefaultLexicon() []string {
	return []string{
		"fuck", "shit", "bitch", "cunt", "cock", "pussy", "dick",
		"asshole", "bastard", "slut", "whore", "nigger", "faggot",
		"motherfucker", "wanker", "twat", "prick",
	}
}

// AudioAnalyzer extracts the audio track, transcribes it, and scores
// profanity density against the lexicon. The whole stage is best-effort:
// every failure path yields score 0 and never aborts a run.
type AudioAnalyzer struct {
	config      AudioConfig
	toolkit     media.Toolkit
	transcriber inference.Transcriber
	automaton   *filter.AhoCorasick
	cache       pkgredis.Cache // may be nil to disable transcript caching
	log         *log.Helper
}

// NewAudioAnalyzer creates a new AudioAnalyzer with the lexicon automaton
// built from config. cache may be nil to disable transcript caching.
func NewAudioAnalyzer(
	config AudioConfig,
	toolkit media.Toolkit,
	transcriber inference.Transcriber,
	cache pkgredis.Cache,
	logger log.Logger,
) *AudioAnalyzer {
	automaton := filter.NewAhoCorasick()
	automaton.Build(config.Lexicon)
	return &AudioAnalyzer{
		config:      config,
		toolkit:     toolkit,
		transcriber: transcriber,
		automaton:   automaton,
		cache:       cache,
		log:         log.NewHelper(logger),
	}
}

// Score analyzes the audio track of the video at path, using workDir for
// the transient WAV file. It always returns a score in [0,1].
func (a *AudioAnalyzer) Score(ctx context.Context, path, workDir string) float64 {
	outPath := filepath.Join(workDir, "audio.wav")

	if err := a.toolkit.ExtractAudio(ctx, path, outPath); err != nil {
		if errors.Is(err, media.ErrNoAudioStream) {
			a.log.Debugf("no audio track in %s, skipping language analysis", path)
		} else {
			a.log.Warnf("audio extraction failed for %s, skipping language analysis: %v", path, err)
		}
		return 0
	}

	info, err := os.Stat(outPath)
	if err != nil {
		a.log.Warnf("failed to stat extracted audio: %v", err)
		return 0
	}
	if info.Size() < int64(a.config.MinAudioBytes) {
		a.log.Debugf("extracted audio is %d bytes, likely silence", info.Size())
		return 0
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		a.log.Warnf("failed to read extracted audio: %v", err)
		return 0
	}

	key := transcriptKey(data)
	transcript, hit := a.cachedTranscript(ctx, key)
	if !hit {
		transcript, err = a.transcriber.Transcribe(ctx, data)
		if err != nil {
			a.log.Warnf("transcription failed for %s: %v", path, err)
			return 0
		}
		a.storeTranscript(ctx, key, transcript)
	}
	if strings.TrimSpace(transcript) == "" {
		return 0
	}

	return a.ScoreTranscript(transcript)
}

// transcriptKey fingerprints the extracted audio so a reprocessed video
// skips the transcription call.
func transcriptKey(audio []byte) string {
	return "videomod:transcript:" + hex.EncodeToString(hash.FastHash(string(audio)))
}

func (a *AudioAnalyzer) cachedTranscript(ctx context.Context, key string) (string, bool) {
	if a.cache == nil {
		return "", false
	}
	transcript, err := a.cache.GetString(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.Nil) {
			a.log.Warnf("transcript cache lookup failed: %v", err)
		}
		return "", false
	}
	return transcript, true
}

func (a *AudioAnalyzer) storeTranscript(ctx context.Context, key, transcript string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.SetString(ctx, key, transcript, a.config.TranscriptTTL); err != nil {
		a.log.Warnf("failed to cache transcript: %v", err)
	}
}

// ScoreTranscript computes the profanity density score of a transcript:
// min(1, profaneTokens/totalTokens * multiplier), rounded.
func (a *AudioAnalyzer) ScoreTranscript(transcript string) float64 {
	tokens := strings.Fields(transcript)
	if len(tokens) == 0 {
		return 0
	}

	profane := 0
	for _, token := range tokens {
		cleaned := stripNonAlpha(token)
		if cleaned == "" {
			continue
		}
		if a.automaton.HasMatch(cleaned) {
			profane++
		}
	}

	density := float64(profane) / float64(len(tokens)) * a.config.DensityMultiplier
	return roundScore(math.Min(1, density))
}

// stripNonAlpha removes non-letter runes and lowercases the rest.
func stripNonAlpha(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
