package data

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"videomod/internal/biz"
	"videomod/internal/conf"
	"videomod/internal/pkg/bloom"
	"videomod/internal/pkg/hash"
	"videomod/internal/pkg/inference"
	"videomod/internal/pkg/media"
	pkgredis "videomod/internal/pkg/redis"

	"github.com/go-kratos/kratos/v2/log"
)

// Keys and sizing for the known-safe frame cache.
const (
	safeFrameBloomKey   = "videomod:bloom:safe_frames"
	safeFrameBloomBits  = 1 << 20 // ~1M bits = 128KB
	safeFrameBloomFuncs = 7

	safeFramePrefix = "videomod:safe_frame:"
	safeFrameTTL    = 7 * 24 * time.Hour
)

// NewToolkit creates the ffmpeg/ffprobe toolkit from configuration.
func NewToolkit(bc *conf.Bootstrap, logger log.Logger) media.Toolkit {
	c := media.DefaultConfig()
	if bc.Media.FFmpegPath != "" {
		c.FFmpegPath = bc.Media.FFmpegPath
	}
	if bc.Media.FFprobePath != "" {
		c.FFprobePath = bc.Media.FFprobePath
	}
	return media.NewFFmpegToolkit(c, logger)
}

// NewImageClassifier creates the NSFW image scoring client.
func NewImageClassifier(bc *conf.Bootstrap) inference.ImageClassifier {
	return inference.NewImageClient(inferenceConfig(bc, bc.Inference.ImageURL))
}

// NewTranscriber creates the speech-to-text client.
func NewTranscriber(bc *conf.Bootstrap) inference.Transcriber {
	return inference.NewSpeechClient(inferenceConfig(bc, bc.Inference.SpeechURL))
}

func inferenceConfig(bc *conf.Bootstrap, baseURL string) inference.Config {
	c := inference.DefaultConfig(baseURL)
	if bc.Inference.TimeoutSeconds > 0 {
		c.Timeout = time.Duration(bc.Inference.TimeoutSeconds) * time.Second
	}
	if bc.Inference.MaxRetries > 0 {
		c.MaxRetries = uint64(bc.Inference.MaxRetries)
	}
	return c
}

// NewPerceptualHasher creates the frame fingerprint hasher.
func NewPerceptualHasher() *hash.PerceptualHasher {
	return hash.NewPerceptualHasher()
}

// NewSafeFrameCache creates the Redis-backed cache of frames already
// classified as safe. A Bloom filter screens misses cheaply; a hit is
// only trusted once the exact per-frame record confirms it, so a filter
// collision falls through to a normal classification.
func NewSafeFrameCache(cache pkgredis.Cache) biz.SafeFrameCache {
	return &safeFrameCache{
		filter: bloom.NewBloomFilter(cache, safeFrameBloomKey, safeFrameBloomBits, safeFrameBloomFuncs),
		cache:  cache,
	}
}

type safeFrameCache struct {
	filter *bloom.Filter
	cache  pkgredis.Cache
}

func safeFrameKey(h *hash.FrameHash) string {
	return safeFramePrefix + hex.EncodeToString(h.Bytes())
}

// Remember writes the exact record first so the filter never claims a
// frame whose confirmation is missing.
func (c *safeFrameCache) Remember(ctx context.Context, h *hash.FrameHash) error {
	if err := c.cache.SetString(ctx, safeFrameKey(h), "1", safeFrameTTL); err != nil {
		return err
	}
	return c.filter.Add(ctx, h.Bytes())
}

// Contains reports whether the frame was recorded as safe. A filter hit
// without the exact record counts as a miss.
func (c *safeFrameCache) Contains(ctx context.Context, h *hash.FrameHash) (bool, error) {
	maybe, err := c.filter.Exists(ctx, h.Bytes())
	if err != nil || !maybe {
		return false, err
	}
	if _, err := c.cache.GetString(ctx, safeFrameKey(h)); err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
