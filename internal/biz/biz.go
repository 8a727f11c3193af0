package biz

import (
	"time"

	"videomod/internal/conf"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSamplerConfig,
	NewVisualConfig,
	NewAudioConfig,
	NewPipelineConfig,
	NewEngineConfig,
	NewFrameSampler,
	NewVisualClassifier,
	NewAudioAnalyzer,
	NewEngine,
	NewBroadcaster,
	NewPipeline,
)

// NewSamplerConfig builds the sampler configuration from bootstrap config.
func NewSamplerConfig(bc *conf.Bootstrap) SamplerConfig {
	c := DefaultSamplerConfig()
	if bc.Pipeline.SceneThreshold > 0 {
		c.SceneThreshold = bc.Pipeline.SceneThreshold
	}
	if bc.Pipeline.MergeWindow > 0 {
		c.MergeWindow = bc.Pipeline.MergeWindow
	}
	if bc.Pipeline.ThumbnailWidth > 0 {
		c.ThumbnailWidth = bc.Pipeline.ThumbnailWidth
	}
	return c
}

// NewEngineConfig builds the classification engine configuration from
// bootstrap config.
func NewEngineConfig(bc *conf.Bootstrap) EngineConfig {
	c := DefaultEngineConfig()
	if bc.Pipeline.AdultCutoff > 0 {
		c.AdultCutoff = bc.Pipeline.AdultCutoff
	}
	if bc.Pipeline.PeakCutoff > 0 {
		c.PeakCutoff = bc.Pipeline.PeakCutoff
	}
	if bc.Pipeline.LanguageCutoff > 0 {
		c.LanguageCutoff = bc.Pipeline.LanguageCutoff
	}
	return c
}

// NewVisualConfig builds the visual classifier configuration from
// bootstrap config.
func NewVisualConfig(bc *conf.Bootstrap) VisualConfig {
	c := DefaultVisualConfig()
	if bc.Pipeline.BatchSize > 0 {
		c.BatchSize = bc.Pipeline.BatchSize
	}
	return c
}

// NewAudioConfig builds the audio analyzer configuration from bootstrap
// config.
func NewAudioConfig(bc *conf.Bootstrap) AudioConfig {
	c := DefaultAudioConfig()
	if bc.Pipeline.MinAudioBytes > 0 {
		c.MinAudioBytes = bc.Pipeline.MinAudioBytes
	}
	if len(bc.Pipeline.Lexicon) > 0 {
		c.Lexicon = bc.Pipeline.Lexicon
	}
	return c
}

// NewPipelineConfig builds the orchestrator configuration from bootstrap
// config.
func NewPipelineConfig(bc *conf.Bootstrap) PipelineConfig {
	c := DefaultPipelineConfig()
	if bc.Media.WorkDir != "" {
		c.WorkDir = bc.Media.WorkDir
	}
	if bc.Pipeline.LeaseTTLSeconds > 0 {
		c.LeaseTTL = time.Duration(bc.Pipeline.LeaseTTLSeconds) * time.Second
	}
	return c
}
