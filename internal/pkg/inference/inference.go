// Package inference holds the clients for the external classification
// services: NSFW image scoring and speech transcription. Both speak plain
// HTTP so they can be pointed at any model server exposing the expected
// routes.
package inference

import (
	"context"
	"time"
)

// Label is a single classification label with its score.
type Label struct {
	Name  string  `json:"label"`
	Score float64 `json:"score"`
}

// ImageClassifier scores an image against a set of content labels.
type ImageClassifier interface {
	Classify(ctx context.Context, image []byte) ([]Label, error)
}

// Transcriber converts an audio track into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Config holds configuration shared by the HTTP inference clients.
type Config struct {
	BaseURL    string        // service URL, e.g. "http://localhost:8080"
	Timeout    time.Duration // per-request timeout
	MaxRetries uint64        // retries on transient failures
}

// DefaultConfig returns default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:    baseURL,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}
