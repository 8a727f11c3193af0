package biz

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// EventKind is the type of a broadcast event.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventComplete EventKind = "complete"
	EventError    EventKind = "error"
)

// Notifier publishes an event payload to a subscriber group. Delivery is
// at-least-once and best-effort: disconnected subscribers miss events and
// late joiners get no replay.
type Notifier interface {
	Publish(ctx context.Context, group string, kind EventKind, payload any) error
}

// ProgressPayload is the payload of a progress event.
type ProgressPayload struct {
	VideoID  string `json:"video_id"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

// CompletePayload is the payload of a completion event.
type CompletePayload struct {
	VideoID        string  `json:"video_id"`
	Classification string  `json:"classification"`
	Score          float64 `json:"score"`
	AdultScore     float64 `json:"adult_score"`
	LanguageScore  float64 `json:"language_score"`
	ThumbnailPath  string  `json:"thumbnail_path,omitempty"`
}

// ErrorPayload is the payload of an error event.
type ErrorPayload struct {
	VideoID string `json:"video_id"`
	Error   string `json:"error"`
}

// VideoGroup returns the subscriber group key for a video's watchers.
func VideoGroup(videoID string) string { return "video:" + videoID }

// UserGroup returns the subscriber group key for the owning user.
func UserGroup(userID string) string { return "user:" + userID }

// Broadcaster persists each progress update to the video record and then
// publishes it to the video's watchers and its owning user.
type Broadcaster struct {
	repo     VideoRepo
	notifier Notifier
	log      *log.Helper
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(repo VideoRepo, notifier Notifier, logger log.Logger) *Broadcaster {
	return &Broadcaster{
		repo:     repo,
		notifier: notifier,
		log:      log.NewHelper(logger),
	}
}

// Progress persists the progress value and broadcasts a progress event.
// The persisted field is what late-joining subscribers observe.
func (b *Broadcaster) Progress(ctx context.Context, video *Video, stage string, progress int, message string) error {
	status := StatusProcessing
	if err := b.repo.Update(ctx, video.ID, &VideoUpdate{
		ProcessingStatus:   &status,
		ProcessingProgress: &progress,
	}); err != nil {
		return fmt.Errorf("failed to persist progress: %w", err)
	}

	b.publish(ctx, video, EventProgress, &ProgressPayload{
		VideoID:  video.ID,
		Stage:    stage,
		Progress: progress,
		Status:   string(StatusProcessing),
		Message:  message,
	})
	return nil
}

// Complete broadcasts the final classification payload.
func (b *Broadcaster) Complete(ctx context.Context, video *Video, payload *CompletePayload) {
	b.publish(ctx, video, EventComplete, payload)
}

// Error broadcasts a failure message.
func (b *Broadcaster) Error(ctx context.Context, video *Video, message string) {
	b.publish(ctx, video, EventError, &ErrorPayload{
		VideoID: video.ID,
		Error:   message,
	})
}

// publish sends the event to both logical groups. Publish failures are
// logged only; the broadcast contract is best-effort.
func (b *Broadcaster) publish(ctx context.Context, video *Video, kind EventKind, payload any) {
	for _, group := range []string{VideoGroup(video.ID), UserGroup(video.OwnerID)} {
		if err := b.notifier.Publish(ctx, group, kind, payload); err != nil {
			b.log.Warnf("failed to publish %s event to %s: %v", kind, group, err)
		}
	}
}
