package biz

import (
	"context"
	"errors"
)

var (
	// ErrVideoNotFound indicates the requested video record does not exist.
	ErrVideoNotFound = errors.New("video not found")
	// ErrRunInFlight indicates another pipeline run already holds the lease
	// for this video.
	ErrRunInFlight = errors.New("processing run already in flight for video")
)

// ProcessingStatus is the lifecycle state of a video's pipeline run.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Classification is the final sensitivity verdict for a video.
type Classification string

const (
	ClassificationSafe        Classification = "safe"
	ClassificationFlagged     Classification = "flagged"
	ClassificationUnprocessed Classification = "unprocessed"
)

// Video is the persistent record mutated by the pipeline. It is created
// and deleted externally; the active run owns it between claim and
// terminal state.
type Video struct {
	ID       string
	OwnerID  string
	FilePath string

	DurationSeconds *int
	Width           *int
	Height          *int

	ProcessingStatus   ProcessingStatus
	ProcessingProgress int
	ProcessingError    *string

	SensitivityClassification Classification
	SensitivityScore          *float64
	AdultScore                *float64
	LanguageScore             *float64

	ThumbnailPath *string
	IsStreamReady bool
}

// VideoUpdate is a partial update of a Video record. Nil fields are left
// untouched. SetError/SetScore-style pairs exist because some columns must
// be explicitly nulled (reprocess resets them).
type VideoUpdate struct {
	DurationSeconds *int
	Width           *int
	Height          *int

	ProcessingStatus   *ProcessingStatus
	ProcessingProgress *int
	ProcessingError    *string
	ClearError         bool

	SensitivityClassification *Classification
	SensitivityScore          *float64
	AdultScore                *float64
	LanguageScore             *float64
	ClearScores               bool

	ThumbnailPath *string
	IsStreamReady *bool
}

// VideoRepo is the video record store.
type VideoRepo interface {
	FindByID(ctx context.Context, id string) (*Video, error)
	Update(ctx context.Context, id string, upd *VideoUpdate) error
}
