package service

import (
	"context"
	stderrors "errors"

	"videomod/internal/biz"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// ProcessingService exposes the moderation pipeline over the transport
// layer: start a run, rerun a video, read back its state.
type ProcessingService struct {
	pipeline *biz.Pipeline
	repo     biz.VideoRepo
	log      *log.Helper
}

// NewProcessingService creates a new ProcessingService.
func NewProcessingService(pipeline *biz.Pipeline, repo biz.VideoRepo, logger log.Logger) *ProcessingService {
	return &ProcessingService{
		pipeline: pipeline,
		repo:     repo,
		log:      log.NewHelper(logger),
	}
}

// StartProcessingReply acknowledges an accepted run.
type StartProcessingReply struct {
	VideoID string `json:"video_id"`
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
}

// VideoStatusReply is the current pipeline state of a video.
type VideoStatusReply struct {
	VideoID            string   `json:"video_id"`
	ProcessingStatus   string   `json:"processing_status"`
	ProcessingProgress int      `json:"processing_progress"`
	ProcessingError    *string  `json:"processing_error,omitempty"`
	Classification     string   `json:"classification"`
	SensitivityScore   *float64 `json:"sensitivity_score,omitempty"`
	AdultScore         *float64 `json:"adult_score,omitempty"`
	LanguageScore      *float64 `json:"language_score,omitempty"`
	DurationSeconds    *int     `json:"duration_seconds,omitempty"`
	ThumbnailPath      *string  `json:"thumbnail_path,omitempty"`
	IsStreamReady      bool     `json:"is_stream_ready"`
}

// StartProcessing claims the video and runs the pipeline in the
// background. The reply returns as soon as the run is admitted.
func (s *ProcessingService) StartProcessing(ctx context.Context, videoID string) (*StartProcessingReply, error) {
	run, err := s.pipeline.Begin(ctx, videoID)
	if err != nil {
		return nil, s.mapError(videoID, err)
	}

	s.log.Infof("admitted run %s for video %s", run.ID, videoID)
	go func() {
		// detached from the request: the run outlives the HTTP call
		if err := run.Execute(context.Background()); err != nil {
			s.log.Errorf("run %s for video %s failed: %v", run.ID, videoID, err)
		}
	}()

	return &StartProcessingReply{
		VideoID: videoID,
		RunID:   run.ID,
		Status:  string(biz.StatusProcessing),
	}, nil
}

// Reprocess resets the video's moderation state and runs the pipeline
// again in the background.
func (s *ProcessingService) Reprocess(ctx context.Context, videoID string) (*StartProcessingReply, error) {
	run, err := s.pipeline.Reprocess(ctx, videoID)
	if err != nil {
		return nil, s.mapError(videoID, err)
	}

	s.log.Infof("admitted rerun %s for video %s", run.ID, videoID)
	go func() {
		if err := run.Execute(context.Background()); err != nil {
			s.log.Errorf("rerun %s for video %s failed: %v", run.ID, videoID, err)
		}
	}()

	return &StartProcessingReply{
		VideoID: videoID,
		RunID:   run.ID,
		Status:  string(biz.StatusProcessing),
	}, nil
}

// GetStatus returns the persisted pipeline state of the video.
func (s *ProcessingService) GetStatus(ctx context.Context, videoID string) (*VideoStatusReply, error) {
	video, err := s.repo.FindByID(ctx, videoID)
	if err != nil {
		return nil, s.mapError(videoID, err)
	}

	return &VideoStatusReply{
		VideoID:            video.ID,
		ProcessingStatus:   string(video.ProcessingStatus),
		ProcessingProgress: video.ProcessingProgress,
		ProcessingError:    video.ProcessingError,
		Classification:     string(video.SensitivityClassification),
		SensitivityScore:   video.SensitivityScore,
		AdultScore:         video.AdultScore,
		LanguageScore:      video.LanguageScore,
		DurationSeconds:    video.DurationSeconds,
		ThumbnailPath:      video.ThumbnailPath,
		IsStreamReady:      video.IsStreamReady,
	}, nil
}

func (s *ProcessingService) mapError(videoID string, err error) error {
	switch {
	case stderrors.Is(err, biz.ErrVideoNotFound):
		return errors.NotFound("VIDEO_NOT_FOUND", "video not found: "+videoID)
	case stderrors.Is(err, biz.ErrRunInFlight):
		return errors.Conflict("RUN_IN_FLIGHT", "video is already being processed: "+videoID)
	default:
		return err
	}
}
