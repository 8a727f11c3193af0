package data

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"videomod/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgx/v5"
)

type videoRepo struct {
	data *Data
	log  *log.Helper
}

// NewVideoRepo creates a new video repository.
func NewVideoRepo(data *Data, logger log.Logger) biz.VideoRepo {
	return &videoRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

const findVideoQuery = `
SELECT id, owner_id, file_path,
       duration_seconds, width, height,
       processing_status, processing_progress, processing_error,
       sensitivity_classification, sensitivity_score, adult_score, language_score,
       thumbnail_path, is_stream_ready
FROM videos
WHERE id = $1`

func (r *videoRepo) FindByID(ctx context.Context, id string) (*biz.Video, error) {
	v := &biz.Video{}
	err := r.data.Pool.QueryRow(ctx, findVideoQuery, id).Scan(
		&v.ID, &v.OwnerID, &v.FilePath,
		&v.DurationSeconds, &v.Width, &v.Height,
		&v.ProcessingStatus, &v.ProcessingProgress, &v.ProcessingError,
		&v.SensitivityClassification, &v.SensitivityScore, &v.AdultScore, &v.LanguageScore,
		&v.ThumbnailPath, &v.IsStreamReady,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, biz.ErrVideoNotFound
		}
		return nil, fmt.Errorf("failed to query video %s: %w", id, err)
	}
	return v, nil
}

func (r *videoRepo) Update(ctx context.Context, id string, upd *biz.VideoUpdate) error {
	query, args := buildVideoUpdate(id, upd)
	tag, err := r.data.Pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update video %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return biz.ErrVideoNotFound
	}
	return nil
}

// buildVideoUpdate renders a partial UPDATE touching only the fields the
// update carries. updated_at is always refreshed; the id is the last arg.
func buildVideoUpdate(id string, upd *biz.VideoUpdate) (string, []any) {
	var (
		set  []string
		args []any
	)
	add := func(col string, val any) {
		args = append(args, val)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if upd.DurationSeconds != nil {
		add("duration_seconds", *upd.DurationSeconds)
	}
	if upd.Width != nil {
		add("width", *upd.Width)
	}
	if upd.Height != nil {
		add("height", *upd.Height)
	}
	if upd.ProcessingStatus != nil {
		add("processing_status", string(*upd.ProcessingStatus))
	}
	if upd.ProcessingProgress != nil {
		add("processing_progress", *upd.ProcessingProgress)
	}
	if upd.ProcessingError != nil {
		add("processing_error", *upd.ProcessingError)
	} else if upd.ClearError {
		set = append(set, "processing_error = NULL")
	}
	if upd.SensitivityClassification != nil {
		add("sensitivity_classification", string(*upd.SensitivityClassification))
	}
	if upd.SensitivityScore != nil {
		add("sensitivity_score", *upd.SensitivityScore)
	}
	if upd.AdultScore != nil {
		add("adult_score", *upd.AdultScore)
	}
	if upd.LanguageScore != nil {
		add("language_score", *upd.LanguageScore)
	}
	if upd.ClearScores {
		set = append(set,
			"sensitivity_score = NULL",
			"adult_score = NULL",
			"language_score = NULL")
	}
	if upd.ThumbnailPath != nil {
		add("thumbnail_path", *upd.ThumbnailPath)
	}
	if upd.IsStreamReady != nil {
		add("is_stream_ready", *upd.IsStreamReady)
	}

	set = append(set, "updated_at = now()")
	args = append(args, id)
	query := fmt.Sprintf("UPDATE videos SET %s WHERE id = $%d",
		strings.Join(set, ", "), len(args))
	return query, args
}
