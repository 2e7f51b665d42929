package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/repository/artifact"
	"github.com/vidscribe/vidscribe/internal/repository/video"
)

// Service records video and artifact metadata after the corresponding
// objects exist in storage
type Service interface {
	// RecordVideo inserts a Video row for an uploaded file and returns
	// its generated ID. An empty owner fails closed.
	RecordVideo(ctx context.Context, filename, storageKey string, duration int, ownerID string) (string, error)

	// RecordArtifacts inserts one artifact row per present kind, in the
	// fixed kind order. Absent kinds are ignored. Returns rows inserted.
	RecordArtifacts(ctx context.Context, videoID string, keyByKind map[model.ArtifactKind]string) (int, error)
}

type service struct {
	videos    video.Repository
	artifacts artifact.Repository
	now       func() time.Time
}

// NewService creates a metadata recorder
func NewService(videos video.Repository, artifacts artifact.Repository) Service {
	return &service{videos: videos, artifacts: artifacts, now: time.Now}
}

func (s *service) RecordVideo(ctx context.Context, filename, storageKey string, duration int, ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New(errors.CodeUnauthorized, "missing owner identity")
	}
	if filename == "" || storageKey == "" {
		return "", errors.New(errors.CodeInvalidArg, "missing filename or storage key")
	}

	v := &model.Video{
		ID:         uuid.NewString(),
		Filename:   filename,
		Duration:   duration,
		StorageKey: storageKey,
		UserID:     ownerID,
		CreatedAt:  s.now(),
	}
	if err := s.videos.Create(ctx, v); err != nil {
		return "", err
	}

	log.Debug().
		Str("video_id", v.ID).
		Str("storage_key", storageKey).
		Msg("video recorded")

	return v.ID, nil
}

func (s *service) RecordArtifacts(ctx context.Context, videoID string, keyByKind map[model.ArtifactKind]string) (int, error) {
	if videoID == "" {
		return 0, errors.New(errors.CodeInvalidArg, "missing video ID")
	}

	createdAt := s.now()
	rows := make([]*model.Artifact, 0, len(keyByKind))
	for _, kind := range model.ArtifactKinds {
		key, ok := keyByKind[kind]
		if !ok {
			continue
		}
		rows = append(rows, &model.Artifact{
			ID:         uuid.NewString(),
			VideoID:    videoID,
			Kind:       kind,
			StorageKey: key,
			CreatedAt:  &createdAt,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := s.artifacts.CreateBatch(ctx, rows); err != nil {
		return 0, err
	}

	log.Debug().
		Str("video_id", videoID).
		Int("count", len(rows)).
		Msg("artifacts recorded")

	return len(rows), nil
}
