package artifact

import (
	"context"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Repository defines operations for Artifact persistence.
// Artifacts are append-only: re-running a transcription adds new rows,
// nothing is deduplicated or updated here.
type Repository interface {
	// CreateBatch inserts multiple artifact records
	CreateBatch(ctx context.Context, artifacts []*model.Artifact) error

	// ListByVideoID retrieves artifacts belonging to a video
	ListByVideoID(ctx context.Context, videoID string) ([]*model.Artifact, error)

	// DeleteByVideoID deletes all artifacts belonging to a video
	DeleteByVideoID(ctx context.Context, videoID string) error
}
