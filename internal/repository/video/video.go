package video

import (
	"context"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Repository defines operations for Video persistence.
// Videos are immutable once recorded: there is no Update.
type Repository interface {
	// Create creates a new video record
	Create(ctx context.Context, video *model.Video) error

	// GetByID retrieves a video by its ID
	GetByID(ctx context.Context, id string) (*model.Video, error)

	// ListByUserID retrieves videos owned by a user with pagination
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.Video, error)

	// Delete deletes a video by its ID (artifacts cascade at the schema level)
	Delete(ctx context.Context, id string) error
}
