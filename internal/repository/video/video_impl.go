package video

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/repository/common"
)

// Pool interface for abstracting pgx connection pool
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// videoRepository implements Repository using PostgreSQL
type videoRepository struct {
	pool Pool
}

// NewRepository creates a new instance of Repository
func NewRepository(pool Pool) Repository {
	return &videoRepository{
		pool: pool,
	}
}

// Create creates a new video record
func (r *videoRepository) Create(ctx context.Context, video *model.Video) error {
	sql := "INSERT INTO videos (id, filename, duration, storage_key, user_id, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	_, err := r.pool.Exec(ctx, sql, video.ID, video.Filename, video.Duration, video.StorageKey, video.UserID, video.CreatedAt)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to create video")
	}
	return nil
}

// GetByID retrieves a video by its ID
func (r *videoRepository) GetByID(ctx context.Context, id string) (*model.Video, error) {
	sql := "SELECT id, filename, duration, storage_key, user_id, created_at FROM videos WHERE id = $1"
	row := r.pool.QueryRow(ctx, sql, id)

	var video model.Video
	err := row.Scan(&video.ID, &video.Filename, &video.Duration, &video.StorageKey, &video.UserID, &video.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.Wrap(err, apperrors.CodeNotFound, "video not found")
		}
		return nil, common.HandlePostgreSQLError(err, "failed to get video")
	}

	return &video, nil
}

// ListByUserID retrieves videos owned by a user with pagination
func (r *videoRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*model.Video, error) {
	sql := "SELECT id, filename, duration, storage_key, user_id, created_at FROM videos WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3"
	rows, err := r.pool.Query(ctx, sql, userID, limit, offset)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to list videos by user ID")
	}
	defer rows.Close()

	videos := []*model.Video{}
	for rows.Next() {
		var video model.Video
		err := rows.Scan(&video.ID, &video.Filename, &video.Duration, &video.StorageKey, &video.UserID, &video.CreatedAt)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan video row")
		}
		videos = append(videos, &video)
	}

	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate video rows")
	}

	return videos, nil
}

// Delete deletes a video by its ID
func (r *videoRepository) Delete(ctx context.Context, id string) error {
	sql := "DELETE FROM videos WHERE id = $1"
	_, err := r.pool.Exec(ctx, sql, id)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete video")
	}
	return nil
}
