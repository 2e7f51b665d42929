package artifact

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

// artifactRepository implements Repository using PostgreSQL
type artifactRepository struct {
	pool Pool
}

// NewRepository creates a new instance of Repository
func NewRepository(pool Pool) Repository {
	return &artifactRepository{
		pool: pool,
	}
}

// CreateBatch inserts multiple artifact records using bulk insert (COPY FROM)
func (r *artifactRepository) CreateBatch(ctx context.Context, artifacts []*model.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	// Prepare data for COPY FROM
	rows := make([][]any, len(artifacts))
	for i, a := range artifacts {
		rows[i] = []any{a.ID, a.VideoID, string(a.Kind), a.StorageKey, a.CreatedAt}
	}

	tableName := pgx.Identifier{"artifacts"}
	columnNames := []string{"id", "video_id", "type", "storage_key", "created_at"}
	copyFromSource := pgx.CopyFromRows(rows)

	_, err := r.pool.CopyFrom(ctx, tableName, columnNames, copyFromSource)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to create artifacts in batch using COPY FROM")
	}

	return nil
}

// ListByVideoID retrieves artifacts belonging to a video
func (r *artifactRepository) ListByVideoID(ctx context.Context, videoID string) ([]*model.Artifact, error) {
	sql := "SELECT id, video_id, type, storage_key, created_at FROM artifacts WHERE video_id = $1 ORDER BY created_at, id"
	rows, err := r.pool.Query(ctx, sql, videoID)
	if err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to list artifacts by video ID")
	}
	defer rows.Close()

	artifacts := []*model.Artifact{}
	for rows.Next() {
		var a model.Artifact
		err := rows.Scan(&a.ID, &a.VideoID, &a.Kind, &a.StorageKey, &a.CreatedAt)
		if err != nil {
			return nil, common.HandlePostgreSQLError(err, "failed to scan artifact row")
		}
		artifacts = append(artifacts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, common.HandlePostgreSQLError(err, "failed to iterate artifact rows")
	}

	return artifacts, nil
}

// DeleteByVideoID deletes all artifacts belonging to a video
func (r *artifactRepository) DeleteByVideoID(ctx context.Context, videoID string) error {
	sql := "DELETE FROM artifacts WHERE video_id = $1"
	_, err := r.pool.Exec(ctx, sql, videoID)
	if err != nil {
		return common.HandlePostgreSQLError(err, "failed to delete artifacts by video ID")
	}
	return nil
}
