package video

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
)

func TestVideoRepository_Create(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		video   *model.Video
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr bool
	}{
		{
			name: "successful creation",
			video: &model.Video{
				ID:         "4f6b0d3e-9c1a-4f2b-8a77-1f0f6f2d9b11",
				Filename:   "demo.mp4",
				Duration:   212,
				StorageKey: "videos/1717243200000-demo.mp4",
				UserID:     "user-1",
				CreatedAt:  created,
			},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO videos").
					WithArgs("4f6b0d3e-9c1a-4f2b-8a77-1f0f6f2d9b11", "demo.mp4", 212, "videos/1717243200000-demo.mp4", "user-1", created).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
			wantErr: false,
		},
		{
			name: "database error",
			video: &model.Video{
				ID:         "4f6b0d3e-9c1a-4f2b-8a77-1f0f6f2d9b11",
				Filename:   "demo.mp4",
				Duration:   212,
				StorageKey: "videos/1717243200000-demo.mp4",
				UserID:     "user-1",
				CreatedAt:  created,
			},
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("INSERT INTO videos").
					WithArgs("4f6b0d3e-9c1a-4f2b-8a77-1f0f6f2d9b11", "demo.mp4", 212, "videos/1717243200000-demo.mp4", "user-1", created).
					WillReturnError(assert.AnError)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup pgxmock
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			// Setup expectations
			tt.setup(mock)

			// Create repository
			repo := NewRepository(mock)

			// Execute test
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			err = repo.Create(ctx, tt.video)

			// Verify result
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestVideoRepository_GetByID(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		rows := pgxmock.NewRows([]string{"id", "filename", "duration", "storage_key", "user_id", "created_at"}).
			AddRow("vid-1", "demo.mp4", 212, "videos/1717243200000-demo.mp4", "user-1", created)
		mock.ExpectQuery("SELECT id, filename, duration, storage_key, user_id, created_at FROM videos").
			WithArgs("vid-1").
			WillReturnRows(rows)

		repo := NewRepository(mock)
		video, err := repo.GetByID(context.Background(), "vid-1")
		require.NoError(t, err)
		assert.Equal(t, "demo.mp4", video.Filename)
		assert.Equal(t, "videos/1717243200000-demo.mp4", video.StorageKey)
		assert.Equal(t, 212, video.Duration)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery("SELECT id, filename, duration, storage_key, user_id, created_at FROM videos").
			WithArgs("missing").
			WillReturnRows(pgxmock.NewRows([]string{"id", "filename", "duration", "storage_key", "user_id", "created_at"}))

		repo := NewRepository(mock)
		_, err = repo.GetByID(context.Background(), "missing")
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeNotFound, apperrors.Code(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVideoRepository_ListByUserID(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := pgxmock.NewRows([]string{"id", "filename", "duration", "storage_key", "user_id", "created_at"}).
		AddRow("vid-2", "later.mp4", 30, "videos/1717243300000-later.mp4", "user-1", created.Add(time.Hour)).
		AddRow("vid-1", "demo.mp4", 212, "videos/1717243200000-demo.mp4", "user-1", created)
	mock.ExpectQuery("SELECT id, filename, duration, storage_key, user_id, created_at FROM videos").
		WithArgs("user-1", 10, 0).
		WillReturnRows(rows)

	repo := NewRepository(mock)
	videos, err := repo.ListByUserID(context.Background(), "user-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "vid-2", videos[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVideoRepository_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM videos").
		WithArgs("vid-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	repo := NewRepository(mock)
	require.NoError(t, repo.Delete(context.Background(), "vid-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
