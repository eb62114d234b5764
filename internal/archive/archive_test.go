package archive

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidforge/vidforge/internal/domain"
	"github.com/vidforge/vidforge/shared/logger"
	"github.com/vidforge/vidforge/shared/postgresql"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping archive integration test")
	}

	client, err := postgresql.NewClient(&postgresql.Config{URL: url}, logger.NewDefault())
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
	})

	archive := New(client)

	ctx := context.Background()
	require.NoError(t, archive.EnsureSchema(ctx))

	_, err = client.GetDB().ExecContext(ctx, "TRUNCATE archived_jobs")
	require.NoError(t, err)

	return archive
}

func terminalJob(id string, status domain.Status, createdAt time.Time) domain.Job {
	job := domain.Job{
		ID:        id,
		Status:    status,
		InputText: "the history of tea",
		Voice:     "adam",
		CreatedAt: createdAt,
	}

	switch status {
	case domain.StatusCompleted:
		completedAt := createdAt.Add(2 * time.Minute)
		job.CompletedAt = &completedAt
		job.Script = "Did you know tea was discovered by accident?"
		job.ResultURL = "https://cdn.example.com/videos/video_" + id + ".mp4"
	case domain.StatusError:
		job.Error = "speech: service unavailable"
	}

	return job
}

func TestRecordAndList(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	createdAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	job := terminalJob("job-1", domain.StatusCompleted, createdAt)
	require.NoError(t, archive.Record(ctx, job))

	rows, err := archive.List(ctx, ListFilter{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, "the history of tea", got.InputText)
	assert.Equal(t, "adam", got.Voice)
	assert.Equal(t, job.Script, got.Script)
	assert.Equal(t, job.ResultURL, got.ResultURL)
	assert.Empty(t, got.Error)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(*job.CompletedAt))
	assert.False(t, got.ArchivedAt.IsZero())
}

func TestRecordUpsertsExistingJob(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	createdAt := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	failed := terminalJob("job-1", domain.StatusError, createdAt)
	require.NoError(t, archive.Record(ctx, failed))

	completed := terminalJob("job-1", domain.StatusCompleted, createdAt)
	require.NoError(t, archive.Record(ctx, completed))

	rows, err := archive.List(ctx, ListFilter{PageSize: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "completed", rows[0].Status)
	assert.Equal(t, completed.ResultURL, rows[0].ResultURL)
	assert.Empty(t, rows[0].Error)
}

func TestListFiltersByStatus(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, archive.Record(ctx, terminalJob("job-1", domain.StatusCompleted, base)))
	require.NoError(t, archive.Record(ctx, terminalJob("job-2", domain.StatusError, base.Add(time.Minute))))
	require.NoError(t, archive.Record(ctx, terminalJob("job-3", domain.StatusCompleted, base.Add(2*time.Minute))))

	rows, err := archive.List(ctx, ListFilter{Status: "error", PageSize: 10})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "job-2", rows[0].JobID)
}

func TestListPaginatesWithCursor(t *testing.T) {
	archive := newTestArchive(t)
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("job-%d", i)
		job := terminalJob(id, domain.StatusCompleted, base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, archive.Record(ctx, job))
	}

	// First page holds PageSize+1 rows when more data exists.
	first, err := archive.List(ctx, ListFilter{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, "job-4", first[0].JobID)
	assert.Equal(t, "job-3", first[1].JobID)

	cursor := &Cursor{CreatedAt: first[1].CreatedAt, JobID: first[1].JobID}
	second, err := archive.List(ctx, ListFilter{PageSize: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, second, 3)
	assert.Equal(t, "job-2", second[0].JobID)
	assert.Equal(t, "job-1", second[1].JobID)

	cursor = &Cursor{CreatedAt: second[1].CreatedAt, JobID: second[1].JobID}
	last, err := archive.List(ctx, ListFilter{PageSize: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "job-0", last[0].JobID)
}
