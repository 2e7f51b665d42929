package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/service/artifacts"
	"github.com/vidscribe/vidscribe/internal/storage"
	"github.com/vidscribe/vidscribe/internal/transport"
)

type fakeGateway struct {
	presignCalls int
	uploadErr    error
}

func (f *fakeGateway) RequestUploadURL(ctx context.Context, name, contentType string) (*storage.PresignedUpload, error) {
	f.presignCalls++
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &storage.PresignedUpload{
		URL: "https://storage.example.com/videos/123-" + name + "?sig=put",
		Key: "videos/123-" + name,
	}, nil
}

func (f *fakeGateway) RequestDownloadURL(ctx context.Context, key string) (string, error) {
	f.presignCalls++
	return "https://storage.example.com/" + key + "?sig=get", nil
}

func (f *fakeGateway) EnsureBucket(ctx context.Context) error { return nil }

type fakeUploader struct {
	err error
}

func (f *fakeUploader) Upload(ctx context.Context, body io.Reader, size int64, url, contentType string, onProgress transport.ProgressFunc) error {
	if f.err != nil {
		return f.err
	}
	if onProgress != nil {
		onProgress(50)
		onProgress(100)
	}
	return nil
}

func (f *fakeUploader) UploadString(ctx context.Context, payload, url, contentType string, onProgress transport.ProgressFunc) error {
	return f.Upload(ctx, nil, int64(len(payload)), url, contentType, onProgress)
}

type fakeTranscriber struct {
	result *model.TranscriptionResult
	err    error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, downloadURL, fileName string) (*model.TranscriptionResult, error) {
	return f.result, f.err
}

type fakeExtractor struct {
	result *artifacts.Result
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, result *model.TranscriptionResult, sourceKey string) (*artifacts.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeRecorder struct {
	videoID        string
	videoErr       error
	artifactRows   int
	artifactErr    error
	recordedVideos int
	recordedKinds  []map[model.ArtifactKind]string
}

func (f *fakeRecorder) RecordVideo(ctx context.Context, filename, storageKey string, duration int, ownerID string) (string, error) {
	if f.videoErr != nil {
		return "", f.videoErr
	}
	f.recordedVideos++
	return f.videoID, nil
}

func (f *fakeRecorder) RecordArtifacts(ctx context.Context, videoID string, keyByKind map[model.ArtifactKind]string) (int, error) {
	if f.artifactErr != nil {
		return 0, f.artifactErr
	}
	f.recordedKinds = append(f.recordedKinds, keyByKind)
	return f.artifactRows, nil
}

func tempVideo(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not real mp4 bytes"), 0o644))
	return path
}

type fixture struct {
	gateway     *fakeGateway
	uploader    *fakeUploader
	transcriber *fakeTranscriber
	extractor   *fakeExtractor
	recorder    *fakeRecorder
}

func newFixture() *fixture {
	return &fixture{
		gateway:  &fakeGateway{},
		uploader: &fakeUploader{},
		transcriber: &fakeTranscriber{
			result: &model.TranscriptionResult{Text: "hello"},
		},
		extractor: &fakeExtractor{
			result: &artifacts.Result{
				Keys: map[model.ArtifactKind]string{model.KindSRT: "generated/123-demo.captions.srt"},
				URLs: map[model.ArtifactKind]string{model.KindSRT: "https://storage.example.com/generated/123-demo.captions.srt?sig=get"},
			},
		},
		recorder: &fakeRecorder{videoID: "video-1", artifactRows: 1},
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	o := NewOrchestrator(f.gateway, f.uploader, f.transcriber, f.extractor, f.recorder)
	o.probe = func(string) int { return 42 }
	return o
}

func drain(ch <-chan Update) []Update {
	var updates []Update
	for {
		select {
		case u := <-ch:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func stages(updates []Update) []Stage {
	out := make([]Stage, 0, len(updates))
	for _, u := range updates {
		out = append(out, u.State.Stage)
	}
	return out
}

func TestOrchestrator_ProcessFile_Success(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()
	updates := o.Subscribe()

	outcome, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "video-1", outcome.VideoID)
	assert.Equal(t, "videos/123-demo.mp4", outcome.StorageKey)
	assert.Equal(t, 42, outcome.Duration)
	assert.Contains(t, outcome.ArtifactURLs, model.KindSRT)
	assert.Equal(t, 1, f.recorder.recordedVideos)
	require.Len(t, f.recorder.recordedKinds, 1)

	got := stages(drain(updates))
	assert.Equal(t, []Stage{
		StageFileSelected, StageUploading, StageUploading, StageUploading,
		StageUploaded, StageTranscribing, StageExtracting, StageCompleted,
	}, got)
	assert.Equal(t, StageCompleted, o.State().Stage)
}

func TestOrchestrator_ProcessFile_RejectsNonMP4(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()

	_, err := o.ProcessFile(context.Background(), tempVideo(t, "notes.txt"), "user-1")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInvalidArg, apperrors.Code(err))

	// No network call was made and the state did not move
	assert.Zero(t, f.gateway.presignCalls)
	assert.Equal(t, StageIdle, o.State().Stage)
}

func TestOrchestrator_ProcessFile_UploadFailure(t *testing.T) {
	f := newFixture()
	f.uploader.err = apperrors.New(apperrors.CodeTransport, "network error during upload")
	o := f.orchestrator()

	_, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.Error(t, err)

	state := o.State()
	assert.Equal(t, StageUploadFailed, state.Stage)
	assert.Contains(t, state.Reason, "network error")
	assert.Zero(t, f.recorder.recordedVideos)
	assert.Zero(t, f.extractor.calls)
}

func TestOrchestrator_ProcessFile_RecordFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.recorder.videoErr = apperrors.New(apperrors.CodeUnauthorized, "missing owner identity")
	o := f.orchestrator()

	_, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.Code(err))

	// Bytes are stored but the session surfaces an upload stage failure
	assert.Equal(t, StageUploadFailed, o.State().Stage)
	assert.Zero(t, f.extractor.calls)
}

func TestOrchestrator_ProcessFile_TranscriptionFailureIsTerminal(t *testing.T) {
	f := newFixture()
	f.transcriber.err = apperrors.New(apperrors.CodeExternal, "transcription service returned 500: boom")
	o := f.orchestrator()

	_, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.Error(t, err)

	state := o.State()
	assert.Equal(t, StageTranscriptionFailed, state.Stage)
	assert.Contains(t, state.Reason, "500")

	// Never reaches extraction, zero artifact rows
	assert.Zero(t, f.extractor.calls)
	assert.Empty(t, f.recorder.recordedKinds)
}

func TestOrchestrator_ProcessFile_ExtractionFailureSwallowed(t *testing.T) {
	f := newFixture()
	f.extractor.result = nil
	f.extractor.err = apperrors.New(apperrors.CodeExtraction, "transcription result has no srt rendition")
	o := f.orchestrator()

	outcome, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.NoError(t, err)

	// Session completes with the video recorded and no artifacts
	assert.Equal(t, StageCompleted, o.State().Stage)
	assert.Equal(t, 1, f.recorder.recordedVideos)
	assert.Empty(t, f.recorder.recordedKinds)
	assert.Empty(t, outcome.ArtifactKeys)
	assert.Empty(t, outcome.ArtifactURLs)
}

func TestOrchestrator_ProcessFile_ArtifactRecordFailureSwallowed(t *testing.T) {
	f := newFixture()
	f.recorder.artifactErr = apperrors.New(apperrors.CodeDependency, "referenced video does not exist")
	o := f.orchestrator()

	outcome, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, StageCompleted, o.State().Stage)

	// The stored objects are still reported even though the rows failed
	assert.Contains(t, outcome.ArtifactKeys, model.KindSRT)
}

// supersedeUploader blocks its first upload until the session context is
// cancelled, holding a transfer in flight; later uploads succeed.
type supersedeUploader struct {
	mu           sync.Mutex
	calls        int
	firstStarted chan struct{}
}

func (u *supersedeUploader) Upload(ctx context.Context, body io.Reader, size int64, url, contentType string, onProgress transport.ProgressFunc) error {
	u.mu.Lock()
	u.calls++
	first := u.calls == 1
	u.mu.Unlock()

	if first {
		close(u.firstStarted)
		<-ctx.Done()
		return apperrors.Wrap(ctx.Err(), apperrors.CodeTransport, "upload aborted")
	}
	if onProgress != nil {
		onProgress(100)
	}
	return nil
}

func (u *supersedeUploader) UploadString(ctx context.Context, payload, url, contentType string, onProgress transport.ProgressFunc) error {
	return u.Upload(ctx, nil, int64(len(payload)), url, contentType, onProgress)
}

func TestOrchestrator_ProcessFile_SupersededSessionCannotPoisonSuccessor(t *testing.T) {
	f := newFixture()
	uploader := &supersedeUploader{firstStarted: make(chan struct{})}
	o := NewOrchestrator(f.gateway, uploader, f.transcriber, f.extractor, f.recorder)
	o.probe = func(string) int { return 42 }

	firstPath := tempVideo(t, "first.mp4")
	firstErr := make(chan error, 1)
	go func() {
		_, err := o.ProcessFile(context.Background(), firstPath, "user-1")
		firstErr <- err
	}()
	<-uploader.firstStarted

	// Starting a second session cancels the blocked first one
	outcome, err := o.ProcessFile(context.Background(), tempVideo(t, "second.mp4"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "video-1", outcome.VideoID)

	// The superseded session surfaces the abort to its own caller
	err = <-firstErr
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTransport, apperrors.Code(err))

	// Neither its stale failure nor its teardown reaches the successor:
	// the second session ends Completed, not upload_failed
	state := o.State()
	assert.Equal(t, StageCompleted, state.Stage)
	assert.Empty(t, state.Reason)
}

func TestOrchestrator_Reset(t *testing.T) {
	f := newFixture()
	o := f.orchestrator()
	updates := o.Subscribe()

	_, err := o.ProcessFile(context.Background(), tempVideo(t, "demo.mp4"), "user-1")
	require.NoError(t, err)

	o.Reset()
	assert.Equal(t, StageIdle, o.State().Stage)

	got := stages(drain(updates))
	assert.Equal(t, StageIdle, got[len(got)-1])
}
