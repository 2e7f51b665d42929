package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/media"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/service/artifacts"
	"github.com/vidscribe/vidscribe/internal/service/recorder"
	"github.com/vidscribe/vidscribe/internal/service/transcription"
	"github.com/vidscribe/vidscribe/internal/storage"
	"github.com/vidscribe/vidscribe/internal/transport"
)

const videoContentType = "video/mp4"

// Outcome is the result of a completed processing session
type Outcome struct {
	VideoID      string
	StorageKey   string
	Duration     int
	ArtifactKeys map[model.ArtifactKind]string
	ArtifactURLs map[model.ArtifactKind]string
}

// Orchestrator drives one video through upload, metadata recording,
// transcription and artifact extraction. One session is active at a
// time; starting a new one supersedes the old.
type Orchestrator struct {
	gateway     storage.Gateway
	uploader    transport.Uploader
	transcriber transcription.Service
	extractor   artifacts.Extractor
	recorder    recorder.Service
	probe       func(path string) int

	events notifier

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

// NewOrchestrator wires a pipeline from its collaborators
func NewOrchestrator(
	gateway storage.Gateway,
	uploader transport.Uploader,
	transcriber transcription.Service,
	extractor artifacts.Extractor,
	rec recorder.Service,
) *Orchestrator {
	return &Orchestrator{
		gateway:     gateway,
		uploader:    uploader,
		transcriber: transcriber,
		extractor:   extractor,
		recorder:    rec,
		probe:       media.ProbeDuration,
		state:       State{Stage: StageIdle},
	}
}

// State returns a snapshot of the current session state
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Subscribe returns a channel of sequenced state updates. Slow readers
// miss updates instead of blocking the session.
func (o *Orchestrator) Subscribe() <-chan Update {
	return o.events.subscribe()
}

// Reset clears the session and cancels any in-flight work so stale
// calls cannot commit results
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	// Invalidate the generation so the superseded session's events are dropped
	o.gen++
	o.state = State{Stage: StageIdle}
	o.mu.Unlock()
	o.events.publish(State{Stage: StageIdle})
}

// ProcessFile runs the full pipeline for one local file. Upload and
// transcription failures are terminal. Artifact extraction failure is
// not: the session still completes, with an empty artifact set.
func (o *Orchestrator) ProcessFile(ctx context.Context, path, ownerID string) (*Outcome, error) {
	if !strings.EqualFold(filepath.Ext(path), ".mp4") {
		// Rejected before any state change or network call
		return nil, errors.New(errors.CodeInvalidArg, "only MP4 files are supported")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArg, "cannot open file")
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArg, "cannot stat file")
	}

	sessionCtx, gen := o.beginSession(ctx)
	defer o.endSession(gen)

	fileName := filepath.Base(path)
	duration := o.probe(path)

	o.apply(gen, Event{Type: EventFileChosen})
	o.apply(gen, Event{Type: EventSubmitStarted})

	upload, err := o.gateway.RequestUploadURL(sessionCtx, fileName, videoContentType)
	if err != nil {
		return nil, o.fail(gen, Event{Type: EventUploadFailed}, err)
	}

	err = o.uploader.Upload(sessionCtx, file, info.Size(), upload.URL, videoContentType, func(percent int) {
		o.apply(gen, Event{Type: EventProgressUpdated, Progress: percent})
	})
	if err != nil {
		return nil, o.fail(gen, Event{Type: EventUploadFailed}, err)
	}
	o.apply(gen, Event{Type: EventUploadSucceeded})

	videoID, err := o.recorder.RecordVideo(sessionCtx, fileName, upload.Key, duration, ownerID)
	if err != nil {
		// The object is stored but the session cannot continue
		return nil, o.fail(gen, Event{Type: EventRecordFailed}, err)
	}
	o.apply(gen, Event{Type: EventVideoRecorded})

	downloadURL, err := o.gateway.RequestDownloadURL(sessionCtx, upload.Key)
	if err != nil {
		return nil, o.fail(gen, Event{Type: EventTranscriptionFailed}, err)
	}

	result, err := o.transcriber.Transcribe(sessionCtx, downloadURL, fileName)
	if err != nil {
		return nil, o.fail(gen, Event{Type: EventTranscriptionFailed}, err)
	}
	o.apply(gen, Event{Type: EventTranscriptionSucceeded})

	outcome := &Outcome{
		VideoID:      videoID,
		StorageKey:   upload.Key,
		Duration:     duration,
		ArtifactKeys: map[model.ArtifactKind]string{},
		ArtifactURLs: map[model.ArtifactKind]string{},
	}

	extracted, err := o.extractor.Extract(sessionCtx, result, upload.Key)
	if err != nil {
		// Extraction is best-effort: the video and its transcription
		// succeeded, so the session completes without artifacts
		log.Warn().Err(err).Str("video_id", videoID).Msg("artifact extraction failed")
	} else {
		if _, err := o.recorder.RecordArtifacts(sessionCtx, videoID, extracted.Keys); err != nil {
			log.Warn().Err(err).Str("video_id", videoID).Msg("failed to record artifacts")
		}
		outcome.ArtifactKeys = extracted.Keys
		outcome.ArtifactURLs = extracted.URLs
	}

	o.apply(gen, Event{Type: EventExtractionFinished})
	return outcome, nil
}

// beginSession derives a cancellable context for one session and tags it
// with a generation, superseding any previous session
func (o *Orchestrator) beginSession(ctx context.Context) (context.Context, uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.gen++
	o.state = State{Stage: StageIdle}
	return sessionCtx, o.gen
}

// endSession cancels the session's context, but only while that session
// is still the current one. A superseded session must not tear down its
// successor.
func (o *Orchestrator) endSession(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.gen {
		return
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

// apply runs one transition for the given session and publishes the new
// state when it changed. Events from a superseded session are dropped so
// stale in-flight calls cannot commit results.
func (o *Orchestrator) apply(gen uint64, e Event) {
	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	next := Transition(o.state, e)
	changed := next != o.state
	o.state = next
	o.mu.Unlock()

	if changed {
		o.events.publish(next)
	}
}

// fail applies a failure event carrying the error as its reason
func (o *Orchestrator) fail(gen uint64, e Event, err error) error {
	e.Reason = err.Error()
	o.apply(gen, e)
	return err
}
