package pipeline

// Stage names the phase a processing session is in. Exactly one stage
// is active at a time.
type Stage string

const (
	StageIdle                Stage = "idle"
	StageFileSelected        Stage = "file_selected"
	StageUploading           Stage = "uploading"
	StageUploaded            Stage = "uploaded"
	StageTranscribing        Stage = "transcribing"
	StageExtracting          Stage = "extracting_artifacts"
	StageCompleted           Stage = "completed"
	StageUploadFailed        Stage = "upload_failed"
	StageTranscriptionFailed Stage = "transcription_failed"
)

// State is the full session state. Progress is meaningful only while
// uploading; Reason only in a failed stage.
type State struct {
	Stage    Stage
	Progress int
	Reason   string
}

// EventType classifies state machine inputs
type EventType string

const (
	EventFileChosen             EventType = "file_chosen"
	EventSubmitStarted          EventType = "submit_started"
	EventProgressUpdated        EventType = "progress_updated"
	EventUploadSucceeded        EventType = "upload_succeeded"
	EventUploadFailed           EventType = "upload_failed"
	EventVideoRecorded          EventType = "video_recorded"
	EventRecordFailed           EventType = "record_failed"
	EventTranscriptionSucceeded EventType = "transcription_succeeded"
	EventTranscriptionFailed    EventType = "transcription_failed"
	EventExtractionFinished     EventType = "extraction_finished"
	EventSessionCleared         EventType = "session_cleared"
)

// Event is one state machine input. Progress accompanies
// EventProgressUpdated; Reason accompanies the failure events.
type Event struct {
	Type     EventType
	Progress int
	Reason   string
}

// Transition computes the next state from the current one and an event.
// Pure function, no I/O. Events that make no sense in the current stage
// leave the state unchanged.
func Transition(s State, e Event) State {
	switch e.Type {
	case EventFileChosen:
		// Choosing a file always starts a fresh session
		return State{Stage: StageFileSelected}
	case EventSessionCleared:
		return State{Stage: StageIdle}
	}

	switch s.Stage {
	case StageFileSelected:
		if e.Type == EventSubmitStarted {
			return State{Stage: StageUploading}
		}

	case StageUploading:
		switch e.Type {
		case EventProgressUpdated:
			p := e.Progress
			if p < s.Progress {
				// Progress never regresses
				p = s.Progress
			}
			if p > 100 {
				p = 100
			}
			return State{Stage: StageUploading, Progress: p}
		case EventUploadSucceeded:
			return State{Stage: StageUploaded}
		case EventUploadFailed:
			return State{Stage: StageUploadFailed, Reason: e.Reason}
		}

	case StageUploaded:
		switch e.Type {
		case EventVideoRecorded:
			return State{Stage: StageTranscribing}
		case EventRecordFailed:
			// The bytes are stored but the session cannot continue, so
			// this surfaces as an upload stage failure
			return State{Stage: StageUploadFailed, Reason: e.Reason}
		}

	case StageTranscribing:
		switch e.Type {
		case EventTranscriptionSucceeded:
			return State{Stage: StageExtracting}
		case EventTranscriptionFailed:
			return State{Stage: StageTranscriptionFailed, Reason: e.Reason}
		}

	case StageExtracting:
		if e.Type == EventExtractionFinished {
			return State{Stage: StageCompleted}
		}
	}

	return s
}

// Terminal reports whether the stage ends a session
func (s Stage) Terminal() bool {
	switch s {
	case StageCompleted, StageUploadFailed, StageTranscriptionFailed:
		return true
	}
	return false
}

// Failed reports whether the stage is a failure outcome
func (s Stage) Failed() bool {
	return s == StageUploadFailed || s == StageTranscriptionFailed
}
