package model

import (
	"fmt"
	"time"
)

// Video represents an uploaded source video file
type Video struct {
	ID         string    `json:"id" db:"id"`
	Filename   string    `json:"filename" db:"filename"`
	Duration   int       `json:"duration" db:"duration"` // duration in whole seconds, 0 if unknown
	StorageKey string    `json:"storage_key" db:"storage_key"`
	UserID     string    `json:"user_id" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ArtifactKind identifies the type of a derived artifact
type ArtifactKind string

// The closed set of artifact kinds; no others are permitted
const (
	KindTranscript ArtifactKind = "transcript"
	KindWords      ArtifactKind = "words"
	KindSRT        ArtifactKind = "srt"
)

// ArtifactKinds lists all kinds in their fixed processing order
var ArtifactKinds = []ArtifactKind{KindTranscript, KindWords, KindSRT}

// ParseArtifactKind validates a raw kind string against the closed set
func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch ArtifactKind(s) {
	case KindTranscript, KindWords, KindSRT:
		return ArtifactKind(s), nil
	}
	return "", fmt.Errorf("unknown artifact kind: %q", s)
}

// Artifact represents a derived output file linked to a Video.
// Rows are append-only: a transcription re-run creates new rows rather
// than mutating existing ones.
type Artifact struct {
	ID         string       `json:"id" db:"id"`
	VideoID    string       `json:"video_id" db:"video_id"`
	Kind       ArtifactKind `json:"type" db:"type"`
	StorageKey string       `json:"storage_key" db:"storage_key"`
	CreatedAt  *time.Time   `json:"created_at,omitempty" db:"created_at"` // nil until the upload confirms
}
