package artifacts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
	"github.com/vidscribe/vidscribe/internal/storage"
	"github.com/vidscribe/vidscribe/internal/transport"
)

const generatedPrefix = "generated/"

// artifactSpec fixes the storage suffix and content type per artifact kind
type artifactSpec struct {
	suffix      string
	contentType string
}

var specs = map[model.ArtifactKind]artifactSpec{
	model.KindTranscript: {suffix: ".transcript.txt", contentType: "text/plain"},
	model.KindWords:      {suffix: ".words.json", contentType: "application/json"},
	model.KindSRT:        {suffix: ".captions.srt", contentType: "text/plain"},
}

// Result carries the rendered artifact bodies plus, for each kind that
// made it into storage, its key and a presigned download URL
type Result struct {
	Payloads map[model.ArtifactKind]string
	Keys     map[model.ArtifactKind]string
	URLs     map[model.ArtifactKind]string
}

// Extractor derives transcript, word timing and caption artifacts from
// a transcription result and stores them alongside the source video
type Extractor interface {
	// Extract builds all derivable artifacts and uploads them in a fixed
	// order: transcript, words, srt. The srt rendition is required; its
	// absence fails the whole extraction before any upload happens. The
	// first upload failure aborts, returning whatever was stored so far.
	Extract(ctx context.Context, result *model.TranscriptionResult, sourceKey string) (*Result, error)
}

type extractor struct {
	gateway  storage.Gateway
	uploader transport.Uploader
}

// NewExtractor creates an artifact extractor
func NewExtractor(gateway storage.Gateway, uploader transport.Uploader) Extractor {
	return &extractor{gateway: gateway, uploader: uploader}
}

func (e *extractor) Extract(ctx context.Context, result *model.TranscriptionResult, sourceKey string) (*Result, error) {
	if result == nil {
		return nil, errors.New(errors.CodeInvalidArg, "missing transcription result")
	}
	if sourceKey == "" {
		return nil, errors.New(errors.CodeInvalidArg, "missing source storage key")
	}

	// All payloads are assembled before the first upload so a broken
	// result never leaves partial objects behind.
	payloads, err := buildPayloads(result)
	if err != nil {
		return nil, err
	}

	base := baseName(sourceKey)
	out := &Result{
		Payloads: payloads,
		Keys:     make(map[model.ArtifactKind]string),
		URLs:     make(map[model.ArtifactKind]string),
	}

	for _, kind := range model.ArtifactKinds {
		payload, ok := payloads[kind]
		if !ok {
			continue
		}
		spec := specs[kind]
		key := generatedPrefix + base + spec.suffix

		upload, err := e.gateway.RequestUploadURL(ctx, key, spec.contentType)
		if err != nil {
			return out, errors.Wrap(err, errors.CodeExtraction, "failed to presign artifact upload")
		}
		if err := e.uploader.UploadString(ctx, payload, upload.URL, spec.contentType, nil); err != nil {
			return out, errors.Wrap(err, errors.CodeExtraction, "failed to upload artifact")
		}
		downloadURL, err := e.gateway.RequestDownloadURL(ctx, upload.Key)
		if err != nil {
			return out, errors.Wrap(err, errors.CodeExtraction, "failed to presign artifact download")
		}

		out.Keys[kind] = upload.Key
		out.URLs[kind] = downloadURL

		log.Debug().
			Str("kind", string(kind)).
			Str("key", upload.Key).
			Msg("artifact stored")
	}

	return out, nil
}

// buildPayloads renders each artifact body from the transcription result.
// An empty transcript is skipped; srt is mandatory.
func buildPayloads(result *model.TranscriptionResult) (map[model.ArtifactKind]string, error) {
	payloads := make(map[model.ArtifactKind]string)

	if result.Text != "" {
		payloads[model.KindTranscript] = result.Text
	}

	words, err := json.MarshalIndent(result.Words, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExtraction, "failed to encode word timings")
	}
	payloads[model.KindWords] = string(words)

	srt, err := srtContent(result)
	if err != nil {
		return nil, err
	}
	payloads[model.KindSRT] = srt

	return payloads, nil
}

// srtContent pulls the srt rendition out of the additional formats,
// decoding it when the service base64-encoded the body
func srtContent(result *model.TranscriptionResult) (string, error) {
	format := result.AdditionalFormat("srt")
	if format == nil || format.Content == "" {
		return "", errors.New(errors.CodeExtraction, "transcription result has no srt rendition")
	}
	if format.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(format.Content)
		if err != nil {
			return "", errors.Wrap(err, errors.CodeExtraction, "failed to decode srt rendition")
		}
		return string(decoded), nil
	}
	return format.Content, nil
}

// baseName strips any path prefix and the final extension from a
// storage key, keeping the timestamp prefix intact
func baseName(key string) string {
	name := path.Base(key)
	return strings.TrimSuffix(name, path.Ext(name))
}
