package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vidscribe/vidscribe/internal/config"
	"github.com/vidscribe/vidscribe/internal/errors"
	"github.com/vidscribe/vidscribe/internal/model"
)

const speechToTextPath = "/v1/speech-to-text"

// Service defines operations for remote speech-to-text transcription
type Service interface {
	// Transcribe submits a fetchable download URL to the speech-to-text
	// service and returns its structured result. One round trip, no retry.
	Transcribe(ctx context.Context, downloadURL, fileName string) (*model.TranscriptionResult, error)
}

// client implements Service against the ElevenLabs speech-to-text API
type client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	modelID    string
}

// NewClient creates a new transcription client.
// A missing API key is a configuration error, not a request error.
func NewClient(cfg config.ElevenLabsConfig) (Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.CodeConfig, "ElevenLabs API key not configured")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	modelID := cfg.ModelID
	if modelID == "" {
		modelID = "scribe_v1"
	}

	return &client{
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		modelID:    modelID,
	}, nil
}

// NewClientWithHTTPClient creates a transcription client with a custom HTTP client (for testing)
func NewClientWithHTTPClient(cfg config.ElevenLabsConfig, httpClient *http.Client) (Service, error) {
	svc, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	svc.(*client).httpClient = httpClient
	return svc, nil
}

// Transcribe submits a download URL for diarized transcription plus an
// srt rendition as an additional output format
func (c *client) Transcribe(ctx context.Context, downloadURL, fileName string) (*model.TranscriptionResult, error) {
	if downloadURL == "" {
		return nil, errors.New(errors.CodeInvalidArg, "missing download URL")
	}

	body, contentType, err := c.buildRequestBody(downloadURL)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build transcription request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+speechToTextPath, body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to build transcription request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("xi-api-key", c.apiKey)

	log.Debug().Str("file", fileName).Msg("starting transcription")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "transcription request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Preserve vendor status and raw body for diagnostics
		raw, _ := io.ReadAll(resp.Body)
		return nil, errors.New(errors.CodeExternal,
			fmt.Sprintf("transcription service returned %d: %s", resp.StatusCode, string(raw)))
	}

	var result model.TranscriptionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.CodeExternal, "failed to decode transcription response")
	}

	log.Debug().
		Str("file", fileName).
		Str("language", result.LanguageCode).
		Int("words", len(result.Words)).
		Msg("transcription completed")

	return &result, nil
}

// buildRequestBody assembles the multipart form the speech-to-text API expects
func (c *client) buildRequestBody(downloadURL string) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := map[string]string{
		"cloud_storage_url":  downloadURL,
		"model_id":           c.modelID,
		"diarize":            "true",
		"additional_formats": `[{"format":"srt"}]`,
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return buf, w.FormDataContentType(), nil
}
