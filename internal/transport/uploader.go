package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vidscribe/vidscribe/internal/errors"
)

// ProgressFunc receives upload progress as a monotonically
// non-decreasing percentage between 0 and 100
type ProgressFunc func(percent int)

// Uploader moves a payload to a presigned storage URL
type Uploader interface {
	// Upload PUTs body to url. When size is known (>= 0) progress events
	// fire as bytes are sent; when unknown (< 0) only the final 100 fires.
	// Exactly one terminal outcome occurs per call: a nil return after a
	// 2xx response, or a transport error.
	Upload(ctx context.Context, body io.Reader, size int64, url, contentType string, onProgress ProgressFunc) error

	// UploadString uploads a text payload
	UploadString(ctx context.Context, payload, url, contentType string, onProgress ProgressFunc) error
}

// httpUploader implements Uploader over net/http
type httpUploader struct {
	client *http.Client
}

// NewUploader creates an Uploader with a default HTTP client
func NewUploader() Uploader {
	return &httpUploader{
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

// NewUploaderWithClient creates an Uploader with a custom HTTP client (for testing)
func NewUploaderWithClient(client *http.Client) Uploader {
	return &httpUploader{client: client}
}

// Upload PUTs body to url, reporting progress as the body is consumed
func (u *httpUploader) Upload(ctx context.Context, body io.Reader, size int64, url, contentType string, onProgress ProgressFunc) error {
	if url == "" {
		return errors.New(errors.CodeInvalidArg, "missing upload URL")
	}

	reader := &progressReader{
		reader:     body,
		total:      size,
		onProgress: onProgress,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return errors.Wrap(err, errors.CodeTransport, "failed to build upload request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := u.client.Do(req)
	if err != nil {
		// Caller-initiated abort surfaces distinctly from a network failure
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), errors.CodeTransport, "upload aborted")
		}
		return errors.Wrap(err, errors.CodeTransport, "network error during upload")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errors.CodeTransport, fmt.Sprintf("upload failed with status: %d", resp.StatusCode))
	}

	// Guarantee the sequence ends at exactly 100
	reader.finish()

	return nil
}

// UploadString uploads a text payload
func (u *httpUploader) UploadString(ctx context.Context, payload, url, contentType string, onProgress ProgressFunc) error {
	return u.Upload(ctx, strings.NewReader(payload), int64(len(payload)), url, contentType, onProgress)
}

// progressReader reports fractional progress as the request body is read
type progressReader struct {
	reader     io.Reader
	total      int64
	sent       int64
	last       int
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.reader.Read(b)
	p.sent += int64(n)

	if p.onProgress != nil && p.total > 0 {
		percent := int(p.sent * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		// Never re-emit or regress a percentage
		if percent > p.last {
			p.last = percent
			p.onProgress(percent)
		}
	}

	return n, err
}

// finish emits the terminal 100 if it has not fired yet
func (p *progressReader) finish() {
	if p.onProgress != nil && p.last < 100 {
		p.last = 100
		p.onProgress(100)
	}
}
