package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vidscribe/vidscribe/internal/config"
	"github.com/vidscribe/vidscribe/internal/errors"
)

// URL validity windows. Download URLs live longer because the remote
// transcription service must still be able to fetch the file.
const (
	uploadURLExpiry   = 1 * time.Minute
	downloadURLExpiry = 2 * time.Minute
)

// PresignedUpload is the result of an upload URL request
type PresignedUpload struct {
	URL string
	Key string
}

// Gateway issues time-limited upload/download URLs for named storage keys
type Gateway interface {
	// RequestUploadURL returns a presigned PUT URL and the storage key it targets
	RequestUploadURL(ctx context.Context, name, contentType string) (*PresignedUpload, error)

	// RequestDownloadURL returns a presigned GET URL for an existing key
	RequestDownloadURL(ctx context.Context, key string) (string, error)

	// EnsureBucket creates the configured bucket when it does not exist
	EnsureBucket(ctx context.Context) error
}

// presignClient abstracts the minio client operations the gateway uses (for testing)
type presignClient interface {
	PresignedPutObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

// gateway implements Gateway backed by an S3-compatible store
type gateway struct {
	client presignClient
	bucket string
	now    func() time.Time
}

// NewGateway creates a new Gateway from storage configuration.
// Missing credentials or configuration are a fatal configuration error,
// distinct from request-level argument errors.
func NewGateway(cfg config.StorageConfig) (Gateway, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, errors.New(errors.CodeConfig,
			"missing storage configuration: endpoint, bucket, access_key and secret_key are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeConfig, "failed to create storage client")
	}

	return &gateway{
		client: client,
		bucket: cfg.Bucket,
		now:    time.Now,
	}, nil
}

// newGatewayWithClient creates a Gateway with a custom presign client (for testing)
func newGatewayWithClient(client presignClient, bucket string, now func() time.Time) Gateway {
	return &gateway{client: client, bucket: bucket, now: now}
}

// RequestUploadURL returns a presigned PUT URL and the storage key it targets
func (g *gateway) RequestUploadURL(ctx context.Context, name, contentType string) (*PresignedUpload, error) {
	if name == "" || contentType == "" {
		return nil, errors.New(errors.CodeInvalidArg, "missing file name or content type")
	}

	key := g.deriveKey(name)

	presigned, err := g.client.PresignedPutObject(ctx, g.bucket, key, uploadURLExpiry)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to presign upload URL")
	}

	return &PresignedUpload{
		URL: presigned.String(),
		Key: key,
	}, nil
}

// RequestDownloadURL returns a presigned GET URL for an existing key
func (g *gateway) RequestDownloadURL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New(errors.CodeInvalidArg, "missing storage key")
	}

	presigned, err := g.client.PresignedGetObject(ctx, g.bucket, key, downloadURLExpiry, nil)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "failed to presign download URL")
	}

	return presigned.String(), nil
}

// EnsureBucket creates the configured bucket when it does not exist
func (g *gateway) EnsureBucket(ctx context.Context) error {
	exists, err := g.client.BucketExists(ctx, g.bucket)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := g.client.MakeBucket(ctx, g.bucket, minio.MakeBucketOptions{}); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to create bucket")
	}
	return nil
}

// deriveKey turns a requested name into a storage key. Path-like names
// are used verbatim (that is how generated artifacts land under their
// own namespace); plain names get a unique timestamp prefix so repeated
// uploads of equally named files cannot collide.
func (g *gateway) deriveKey(name string) string {
	if strings.Contains(name, "/") {
		return name
	}
	return fmt.Sprintf("videos/%d-%s", g.now().UnixMilli(), name)
}
