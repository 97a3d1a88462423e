// Package artifact persists rendered export documents so download links can
// be served without re-rendering. Keys follow {lane}/{YYYY-MM-DD}/{name}.
package artifact

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/captiond/internal/config"
)

// Store abstracts artifact storage backends.
type Store interface {
	// Save stores a rendered document under key.
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for a stored artifact.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks whether an artifact is present.
	Exists(ctx context.Context, key string) bool

	// URL returns a presigned URL for the artifact. Returns "" for
	// local-only backends.
	URL(ctx context.Context, key string) (string, error)

	// Type returns "local" or "s3".
	Type() string
}

// New creates a Store based on config: S3 when a bucket is configured,
// otherwise the local filesystem. S3 credentials and bucket access are
// verified at startup so a misconfiguration fails fast.
func New(cfg config.S3Config, artifactDir string, log zerolog.Logger) (Store, error) {
	if !cfg.Enabled() {
		return NewLocalStore(artifactDir), nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("s3 init: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, fmt.Errorf("s3 startup check (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("s3 connection verified")

	return s3store, nil
}

// Key builds the storage key for a rendered transcript export.
func Key(lane string, createdAt time.Time, id int64, ext string) string {
	if lane == "" {
		lane = "default"
	}
	return fmt.Sprintf("%s/%s/%d.%s", lane, createdAt.UTC().Format("2006-01-02"), id, ext)
}
