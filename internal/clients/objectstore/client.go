// Package objectstore mirrors the dataset CSVs from an S3-compatible bucket
// into the local data directory.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
)

// Config describes the bucket to mirror
type Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string // empty for AWS; set for MinIO, R2 and friends
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// API is the subset of the S3 client used for syncing
type API interface {
	manager.DownloadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Report lists what a sync did per file name
type Report struct {
	Downloaded []string `json:"downloaded"`
	Unchanged  []string `json:"unchanged"`
	Missing    []string `json:"missing"`
}

// Client downloads dataset files whose remote ETag or size changed
type Client struct {
	bucket     string
	prefix     string
	api        API
	downloader *manager.Downloader
	state      *StateRepository
	log        zerolog.Logger
}

// New builds an S3 client from cfg. Static credentials are used when given,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg Config, state *StateRepository, log zerolog.Logger) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("object store bucket is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return NewWithAPI(cfg.Bucket, cfg.Prefix, api, state, log), nil
}

// NewWithAPI creates a client over an existing S3 API implementation
func NewWithAPI(bucket, prefix string, api API, state *StateRepository, log zerolog.Logger) *Client {
	return &Client{
		bucket:     bucket,
		prefix:     strings.Trim(prefix, "/"),
		api:        api,
		downloader: manager.NewDownloader(api),
		state:      state,
		log:        log.With().Str("client", "objectstore").Str("bucket", bucket).Logger(),
	}
}

// Bucket returns the mirrored bucket name
func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) key(file string) string {
	if c.prefix == "" {
		return file
	}
	return path.Join(c.prefix, file)
}

// Sync downloads each named file into dir when the remote object differs from
// the last synced version or the local copy is missing. Objects absent from
// the bucket are reported, not treated as errors.
func (c *Client) Sync(ctx context.Context, dir string, files []string) (*Report, error) {
	report := &Report{}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key := c.key(file)
		head, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(key),
		})
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			c.log.Warn().Str("key", key).Msg("Dataset object not found in bucket")
			report.Missing = append(report.Missing, file)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to stat %s: %w", key, err)
		}

		etag := strings.Trim(aws.ToString(head.ETag), `"`)
		size := aws.ToInt64(head.ContentLength)
		local := filepath.Join(dir, file)

		fresh, err := c.upToDate(key, etag, size, local)
		if err != nil {
			return report, err
		}
		if fresh {
			report.Unchanged = append(report.Unchanged, file)
			continue
		}

		if err := c.download(ctx, key, local); err != nil {
			return report, err
		}
		if err := c.state.Put(ObjectState{Key: key, ETag: etag, Size: size}); err != nil {
			return report, err
		}

		c.log.Info().
			Str("key", key).
			Str("etag", etag).
			Int64("size", size).
			Msg("Downloaded dataset file")
		report.Downloaded = append(report.Downloaded, file)
	}

	return report, nil
}

func (c *Client) upToDate(key, etag string, size int64, local string) (bool, error) {
	st, err := c.state.Get(key)
	if err != nil {
		return false, err
	}
	if st == nil || st.ETag != etag || st.Size != size {
		return false, nil
	}

	info, err := os.Stat(local)
	if err != nil {
		return false, nil
	}
	return info.Size() == size, nil
}

// download writes to a temp file in the target directory, then renames it
// over the destination so readers never see a partial file.
func (c *Client) download(ctx context.Context, key, dest string) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	_, err = c.downloader.Download(ctx, tmp, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", key, err)
	}
	return nil
}
