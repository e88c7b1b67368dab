package chunksource

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config configures an S3TarChunkSource's bucket connection.
// Region/endpoint/path-style are the only knobs the loader core needs,
// since it performs plain ranged GETs rather than going through a full
// object-store abstraction.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Key is the object key of the tar archive within the bucket (required).
	Key string
	// Region is the AWS region (optional, uses the default chain if empty).
	Region string
	// Endpoint is a custom S3-compatible endpoint URL (optional).
	Endpoint string
	// UsePathStyle forces path-style addressing, required by most
	// S3-compatible providers (R2, MinIO, etc.).
	UsePathStyle bool
}

func (c *S3Config) validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("chunksource: S3 bucket is required")
	}
	if c.Key == "" {
		return fmt.Errorf("chunksource: S3 key is required")
	}
	return nil
}

// s3ReaderAt adapts ranged GetObject calls to io.ReaderAt, so the tar
// indexer and chunk reader can reuse the same seek-based logic as the
// local-file TarChunkSource without knowing it's talking to S3.
type s3ReaderAt struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	size   int64
}

func (r *s3ReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := off + int64(len(p)) - 1
	if end >= r.size {
		end = r.size - 1
	}
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, end)

	out, err := r.client.GetObject(r.ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return 0, err
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, p[:end-off+1])
	if err != nil && err != io.ErrUnexpectedEOF {
		return n, err
	}
	if int64(n) < int64(len(p)) && off+int64(n) >= r.size {
		return n, io.EOF
	}
	return n, nil
}

// NewS3Client builds an S3 client from an S3Config using the AWS SDK's
// default credential chain, with optional region/endpoint/path-style
// overrides.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("chunksource: load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) { o.BaseEndpoint = &endpoint })
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) { o.UsePathStyle = true })
	}
	return s3.NewFromConfig(awsCfg, s3Opts...), nil
}

// OpenS3TarChunkSource indexes a tar archive stored as a single S3 object,
// reading only the header bytes needed for indexing via ranged GETs, then
// reusing the same USTAR parsing as TarChunkSource for chunk bodies.
func OpenS3TarChunkSource(ctx context.Context, client *s3.Client, cfg S3Config) (*TarChunkSource, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(cfg.Bucket),
		Key:    aws.String(cfg.Key),
	})
	if err != nil {
		return nil, NewSourceError(ErrUnavailable, "head_object", cfg.Key, err)
	}
	size := aws.ToInt64(head.ContentLength)

	reader := &s3ReaderAt{ctx: ctx, client: client, bucket: cfg.Bucket, key: cfg.Key, size: size}
	t := &TarChunkSource{sortKey: cfg.Key, readerAt: reader, size: size}
	if err := t.indexFromReaderAt(); err != nil {
		return nil, err
	}
	return t, nil
}
