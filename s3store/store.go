package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// usEast1 is the only region where CreateBucket must omit the location
// constraint.
const usEast1 = "us-east-1"

// Store performs object operations against a single bucket.
type Store struct {
	client Client
	bucket string
	region string
	logger *zap.Logger
}

// New returns a Store for bucket. A nil logger disables logging.
func New(client Client, bucket, region string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{client: client, bucket: bucket, region: region, logger: logger}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// URI returns the s3:// URI of key in the bucket.
func (s *Store) URI(key string) string {
	return fmt.Sprintf("s3://%s/%s", s.bucket, key)
}

// BucketExists reports whether the bucket exists and is reachable.
func (s *Store) BucketExists(ctx context.Context) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("error checking bucket %s: %w", s.bucket, err)
}

// EnsureBucket creates the bucket when it does not exist and reports whether
// it was created.
func (s *Store) EnsureBucket(ctx context.Context) (bool, error) {
	exists, err := s.BucketExists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(s.bucket)}
	if s.region != "" && s.region != usEast1 {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}
	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return false, nil
		}
		return false, fmt.Errorf("error creating bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("bucket created", zap.String("bucket", s.bucket), zap.String("region", s.region))
	return true, nil
}

// ConnectionReport is the outcome of CheckConnection.
type ConnectionReport struct {
	Buckets      []string
	BucketExists bool
}

// CheckConnection lists the account's buckets and reports whether the
// configured bucket is among them.
func (s *Store) CheckConnection(ctx context.Context) (ConnectionReport, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return ConnectionReport{}, fmt.Errorf("error listing buckets: %w", err)
	}
	var report ConnectionReport
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		report.Buckets = append(report.Buckets, name)
		if name == s.bucket {
			report.BucketExists = true
		}
	}
	return report, nil
}

// PutInput describes one object upload.
type PutInput struct {
	Key         string
	Body        []byte
	ContentType string
	Metadata    map[string]string
	// Tagging is a URL-encoded tag set, e.g. "component_id=x&source=y".
	Tagging string
}

// UploadResult reports the outcome of Put. Err is nil on success.
type UploadResult struct {
	Success bool
	Key     string
	URL     string
	Err     error
}

// Put uploads an object. Failures are reported in the result rather than
// returned so batch callers can keep going.
func (s *Store) Put(ctx context.Context, in PutInput) UploadResult {
	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(in.Key),
		Body:     bytes.NewReader(in.Body),
		Metadata: in.Metadata,
	}
	if in.ContentType != "" {
		input.ContentType = aws.String(in.ContentType)
	}
	if in.Tagging != "" {
		input.Tagging = aws.String(in.Tagging)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		s.logger.Warn("upload failed", zap.String("key", in.Key), zap.Error(err))
		return UploadResult{Key: in.Key, Err: fmt.Errorf("error uploading %s: %w", s.URI(in.Key), err)}
	}
	s.logger.Debug("object uploaded", zap.String("key", in.Key), zap.Int("bytes", len(in.Body)))
	return UploadResult{Success: true, Key: in.Key, URL: s.URI(in.Key)}
}

// Get downloads an object into memory.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading %s: %w", s.URI(key), err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", s.URI(key), err)
	}
	return data, nil
}

// isNotFound reports whether err means the bucket or object is missing.
func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsb *types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchBucket", "404":
			return true
		}
	}
	return false
}
