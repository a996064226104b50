package s3store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// MaxPresignExpiry is the longest validity SigV4 accepts for a presigned URL.
const MaxPresignExpiry = 7 * 24 * time.Hour

// PresignAPI is implemented by *s3.PresignClient.
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

var _ PresignAPI = (*s3.PresignClient)(nil)

// Presigner creates time-limited GET URLs for objects in one bucket.
type Presigner struct {
	api    PresignAPI
	bucket string
}

// NewPresigner returns a Presigner for bucket.
func NewPresigner(api PresignAPI, bucket string) *Presigner {
	return &Presigner{api: api, bucket: bucket}
}

// PresignGet returns a URL granting GET access to key for ttl. The URL's
// X-Amz-Expires parameter equals ttl in seconds.
func (p *Presigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 || ttl > MaxPresignExpiry {
		return "", fmt.Errorf("presign expiry %s out of range (0, %s]", ttl, MaxPresignExpiry)
	}
	req, err := p.api.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("error presigning s3://%s/%s: %w", p.bucket, key, err)
	}
	return req.URL, nil
}
