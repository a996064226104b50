package presign

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSigner struct {
	fail map[string]bool
	ttls []time.Duration
}

func (f *fakeSigner) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	f.ttls = append(f.ttls, ttl)
	if f.fail[key] {
		return "", errors.New("signing failed")
	}
	return fmt.Sprintf("https://volt-data-lake.s3.amazonaws.com/%s?X-Amz-Expires=%d", key, int(ttl.Seconds())), nil
}

func fixedService(t *testing.T, signer URLSigner) *Service {
	s := NewService(signer, zaptest.NewLogger(t))
	s.now = func() time.Time { return time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestComponentImage(t *testing.T) {
	signer := &fakeSigner{}
	res := fixedService(t, signer).ComponentImage(context.Background(), "mcb_b16", 24)

	require.True(t, res.Success)
	assert.Equal(t, "images/components/mcb_b16/mcb_b16.jpg", res.S3Key)
	assert.Equal(t, 24, res.ExpiresInHours)
	assert.Equal(t, "2024-01-16T10:00:00Z", res.ExpiresAt)
	assert.Contains(t, res.PresignedURL, "X-Amz-Expires=86400")
	assert.Equal(t, []time.Duration{24 * time.Hour}, signer.ttls)
}

func TestComponentImageRejectsExpiryOutOfRange(t *testing.T) {
	signer := &fakeSigner{}
	svc := fixedService(t, signer)

	for _, hours := range []int{0, -1, MaxHours + 1, 9999999, math.MaxInt} {
		res := svc.ComponentImage(context.Background(), "mcb_b16", hours)
		assert.False(t, res.Success, "hours=%d", hours)
		assert.Equal(t, "mcb_b16", res.ComponentID)
		assert.Contains(t, res.Error, "out of range")
		assert.Empty(t, res.PresignedURL)
	}
	assert.Empty(t, signer.ttls, "signer must not be called")

	res := svc.ComponentImage(context.Background(), "mcb_b16", MaxHours)
	require.True(t, res.Success)
	assert.Equal(t, 168, res.ExpiresInHours)
	assert.Equal(t, []time.Duration{7 * 24 * time.Hour}, signer.ttls)
}

func TestComponentsBatch(t *testing.T) {
	signer := &fakeSigner{fail: map[string]bool{"images/components/rcd/rcd.jpg": true}}
	b := fixedService(t, signer).Components(context.Background(), []string{"mcb_b16", "rcd", "spd"}, 168)

	assert.Equal(t, 3, b.TotalRequested)
	assert.Equal(t, "2/3", b.SuccessRate)
	require.Len(t, b.Failed, 1)
	assert.Equal(t, "rcd", b.Failed[0].ComponentID)
	assert.Contains(t, b.Failed[0].Error, "signing failed")
	assert.Equal(t, 168, b.Successful[0].ExpiresInHours)

	empty := fixedService(t, signer).Components(context.Background(), nil, 1)
	assert.Equal(t, "0/0", empty.SuccessRate)
}

func TestResponse(t *testing.T) {
	res := fixedService(t, &fakeSigner{}).ComponentImage(context.Background(), "mcb_b16", 2)
	resp := Response(res)
	require.True(t, resp.Success)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "mcb_b16", resp.Data.ComponentID)
	assert.Equal(t, res.PresignedURL, resp.Data.ImageURL)
	assert.Equal(t, 2, resp.Data.ExpiresInHours)
	assert.Equal(t, "Presigned URL generated for 2 hours", resp.Message)

	failed := Response(Result{ComponentID: "x", Error: "boom"})
	assert.False(t, failed.Success)
	assert.Nil(t, failed.Data)
	assert.Equal(t, "x", failed.ComponentID)
	assert.Equal(t, "boom", failed.Error)
}
