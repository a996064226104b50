// Package presign issues time-limited image URLs for catalog components.
package presign

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"volt-data/lake"
	"volt-data/s3store"
)

// DefaultExpiry is the validity of a component image URL when none is given.
const DefaultExpiry = 24 * time.Hour

// MaxHours is the longest validity, in hours, a URL can be requested for.
const MaxHours = int(s3store.MaxPresignExpiry / time.Hour)

// URLSigner signs a GET URL for an object key. *s3store.Presigner implements it.
type URLSigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Result is the outcome of one URL request.
type Result struct {
	Success        bool   `json:"success"`
	ComponentID    string `json:"component_id"`
	PresignedURL   string `json:"presigned_url,omitempty"`
	ExpiresInHours int    `json:"expires_in_hours,omitempty"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	S3Key          string `json:"s3_key,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Batch is the outcome of a multi-component request.
type Batch struct {
	Successful     []Result `json:"successful"`
	Failed         []Result `json:"failed"`
	TotalRequested int      `json:"total_requested"`
	// SuccessRate is "<successful>/<requested>".
	SuccessRate string `json:"success_rate"`
}

// APIData is the data payload of the image URL endpoint.
type APIData struct {
	ComponentID    string `json:"componentId"`
	ImageURL       string `json:"imageUrl"`
	ExpiresAt      string `json:"expiresAt"`
	ExpiresInHours int    `json:"expiresInHours"`
}

// APIResponse is the envelope returned to the frontend.
type APIResponse struct {
	Success     bool     `json:"success"`
	Data        *APIData `json:"data,omitempty"`
	Message     string   `json:"message,omitempty"`
	Error       string   `json:"error,omitempty"`
	ComponentID string   `json:"componentId,omitempty"`
}

// Service generates component image URLs.
type Service struct {
	signer URLSigner
	logger *zap.Logger
	now    func() time.Time
}

// NewService returns a Service. A nil logger disables logging.
func NewService(signer URLSigner, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{signer: signer, logger: logger, now: time.Now}
}

// ComponentImage signs the canonical image of componentID for hours, which
// must be in [1, MaxHours].
func (s *Service) ComponentImage(ctx context.Context, componentID string, hours int) Result {
	if hours < 1 || hours > MaxHours {
		return Result{
			ComponentID: componentID,
			Error:       fmt.Sprintf("expiry of %d hours out of range [1, %d]", hours, MaxHours),
		}
	}
	key := lake.ComponentImageKey(componentID)
	ttl := time.Duration(hours) * time.Hour
	url, err := s.signer.PresignGet(ctx, key, ttl)
	if err != nil {
		s.logger.Warn("presign failed", zap.String("component_id", componentID), zap.Error(err))
		return Result{
			ComponentID: componentID,
			Error:       fmt.Sprintf("failed to generate presigned URL: %v", err),
		}
	}
	return Result{
		Success:        true,
		ComponentID:    componentID,
		PresignedURL:   url,
		ExpiresInHours: hours,
		ExpiresAt:      s.now().Add(ttl).Format(time.RFC3339),
		S3Key:          key,
	}
}

// Components signs images for every id, in order.
func (s *Service) Components(ctx context.Context, componentIDs []string, hours int) Batch {
	b := Batch{Successful: []Result{}, Failed: []Result{}, TotalRequested: len(componentIDs)}
	for _, id := range componentIDs {
		res := s.ComponentImage(ctx, id, hours)
		if res.Success {
			b.Successful = append(b.Successful, res)
		} else {
			b.Failed = append(b.Failed, res)
		}
	}
	b.SuccessRate = fmt.Sprintf("%d/%d", len(b.Successful), len(componentIDs))
	s.logger.Info("presigned image URLs", zap.String("success_rate", b.SuccessRate))
	return b
}

// Response wraps a result in the frontend envelope.
func Response(res Result) APIResponse {
	if !res.Success {
		return APIResponse{Success: false, Error: res.Error, ComponentID: res.ComponentID}
	}
	return APIResponse{
		Success: true,
		Data: &APIData{
			ComponentID:    res.ComponentID,
			ImageURL:       res.PresignedURL,
			ExpiresAt:      res.ExpiresAt,
			ExpiresInHours: res.ExpiresInHours,
		},
		Message: fmt.Sprintf("Presigned URL generated for %d hours", res.ExpiresInHours),
	}
}
