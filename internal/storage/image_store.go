// Package storage handles S3/MinIO access for product images.
package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/andriwardana/storefront/backend/internal/config"
)

// ImageStore serves product images out of an S3-compatible bucket.
// Images are written by back-office tooling; the storefront only ever
// hands out short-lived download URLs.
type ImageStore struct {
	presignClient      *s3.PresignClient
	bucket             string
	presignedURLExpiry time.Duration
}

// NewImageStore creates a new image store with an S3/MinIO client
func NewImageStore(cfg *config.StorageConfig) (*ImageStore, error) {
	// Build endpoint URL - handle case where endpoint already includes protocol
	var endpointURL string
	if strings.HasPrefix(cfg.Endpoint, "http://") || strings.HasPrefix(cfg.Endpoint, "https://") {
		endpointURL = cfg.Endpoint
	} else {
		protocol := "http"
		if cfg.UseSSL {
			protocol = "https"
		}
		endpointURL = protocol + "://" + cfg.Endpoint
	}

	// Custom endpoint keeps MinIO deployments working
	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
		BaseEndpoint: aws.String(endpointURL),
		UsePathStyle: true, // Required for MinIO
	})

	presignClient := s3.NewPresignClient(client)

	presignedURLExpiry := cfg.PresignedURLExpiry
	if presignedURLExpiry == 0 {
		presignedURLExpiry = 15 * time.Minute
	}

	return &ImageStore{
		presignClient:      presignClient,
		bucket:             cfg.Bucket,
		presignedURLExpiry: presignedURLExpiry,
	}, nil
}

// PresignImageURL generates a pre-signed download URL for a stored image key.
// The URL expires after the configured duration (default: 15 minutes).
func (s *ImageStore) PresignImageURL(ctx context.Context, key string) (string, error) {
	presignedReq, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignedURLExpiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate pre-signed URL for %s: %w", key, err)
	}

	return presignedReq.URL, nil
}

// Bucket returns the configured bucket name
func (s *ImageStore) Bucket() string {
	return s.bucket
}

// PresignedURLExpiry returns the configured pre-signed URL expiration duration
func (s *ImageStore) PresignedURLExpiry() time.Duration {
	return s.presignedURLExpiry
}
