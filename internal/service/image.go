package service

import (
	"context"
	"fmt"
	"io"
	"mime"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/platemint/backend/config"
)

// ImageService stores uploaded recipe and profile images in S3.
type ImageService struct {
	s3Config *config.S3Config
}

// NewImageService creates a new ImageService instance
func NewImageService(s3Config *config.S3Config) *ImageService {
	return &ImageService{s3Config: s3Config}
}

// UploadProfilePicture stores a profile picture and returns its public URL.
func (s *ImageService) UploadProfilePicture(ctx context.Context, userID uuid.UUID, body io.Reader, contentType string) (string, error) {
	key := fmt.Sprintf("profile-pictures/%s%s", userID, extensionFor(contentType))
	return s.upload(ctx, key, body, contentType)
}

// UploadRecipeImage stores a recipe image and returns its public URL.
func (s *ImageService) UploadRecipeImage(ctx context.Context, recipeID uuid.UUID, body io.Reader, contentType string) (string, error) {
	key := fmt.Sprintf("recipe-images/%s-%s%s", recipeID, uuid.NewString()[:8], extensionFor(contentType))
	return s.upload(ctx, key, body, contentType)
}

func (s *ImageService) upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	_, err := s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, key), nil
}

func extensionFor(contentType string) string {
	exts, err := mime.ExtensionsByType(contentType)
	if err != nil || len(exts) == 0 {
		return ".jpg"
	}
	return exts[0]
}
