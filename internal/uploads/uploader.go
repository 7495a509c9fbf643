package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/khanghh/quill/internal/clock"
)

var (
	ErrEmptyFile       = errors.New("no file uploaded")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var allowedImageTypes = map[string]bool{
	"image/png":     true,
	"image/jpeg":    true,
	"image/gif":     true,
	"image/webp":    true,
	"image/svg+xml": true,
}

// S3Client is the subset of the S3 API used for uploads.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ImageUploader struct {
	client  S3Client
	bucket  string
	baseURL string
	clock   clock.Clock
}

func (u *ImageUploader) objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("uploads/image-%d%s", u.clock.Now().UnixMilli(), ext)
}

// Upload stores the image and returns its public URL.
func (u *ImageUploader) Upload(ctx context.Context, img Image) (string, error) {
	if img.Body == nil || img.Size == 0 {
		return "", ErrEmptyFile
	}
	contentType := strings.ToLower(strings.TrimSpace(strings.Split(img.ContentType, ";")[0]))
	if !allowedImageTypes[contentType] {
		return "", ErrUnsupportedType
	}
	key := u.objectKey(img.Filename)
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          img.Body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(img.Size),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return u.baseURL + "/" + key, nil
}

// NewImageUploader creates an uploader for bucket. When publicBaseURL is
// empty the virtual-hosted S3 URL of the bucket is used.
func NewImageUploader(client S3Client, bucket string, region string, publicBaseURL string, clk clock.Clock) *ImageUploader {
	baseURL := strings.TrimRight(publicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	if clk == nil {
		clk = clock.Real
	}
	return &ImageUploader{
		client:  client,
		bucket:  bucket,
		baseURL: baseURL,
		clock:   clk,
	}
}
