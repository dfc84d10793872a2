package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
)

// PartURL is one presigned destination for a multipart part.
type PartURL struct {
	PartNumber int    `json:"partNumber"`
	URL        string `json:"url"`
}

// CompletedPart pairs a part number with the ETag its upload returned. The
// finalize call requires the full ordered list.
type CompletedPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"etag"`
}

// MinioStore issues presigned URLs and manages multipart sessions against a
// single bucket.
type MinioStore struct {
	client *minio.Client
	core   *minio.Core
	bucket string
}

// NewMinioStore wraps existing clients; used by tests and InitMinio.
func NewMinioStore(client *minio.Client, core *minio.Core, bucket string) *MinioStore {
	return &MinioStore{client: client, core: core, bucket: bucket}
}

var objectKeyUnsafe = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// SanitizeFileName strips every character outside [a-zA-Z0-9.-].
func SanitizeFileName(name string) string {
	safe := objectKeyUnsafe.ReplaceAllString(name, "")
	if safe == "" {
		safe = "untitled"
	}
	return safe
}

// BuildObjectKey namespaces an upload under its project with a timestamp so
// repeated uploads of the same file never collide.
func BuildObjectKey(projectID int64, fileName string) string {
	return fmt.Sprintf("projects/%d/%d-%s", projectID, time.Now().UnixMilli(), SanitizeFileName(fileName))
}

// PresignPut issues a presigned single-shot PUT URL.
func (s *MinioStore) PresignPut(ctx context.Context, objectKey, contentType string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to presign put for %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// PresignGet issues a presigned GET URL for streaming an object.
func (s *MinioStore) PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign get for %s: %w", objectKey, err)
	}
	return u.String(), nil
}

// OpenMultipart starts a multipart session and returns its upload ID.
func (s *MinioStore) OpenMultipart(ctx context.Context, objectKey, contentType string) (string, error) {
	uploadID, err := s.core.NewMultipartUpload(ctx, s.bucket, objectKey, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to open multipart session for %s: %w", objectKey, err)
	}
	return uploadID, nil
}

// PresignParts issues one time-boxed single-use PUT URL per requested part
// number, in a single batch.
func (s *MinioStore) PresignParts(ctx context.Context, objectKey, uploadID string, partNumbers []int, ttl time.Duration) ([]PartURL, error) {
	urls := make([]PartURL, 0, len(partNumbers))
	for _, n := range partNumbers {
		params := url.Values{}
		params.Set("uploadId", uploadID)
		params.Set("partNumber", strconv.Itoa(n))

		u, err := s.client.Presign(ctx, "PUT", s.bucket, objectKey, ttl, params)
		if err != nil {
			return nil, fmt.Errorf("failed to presign part %d of %s: %w", n, objectKey, err)
		}
		urls = append(urls, PartURL{PartNumber: n, URL: u.String()})
	}
	return urls, nil
}

// CompleteMultipart finalizes the session from the ordered (part, etag) list.
func (s *MinioStore) CompleteMultipart(ctx context.Context, objectKey, uploadID string, parts []CompletedPart) error {
	sorted := make([]CompletedPart, len(parts))
	copy(sorted, parts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	completeParts := make([]minio.CompletePart, 0, len(sorted))
	for _, p := range sorted {
		completeParts = append(completeParts, minio.CompletePart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
		})
	}

	_, err := s.core.CompleteMultipartUpload(ctx, s.bucket, objectKey, uploadID, completeParts, minio.PutObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to complete multipart session %s: %w", uploadID, err)
	}
	return nil
}

// AbortMultipart discards a multipart session's partial data.
func (s *MinioStore) AbortMultipart(ctx context.Context, objectKey, uploadID string) error {
	if err := s.core.AbortMultipartUpload(ctx, s.bucket, objectKey, uploadID); err != nil {
		return fmt.Errorf("failed to abort multipart session %s: %w", uploadID, err)
	}
	return nil
}

// RemoveObject deletes a stored object.
func (s *MinioStore) RemoveObject(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", objectKey, err)
	}
	return nil
}

// GetObject opens a stored object for reading; the caller must close it.
func (s *MinioStore) GetObject(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectKey, err)
	}
	return obj, nil
}
