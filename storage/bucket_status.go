package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
)

// BucketStats summarizes a bucket listing.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
}

// ListBucketObjects lists objects under a prefix along with summary stats.
func ListBucketObjects(bucket, prefix string) ([]minio.ObjectInfo, *BucketStats, error) {
	if defaultStore == nil {
		return nil, nil, fmt.Errorf("minio client not initialized")
	}

	ctx := context.Background()
	stats := &BucketStats{}
	var objects []minio.ObjectInfo

	objectCh := defaultStore.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for object := range objectCh {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}

		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, object)
	}

	return objects, stats, nil
}

// PrintBucketStatus prints a bucket usage report to stdout.
func PrintBucketStatus(bucket, prefix string) error {
	objects, stats, err := ListBucketObjects(bucket, prefix)
	if err != nil {
		return err
	}

	fmt.Printf("Bucket: %s\n", bucket)
	if prefix != "" {
		fmt.Printf("Prefix: %s\n", prefix)
	}
	fmt.Printf("Objects: %d\n", stats.TotalObjects)
	fmt.Printf("Total size: %s\n", formatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Printf("Last modified: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	for _, obj := range objects {
		fmt.Printf("  %s (%s)\n", obj.Key, formatSize(obj.Size))
	}
	return nil
}

// formatSize renders a byte count in human units.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
