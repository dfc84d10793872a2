package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"fader/logger"
	"fader/storage"
)

var (
	// ErrEngineUsed is returned when Start is called twice: an engine handles
	// exactly one file transfer. Concurrent uploads use independent engines.
	ErrEngineUsed = errors.New("upload engine instances are single-use")
	// ErrMissingETag is returned when a part upload succeeds without an ETag,
	// which would make the finalize step impossible.
	ErrMissingETag = errors.New("part upload returned no ETag")
)

// ObjectStore is the storage collaborator contract the engine uploads
// through. *storage.MinioStore satisfies it.
type ObjectStore interface {
	PresignPut(ctx context.Context, objectKey, contentType string, ttl time.Duration) (string, error)
	OpenMultipart(ctx context.Context, objectKey, contentType string) (string, error)
	PresignParts(ctx context.Context, objectKey, uploadID string, partNumbers []int, ttl time.Duration) ([]storage.PartURL, error)
	CompleteMultipart(ctx context.Context, objectKey, uploadID string, parts []storage.CompletedPart) error
	AbortMultipart(ctx context.Context, objectKey, uploadID string) error
}

// ProgressFunc receives cumulative transferred bytes against the total file
// size. Reported values never decrease across part boundaries.
type ProgressFunc func(sentBytes, totalBytes int64)

// FileUpload describes the local file being transferred.
type FileUpload struct {
	Reader      io.ReaderAt
	Size        int64
	Name        string
	ContentType string
}

// Destination scopes the upload's object key.
type Destination struct {
	ProjectID int64
}

// Engine transfers one file to object storage, choosing a single presigned
// PUT for small files and a sequential multipart session otherwise. Any
// failure after the multipart session was opened triggers a best-effort
// abort before the original error is returned.
type Engine struct {
	store      ObjectStore
	httpClient *http.Client
	chunkSize  int64
	partTTL    time.Duration
	started    atomic.Bool
}

// defaultChunkSize backs a missing or non-positive chunk size, which would
// otherwise break the part count math.
const defaultChunkSize = 16 << 20

// NewEngine creates an engine. chunkSize is both the strategy threshold and
// the part size; partTTL is forwarded to the part presigner.
func NewEngine(store ObjectStore, chunkSize int64, partTTL time.Duration) *Engine {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Engine{
		store:      store,
		httpClient: http.DefaultClient,
		chunkSize:  chunkSize,
		partTTL:    partTTL,
	}
}

// SetHTTPClient overrides the client used for part PUTs; tests point it at a
// local server.
func (e *Engine) SetHTTPClient(c *http.Client) {
	e.httpClient = c
}

// Start runs the transfer and returns the stored object key. Cancelling ctx
// after the multipart session was opened routes through the abort path.
func (e *Engine) Start(ctx context.Context, file FileUpload, dest Destination, onProgress ProgressFunc) (string, error) {
	if !e.started.CompareAndSwap(false, true) {
		return "", ErrEngineUsed
	}
	if file.Size <= 0 {
		return "", fmt.Errorf("refusing to upload empty file %q", file.Name)
	}

	objectKey := storage.BuildObjectKey(dest.ProjectID, file.Name)

	if file.Size < e.chunkSize {
		if err := e.uploadSingle(ctx, objectKey, file, onProgress); err != nil {
			return "", err
		}
		return objectKey, nil
	}

	if err := e.uploadChunked(ctx, objectKey, file, onProgress); err != nil {
		return "", err
	}
	return objectKey, nil
}

// uploadSingle PUTs the whole file through one presigned URL. There is no
// remote cleanup on failure; an unfinished single-shot object is harmless.
func (e *Engine) uploadSingle(ctx context.Context, objectKey string, file FileUpload, onProgress ProgressFunc) error {
	url, err := e.store.PresignPut(ctx, objectKey, file.ContentType, e.partTTL)
	if err != nil {
		return fmt.Errorf("failed to presign upload: %w", err)
	}

	body := &progressReader{
		r:          io.NewSectionReader(file.Reader, 0, file.Size),
		total:      file.Size,
		onProgress: onProgress,
	}
	return e.put(ctx, url, body, file.Size, file.ContentType)
}

// uploadChunked runs the multipart path: open a session, presign every part
// in one batch, PUT parts sequentially in ascending order capturing ETags,
// then finalize with the ordered part list.
func (e *Engine) uploadChunked(ctx context.Context, objectKey string, file FileUpload, onProgress ProgressFunc) error {
	uploadID, err := e.store.OpenMultipart(ctx, objectKey, file.ContentType)
	if err != nil {
		return fmt.Errorf("failed to open multipart session: %w", err)
	}

	partCount := int((file.Size + e.chunkSize - 1) / e.chunkSize)
	partNumbers := make([]int, partCount)
	for i := range partNumbers {
		partNumbers[i] = i + 1
	}

	urls, err := e.store.PresignParts(ctx, objectKey, uploadID, partNumbers, e.partTTL)
	if err != nil {
		return e.fail(objectKey, uploadID, fmt.Errorf("failed to presign parts: %w", err))
	}
	urlByPart := make(map[int]string, len(urls))
	for _, u := range urls {
		urlByPart[u.PartNumber] = u.URL
	}

	parts := make([]storage.CompletedPart, 0, partCount)
	var completed int64

	for _, n := range partNumbers {
		url, ok := urlByPart[n]
		if !ok {
			return e.fail(objectKey, uploadID, fmt.Errorf("no presigned URL for part %d", n))
		}

		offset := int64(n-1) * e.chunkSize
		length := e.chunkSize
		if offset+length > file.Size {
			length = file.Size - offset
		}

		body := &progressReader{
			r:          io.NewSectionReader(file.Reader, offset, length),
			base:       completed,
			total:      file.Size,
			onProgress: onProgress,
		}

		etag, err := e.putPart(ctx, url, body, length)
		if err != nil {
			return e.fail(objectKey, uploadID, fmt.Errorf("failed to upload part %d: %w", n, err))
		}

		parts = append(parts, storage.CompletedPart{PartNumber: n, ETag: etag})
		completed += length
	}

	if err := e.store.CompleteMultipart(ctx, objectKey, uploadID, parts); err != nil {
		return e.fail(objectKey, uploadID, fmt.Errorf("failed to complete multipart session: %w", err))
	}
	return nil
}

// fail aborts the multipart session best-effort and returns the original
// error. Abort failures are logged, never propagated.
func (e *Engine) fail(objectKey, uploadID string, cause error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.store.AbortMultipart(ctx, objectKey, uploadID); err != nil {
		logger.Warn("failed to abort multipart session",
			logger.String("objectKey", objectKey),
			logger.String("uploadId", uploadID),
			logger.ErrorField(err))
	}
	return cause
}

// put performs one presigned PUT.
func (e *Engine) put(ctx context.Context, url string, body io.Reader, size int64, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("failed to build PUT request: %w", err)
	}
	req.ContentLength = size
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}
	return nil
}

// putPart performs one part PUT and returns its ETag.
func (e *Engine) putPart(ctx context.Context, url string, body io.Reader, size int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to build part PUT request: %w", err)
	}
	req.ContentLength = size

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("part rejected with status %d", resp.StatusCode)
	}

	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if etag == "" {
		return "", ErrMissingETag
	}
	return etag, nil
}

// progressReader reports cumulative bytes as the request body drains. base
// carries the bytes of previously completed parts so progress never resets
// at a part boundary.
type progressReader struct {
	r          io.Reader
	base       int64
	total      int64
	sent       int64
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.onProgress != nil {
			p.onProgress(p.base+p.sent, p.total)
		}
	}
	return n, err
}
