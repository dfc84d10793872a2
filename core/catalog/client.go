package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fader/model"
	"fader/storage"
)

// APIError is a non-2xx response translated into a Go error. The server's
// error contract is a JSON body of the form {"error": "..."}.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.Status, e.Message)
}

// Client consumes the catalog API. Its upload methods satisfy the upload
// engine's ObjectStore contract so a transfer can run against a remote
// deployment the same way it runs against a local store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// NewClient creates a client for the API at baseURL (e.g. "http://host:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Stream responses redirect to presigned storage URLs; the
			// caller wants the URL, not the audio bytes.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// SetToken installs the bearer token attached to subsequent requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}

// AuthResponse carries a login or registration result.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Register creates an account and stores the returned token on the client.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	in := map[string]string{"username": username, "email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// Login authenticates and stores the returned token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	in := map[string]string{"username": username, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return &out, nil
}

// CreateProject creates a project owned by the authenticated user.
func (c *Client) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodPost, "/api/projects", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListProjects lists the authenticated user's projects.
func (c *Client) ListProjects(ctx context.Context) ([]*model.Project, error) {
	var out []*model.Project
	if err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProject fetches one project.
func (c *Client) GetProject(ctx context.Context, projectID int64) (*model.Project, error) {
	var out model.Project
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", projectID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateInvitation invites an email address to a project.
func (c *Client) CreateInvitation(ctx context.Context, projectID int64, email string) (*model.Invitation, error) {
	var out model.Invitation
	path := fmt.Sprintf("/api/projects/%d/invitations", projectID)
	if err := c.do(ctx, http.MethodPost, path, map[string]string{"email": email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListInvitations lists a project's invitations.
func (c *Client) ListInvitations(ctx context.Context, projectID int64) ([]*model.Invitation, error) {
	var out []*model.Invitation
	path := fmt.Sprintf("/api/projects/%d/invitations", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptInvitation redeems an invitation token for the authenticated user.
func (c *Client) AcceptInvitation(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/invitations/"+token+"/accept", nil, nil)
}

// ListTracks lists a project's tracks.
func (c *Client) ListTracks(ctx context.Context, projectID int64) ([]*model.Track, error) {
	var out []*model.Track
	path := fmt.Sprintf("/api/projects/%d/tracks", projectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateTrack creates a track with its first version pointing at an already
// uploaded object.
func (c *Client) CreateTrack(ctx context.Context, projectID int64, name, objectKey string) (*model.Track, error) {
	in := map[string]string{"name": name, "objectKey": objectKey}
	var out model.Track
	path := fmt.Sprintf("/api/projects/%d/tracks", projectID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrack fetches one track.
func (c *Client) GetTrack(ctx context.Context, trackID int64) (*model.Track, error) {
	var out model.Track
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/tracks/%d", trackID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RenameTrack changes a track's display name.
func (c *Client) RenameTrack(ctx context.Context, trackID int64, name string) error {
	path := fmt.Sprintf("/api/tracks/%d", trackID)
	return c.do(ctx, http.MethodPut, path, map[string]string{"name": name}, nil)
}

// DeleteTrack deletes a track and all of its versions and comments.
func (c *Client) DeleteTrack(ctx context.Context, trackID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tracks/%d", trackID), nil, nil)
}

// ListVersions lists a track's versions, newest number first.
func (c *Client) ListVersions(ctx context.Context, trackID int64) ([]*model.Version, error) {
	var out []*model.Version
	path := fmt.Sprintf("/api/tracks/%d/versions", trackID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateVersion appends a version to a track; the server assigns the number.
func (c *Client) CreateVersion(ctx context.Context, trackID int64, objectKey, notes string) (*model.Version, error) {
	in := map[string]string{"objectKey": objectKey, "notes": notes}
	var out model.Version
	path := fmt.Sprintf("/api/tracks/%d/versions", trackID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateVersionNotes replaces a version's notes.
func (c *Client) UpdateVersionNotes(ctx context.Context, versionID int64, notes string) error {
	path := fmt.Sprintf("/api/versions/%d/notes", versionID)
	return c.do(ctx, http.MethodPut, path, map[string]string{"notes": notes}, nil)
}

// SetMasterVersion marks a version as its track's master.
func (c *Client) SetMasterVersion(ctx context.Context, versionID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/versions/%d/master", versionID), nil, nil)
}

// DeleteVersion deletes a version and its comments.
func (c *Client) DeleteVersion(ctx context.Context, versionID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/versions/%d", versionID), nil, nil)
}

// ListComments fetches a version's comment thread.
func (c *Client) ListComments(ctx context.Context, versionID int64, includeResolved bool) ([]*model.Comment, error) {
	var out []*model.Comment
	path := fmt.Sprintf("/api/versions/%d/comments?includeResolved=%t", versionID, includeResolved)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateComment posts a comment. timestamp and parentID are optional.
func (c *Client) CreateComment(ctx context.Context, versionID int64, content string, timestamp *float64, parentID *int64) (*model.Comment, error) {
	in := map[string]any{"content": content}
	if timestamp != nil {
		in["timestamp"] = *timestamp
	}
	if parentID != nil {
		in["parentId"] = *parentID
	}
	var out model.Comment
	path := fmt.Sprintf("/api/versions/%d/comments", versionID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteComment deletes a comment; deleting a top-level comment removes its
// replies as well.
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, nil)
}

// ResolveComment marks a timestamped top-level comment resolved.
func (c *Client) ResolveComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/resolve", commentID), nil, nil)
}

// UnresolveComment reopens a resolved comment.
func (c *Client) UnresolveComment(ctx context.Context, commentID int64) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/unresolve", commentID), nil, nil)
}

// StreamURL resolves a version's presigned audio URL without downloading it.
func (c *Client) StreamURL(ctx context.Context, versionID int64) (string, error) {
	path := fmt.Sprintf("/api/versions/%d/stream", versionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		return "", decodeError(resp)
	}
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", fmt.Errorf("stream response carried no location")
	}
	io.Copy(io.Discard, resp.Body)
	return loc, nil
}

// GetPeaks fetches a version's waveform peaks.
func (c *Client) GetPeaks(ctx context.Context, versionID int64) ([]float32, error) {
	var out struct {
		Peaks []float32 `json:"peaks"`
	}
	path := fmt.Sprintf("/api/versions/%d/peaks", versionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Peaks, nil
}

// PresignPut requests a single-shot upload URL for an object key.
func (c *Client) PresignPut(ctx context.Context, objectKey, contentType string, ttl time.Duration) (string, error) {
	in := map[string]string{"objectKey": objectKey, "contentType": contentType}
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/uploads/presign", in, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

// OpenMultipart opens a multipart upload session for an object key.
func (c *Client) OpenMultipart(ctx context.Context, objectKey, contentType string) (string, error) {
	in := map[string]string{"objectKey": objectKey, "contentType": contentType}
	var out struct {
		UploadID string `json:"uploadId"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/uploads/multipart", in, &out); err != nil {
		return "", err
	}
	return out.UploadID, nil
}

// PresignParts requests one upload URL per part number.
func (c *Client) PresignParts(ctx context.Context, objectKey, uploadID string, partNumbers []int, ttl time.Duration) ([]storage.PartURL, error) {
	in := map[string]any{"objectKey": objectKey, "uploadId": uploadID, "partNumbers": partNumbers}
	var out struct {
		Parts []storage.PartURL `json:"parts"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/uploads/multipart/parts", in, &out); err != nil {
		return nil, err
	}
	return out.Parts, nil
}

// CompleteMultipart finalizes a multipart session with the uploaded parts.
func (c *Client) CompleteMultipart(ctx context.Context, objectKey, uploadID string, parts []storage.CompletedPart) error {
	in := map[string]any{"objectKey": objectKey, "uploadId": uploadID, "parts": parts}
	return c.do(ctx, http.MethodPost, "/api/uploads/multipart/complete", in, nil)
}

// AbortMultipart discards a multipart session and its uploaded parts.
func (c *Client) AbortMultipart(ctx context.Context, objectKey, uploadID string) error {
	in := map[string]string{"objectKey": objectKey, "uploadId": uploadID}
	return c.do(ctx, http.MethodPost, "/api/uploads/multipart/abort", in, nil)
}
