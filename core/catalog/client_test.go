package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/assert"
)

func TestErrorBodyBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "track not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetTrack(context.Background(), 99)

	var apiErr *APIError
	assert.Assert(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "track not found", apiErr.Message)
	assert.ErrorContains(t, err, "track not found")
}

func TestErrorWithoutBodyStillCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	err := client.DeleteTrack(context.Background(), 1)

	var apiErr *APIError
	assert.Assert(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "", apiErr.Message)
}

func TestLoginStoresToken(t *testing.T) {
	var sawAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		json.NewDecoder(r.Body).Decode(&in)
		assert.Equal(t, "ida", in["username"])
		json.NewEncoder(w).Encode(map[string]any{"token": "tok-123"})
	})
	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]any{})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.Login(context.Background(), "ida", "secret")
	assert.NilError(t, err)
	assert.Equal(t, "tok-123", resp.Token)

	_, err = client.ListProjects(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, "Bearer tok-123", sawAuth)
}

func TestCreateCommentSendsOptionalFields(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": 7, "content": got["content"]})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ts := 12.5
	comment, err := client.CreateComment(context.Background(), 3, "snare too loud", &ts, nil)
	assert.NilError(t, err)
	assert.Equal(t, int64(7), comment.ID)
	assert.Equal(t, 12.5, got["timestamp"])
	_, hasParent := got["parentId"]
	assert.Assert(t, !hasParent)
}

func TestStreamURLCapturesRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/versions/5/stream", r.URL.Path)
		http.Redirect(w, r, "https://store.example/presigned/abc", http.StatusFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	url, err := client.StreamURL(context.Background(), 5)
	assert.NilError(t, err)
	assert.Equal(t, "https://store.example/presigned/abc", url)
}

func TestStreamURLErrorPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "version not found"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.StreamURL(context.Background(), 5)

	var apiErr *APIError
	assert.Assert(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
