package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/openmined/cdnpublish/internal/config"
	"github.com/openmined/cdnpublish/internal/errs"
	"github.com/openmined/cdnpublish/internal/remotepath"
	"github.com/openmined/cdnpublish/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *storagetest.Server) {
	t.Helper()
	srv := storagetest.NewServer(t)
	client, err := New(srv.Config())
	require.NoError(t, err)
	return client, srv
}

func TestNew_ValidatesConfig(t *testing.T) {
	_, err := New(&config.Config{BaseURL: "https://example.com", Zone: "z"})
	assert.ErrorIs(t, err, config.ErrNoAccessKey)
}

func TestUpload_RoundTrip(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	dir := remotepath.MustParse("__test/" + uuid.NewString()).AsDir()
	name := uuid.NewString() + ".json"
	content := `{"key": "value"}`

	local := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(local, []byte(content), 0o644))

	remote := dir.Join(remotepath.MustParse(name))
	require.NoError(t, client.UploadFile(ctx, remote, local, ""))

	items, err := client.List(ctx, dir)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, name, items[0].ObjectName)
	assert.Equal(t, int64(len(content)), items[0].Length)
	assert.False(t, items[0].IsDirectory)

	downloaded := filepath.Join(t.TempDir(), uuid.NewString())
	require.NoError(t, client.Get(ctx, remote, downloaded))
	got, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))

	stored, ok := srv.Object(remote.String())
	assert.True(t, ok)
	assert.Equal(t, content, string(stored))
}

func TestUpload_EscapesSegments(t *testing.T) {
	client, srv := newTestClient(t)

	remote := remotepath.MustParse("docs/read me.txt")
	require.NoError(t, client.Upload(context.Background(), remote, strings.NewReader("hi"), ""))

	_, ok := srv.Object("docs/read me.txt")
	assert.True(t, ok)
}

func TestUpload_Checksum(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()
	remote := remotepath.MustParse("a.txt")

	sum := sha256.Sum256([]byte("content"))
	good := strings.ToUpper(hex.EncodeToString(sum[:]))
	require.NoError(t, client.Upload(ctx, remote, strings.NewReader("content"), good))

	err := client.Upload(ctx, remotepath.MustParse("b.txt"), strings.NewReader("corrupted"), good)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindHTTPResponse))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, StatusCode(http.StatusBadRequest), apiErr.HTTPCode)
	assert.Equal(t, "Checksum mismatch", apiErr.Message)

	_, ok := srv.Object("b.txt")
	assert.False(t, ok)
}

func TestList_EmptyAndRoot(t *testing.T) {
	client, srv := newTestClient(t)
	ctx := context.Background()

	items, err := client.List(ctx, remotepath.MustParse("missing").AsDir())
	require.NoError(t, err)
	assert.Empty(t, items)

	srv.Put("top.txt", []byte("1"))
	srv.Put("nested/deep/file.txt", []byte("2"))

	items, err = client.List(ctx, remotepath.Root.AsDir())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "nested", items[0].ObjectName)
	assert.True(t, items[0].IsDirectory)
	assert.Equal(t, "top.txt", items[1].ObjectName)
}

func TestGet_NotFound(t *testing.T) {
	client, _ := newTestClient(t)
	output := filepath.Join(t.TempDir(), "out")

	err := client.Get(context.Background(), remotepath.MustParse("nope.txt"), output)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.KindHTTPResponse))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, StatusCode(http.StatusNotFound), apiErr.HTTPCode)

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_WrongAccessKey(t *testing.T) {
	srv := storagetest.NewServer(t)
	cfg := srv.Config()
	cfg.AccessKey = "wrong"
	client, err := New(cfg)
	require.NoError(t, err)

	_, err = client.List(context.Background(), remotepath.Root.AsDir())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, StatusCode(http.StatusUnauthorized), apiErr.HTTPCode)
	assert.Equal(t, "Unauthorized", apiErr.Message)
}

func TestHandleResponse_StatusMapping(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        errs.Kind
		message     string
	}{
		{"forbidden json", 403, "application/json", `{"HttpCode":"403","Message":"nope"}`, errs.KindHTTPResponse, "nope"},
		{"not found plain text", 404, "text/plain", `gone`, errs.KindSerialization, ""},
		{"server error text", 500, "text/plain", "kaboom", errs.KindHTTPResponse, "kaboom"},
		{"bad gateway empty", 502, "text/plain", "", errs.KindHTTPResponse, "Bad Gateway"},
		{"bad request json", 400, "application/json", `{"HttpCode":400,"Message":"bad"}`, errs.KindHTTPResponse, "bad"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			client, err := New(&config.Config{BaseURL: ts.URL, AccessKey: "k", Zone: "z"})
			require.NoError(t, err)

			err = client.Upload(context.Background(), remotepath.MustParse("x"), strings.NewReader("x"), "")
			require.Error(t, err)
			assert.Equal(t, tt.kind, errs.KindOf(err))

			if tt.message != "" {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, tt.message, apiErr.Message)
				assert.Equal(t, StatusCode(tt.status), apiErr.HTTPCode)
			}
		})
	}
}

func TestList_RejectsNonJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer ts.Close()

	client, err := New(&config.Config{BaseURL: ts.URL, AccessKey: "k", Zone: "z"})
	require.NoError(t, err)

	_, err = client.List(context.Background(), remotepath.Root.AsDir())
	assert.True(t, errs.Is(err, errs.KindParse))
}

func TestList_MalformedJSON(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ObjectName": 1`))
	}))
	defer ts.Close()

	client, err := New(&config.Config{BaseURL: ts.URL, AccessKey: "k", Zone: "z"})
	require.NoError(t, err)

	_, err = client.List(context.Background(), remotepath.Root.AsDir())
	assert.True(t, errs.Is(err, errs.KindSerialization))
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := New(&config.Config{BaseURL: url, AccessKey: "k", Zone: "z"})
	require.NoError(t, err)

	_, err = client.List(context.Background(), remotepath.Root.AsDir())
	assert.True(t, errs.Is(err, errs.KindHTTPClient))
}

func TestStatusCode_Unmarshal(t *testing.T) {
	var s StatusCode
	require.NoError(t, s.UnmarshalJSON([]byte(`"404"`)))
	assert.Equal(t, StatusCode(404), s)
	require.NoError(t, s.UnmarshalJSON([]byte(`201`)))
	assert.Equal(t, StatusCode(201), s)
	assert.Error(t, s.UnmarshalJSON([]byte(`"abc"`)))
}
