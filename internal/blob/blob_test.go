package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGenerateName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantExt  string
	}{
		{name: "mp4 extension preserved", filename: "holiday.mp4", wantExt: ".mp4"},
		{name: "extension lowercased", filename: "CLIP.MOV", wantExt: ".mov"},
		{name: "no extension", filename: "rawfile", wantExt: ""},
		{name: "path components ignored", filename: "../../etc/passwd.mkv", wantExt: ".mkv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateName(tt.filename)

			assert.Equal(t, tt.wantExt, filepath.Ext(got))
			assert.NotContains(t, got, "/")
			// The stem must not leak the original filename.
			assert.NotContains(t, got, "passwd")
		})
	}

	// Identical inputs must still yield distinct names.
	assert.NotEqual(t, GenerateName("a.mp4"), GenerateName("a.mp4"))
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("https://cdn.example.com/v/abc.mp4"))
	assert.True(t, IsRemote("http://bucket.s3.us-east-1.amazonaws.com/incoming/x.mp4"))
	assert.False(t, IsRemote("/var/data/incoming/x.mp4"))
	assert.False(t, IsRemote("data/incoming/x.mp4"))
}

func TestLocalStorePutOpen(t *testing.T) {
	store, err := NewLocalStore(&LocalConfig{BaseDir: t.TempDir()}, testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("fake video bytes")

	locator, err := store.Put(ctx, BucketIncoming, "abc.mp4", bytes.NewReader(content))
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(locator))
	assert.Contains(t, locator, string(BucketIncoming))

	rc, err := store.Open(ctx, locator)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store, err := NewLocalStore(&LocalConfig{BaseDir: t.TempDir()}, testLogger())
	require.NoError(t, err)

	_, err = store.Open(context.Background(), filepath.Join(t.TempDir(), "gone.mp4"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCDNStorePut(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, string(BucketProcessed), r.FormValue("folder"))
		assert.Equal(t, "abc", r.FormValue("public_id"))

		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, "payload", string(data))

		json.NewEncoder(w).Encode(map[string]string{
			"secure_url": "https://cdn.example.com/processed/abc.mp4",
		})
	}))
	defer srv.Close()

	store, err := NewCDNStore(&CDNConfig{UploadURL: srv.URL, APIKey: "k"}, testLogger())
	require.NoError(t, err)

	locator, err := store.Put(context.Background(), BucketProcessed, "abc.mp4", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/processed/abc.mp4", locator)
	assert.Equal(t, "Bearer k", gotAuth)
}

func TestCDNStorePutRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "unsupported format"},
		})
	}))
	defer srv.Close()

	store, err := NewCDNStore(&CDNConfig{UploadURL: srv.URL}, testLogger())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), BucketIncoming, "x.mp4", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")
}

func TestOpenRemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := openRemote(context.Background(), srv.Client(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
