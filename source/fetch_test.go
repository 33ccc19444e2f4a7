package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server
}

func TestArchive_Fetch(t *testing.T) {
	payload := targz(t, talibTree)

	var requested string
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		w.Write(payload)
	})

	dir := t.TempDir()

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	path, err := arc.Fetch(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, "/ta-lib/ta-lib-0.4.0-src.tar.gz", requested)
	assert.Equal(t, filepath.Join(dir, "ta-lib-0.4.0-src.tar.gz"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, content)
	assert.NoFileExists(t, path+".part")
}

func TestArchive_Fetch_Redirect(t *testing.T) {
	payload := targz(t, talibTree)

	mux := http.NewServeMux()
	mux.HandleFunc("/ta-lib/ta-lib-0.4.0-src.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/mirror/ta-lib-0.4.0-src.tar.gz", http.StatusFound)
	})
	mux.HandleFunc("/mirror/ta-lib-0.4.0-src.tar.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})
	server := serve(t, mux.ServeHTTP)

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	path, err := arc.Fetch(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "ta-lib-0.4.0-src.tar.gz", filepath.Base(path))
}

func TestArchive_Fetch_ReplacesExisting(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fresh"))
	})

	dir := t.TempDir()
	stale := filepath.Join(dir, "ta-lib-0.4.0-src.tar.gz")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o644))

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	path, err := arc.Fetch(context.Background(), dir)
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(content), "an existing archive is downloaded again")
}

func TestArchive_Fetch_HTTPError(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	dir := t.TempDir()

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	_, err = arc.Fetch(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "a failed fetch must not leave files behind")
}

func TestArchive_Fetch_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	dir := t.TempDir()

	arc, err := New("ta-lib", "0.4.0", url+"/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	_, err = arc.Fetch(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download file")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchive_Fetch_TruncatedBody(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		// announce more than what gets sent so the client sees an unexpected EOF
		w.Header().Set("Content-Length", "1024")
		w.Write([]byte("partial"))
	})

	dir := t.TempDir()

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	_, err = arc.Fetch(context.Background(), dir)
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, "ta-lib-0.4.0-src.tar.gz"))
	assert.NoFileExists(t, filepath.Join(dir, "ta-lib-0.4.0-src.tar.gz.part"))
}

func TestArchive_Fetch_ChecksumMismatch(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered"))
	})

	dir := t.TempDir()
	sum := sha256.Sum256([]byte("original"))

	arc, err := New(
		"ta-lib",
		"0.4.0",
		server.URL+"/ta-lib-{{.Version}}-src.tar.gz",
		WithSHA256(hex.EncodeToString(sum[:])),
	)
	require.NoError(t, err)

	_, err = arc.Fetch(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchive_Fetch_Canceled(t *testing.T) {
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("never"))
	})

	arc, err := New("ta-lib", "0.4.0", server.URL+"/ta-lib-{{.Version}}-src.tar.gz")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = arc.Fetch(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProgress(t *testing.T) {
	t.Run("returns wrapped reader and finish function", func(t *testing.T) {
		content := []byte("test content")
		reader := &testReader{data: content}

		wrapped, finish := progress(reader, int64(len(content)))

		require.NotNil(t, wrapped)
		require.NotNil(t, finish)

		buf := make([]byte, len(content))
		n, err := wrapped.Read(buf)
		assert.NoError(t, err)
		assert.Equal(t, len(content), n)
		assert.Equal(t, content, buf)

		assert.NotPanics(t, func() {
			finish()
		})
	})
}

// testReader is a simple io.Reader for testing
type testReader struct {
	data []byte
	pos  int
}

func (r *testReader) Read(p []byte) (n int, err error) {
	if r.pos >= len(r.data) {
		return 0, nil
	}

	n = copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
