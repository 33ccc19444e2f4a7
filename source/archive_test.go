package source

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const talibURL = "http://prdownloads.sourceforge.net/ta-lib/ta-lib-{{.Version}}-src.tar.gz"

func TestNew(t *testing.T) {
	arc, err := New("ta-lib", "0.4.0", talibURL)
	require.NoError(t, err)

	assert.Equal(t, "ta-lib", arc.Name())
	assert.Equal(t, "0.4.0", arc.Version())
	assert.Equal(t, "http://prdownloads.sourceforge.net/ta-lib/ta-lib-0.4.0-src.tar.gz", arc.URL())
	assert.Equal(t, "ta-lib-0.4.0-src.tar.gz", arc.FileName())
	assert.Equal(t, "ta-lib-0.4.0-src", arc.TreeName())
	assert.False(t, arc.Verified())

	assert.Equal(t, runtime.GOOS, arc.template.GOOS)
	assert.Equal(t, runtime.GOARCH, arc.template.GOARCH)
}

func TestNewWithOptions(t *testing.T) {
	client := &http.Client{Timeout: time.Minute}

	arc, err := New(
		"ta-lib",
		"v0.4.0",
		"https://mirror.example.com/download?file=ta-lib",
		WithArchiveName("ta-lib-{{.Version}}.tar.gz"),
		WithTreeName("ta-lib"),
		WithSHA256("  ABCDEF  "),
		WithHTTPClient(client),
	)
	require.NoError(t, err)

	assert.Equal(t, "ta-lib-v0.4.0.tar.gz", arc.FileName())
	assert.Equal(t, "ta-lib", arc.TreeName())
	assert.Equal(t, "abcdef", arc.sha256)
	assert.True(t, arc.Verified())
	assert.Same(t, client, arc.client)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		version string
		url     string
		opts    []Option
		errmsg  string
	}{
		{
			name:   "empty version",
			url:    talibURL,
			errmsg: "version must be set",
		},
		{
			name:    "not a semantic version",
			version: "latest",
			url:     talibURL,
			errmsg:  "not a valid semantic version",
		},
		{
			name:    "unresolvable url template",
			version: "0.4.0",
			url:     "http://example.com/{{.Tag}}",
			errmsg:  "failed to resolve URL",
		},
		{
			name:    "unsupported scheme",
			version: "0.4.0",
			url:     "ftp://example.com/ta-lib.tar.gz",
			errmsg:  "unsupported URL scheme",
		},
		{
			name:    "archive name with a path",
			version: "0.4.0",
			url:     talibURL,
			opts:    []Option{WithArchiveName("../ta-lib.tar.gz")},
			errmsg:  "invalid archive name",
		},
		{
			name:    "tree escaping the scratch dir",
			version: "0.4.0",
			url:     talibURL,
			opts:    []Option{WithTreeName("..")},
			errmsg:  "invalid source tree name",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := New("ta-lib", test.version, test.url, test.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), test.errmsg)
		})
	}
}

func TestArchive_Verify(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ta-lib-0.4.0-src.tar.gz")
	require.NoError(t, os.WriteFile(path, []byte("tarball"), 0o644))

	sum := sha256.Sum256([]byte("tarball"))
	digest := hex.EncodeToString(sum[:])

	t.Run("no digest configured", func(t *testing.T) {
		arc, err := New("ta-lib", "0.4.0", talibURL)
		require.NoError(t, err)
		assert.NoError(t, arc.Verify(path))
	})

	t.Run("matching digest", func(t *testing.T) {
		arc, err := New("ta-lib", "0.4.0", talibURL, WithSHA256(digest))
		require.NoError(t, err)
		assert.NoError(t, arc.Verify(path))
	})

	t.Run("mismatching digest", func(t *testing.T) {
		arc, err := New("ta-lib", "0.4.0", talibURL, WithSHA256("deadbeef"))
		require.NoError(t, err)

		err = arc.Verify(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "checksum mismatch")
	})
}

func TestTrimArchiveExtension(t *testing.T) {
	assert.Equal(t, "ta-lib-0.4.0-src", trimArchiveExtension("ta-lib-0.4.0-src.tar.gz"))
	assert.Equal(t, "ta-lib-0.6.4", trimArchiveExtension("ta-lib-0.6.4.tar.xz"))
	assert.Equal(t, "ta-lib", trimArchiveExtension("ta-lib.zip"))
	assert.Equal(t, "ta-lib", trimArchiveExtension("ta-lib"))
}
