package source

import (
	"net/http"
	"strings"
)

type Option func(a *Archive)

// WithArchiveName overrides the file name the archive is stored as.
// By default it's the last path element of the url.
// The name can contain template variables, e.g. "ta-lib-{{.Version}}-src.tar.gz".
func WithArchiveName(format string) Option {
	return func(a *Archive) {
		a.archiveformat = format
	}
}

// WithTreeName sets the name of the directory the archive extracts to.
// Upstream tarballs don't always follow the archive name, ta-lib 0.4.0 for example
// ships ta-lib-0.4.0-src.tar.gz containing a plain ta-lib/ directory.
// By default the archive name without its extension is used.
func WithTreeName(format string) Option {
	return func(a *Archive) {
		a.treeformat = format
	}
}

// WithSHA256 enables integrity verification of the downloaded archive.
// An empty digest keeps verification disabled.
func WithSHA256(digest string) Option {
	return func(a *Archive) {
		a.sha256 = strings.ToLower(strings.TrimSpace(digest))
	}
}

// WithHTTPClient allows using a custom client for the download, e.g. one with a timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Archive) {
		if client != nil {
			a.client = client
		}
	}
}
