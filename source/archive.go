package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// Archive describes a versioned source tarball published at a fixed url.
type Archive struct {
	urlformat     string
	archiveformat string
	treeformat    string

	url      string
	filename string
	tree     string
	sha256   string

	client   *http.Client
	template Template
}

// New builds an archive description for the project name at the given version.
// The version must be a semantic version, with or without a leading v; the
// value is passed to the templates exactly as given.
func New(name, version, urlformat string, options ...Option) (*Archive, error) {
	if version == "" {
		return nil, fmt.Errorf("version must be set")
	}

	if !semver.IsValid("v" + strings.TrimPrefix(version, "v")) {
		return nil, fmt.Errorf("version %q is not a valid semantic version", version)
	}

	arc := Archive{
		urlformat: urlformat,
		client:    http.DefaultClient,
		template: Template{
			GOOS:    runtime.GOOS,
			GOARCH:  runtime.GOARCH,
			Name:    name,
			Version: version,
		},
	}

	for _, opt := range options {
		opt(&arc)
	}

	if err := arc.resolve(); err != nil {
		return nil, err
	}

	return &arc, nil
}

func (a *Archive) resolve() error {
	resolved, err := a.template.Resolve(a.urlformat)
	if err != nil {
		return fmt.Errorf("failed to resolve URL: %w", err)
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return fmt.Errorf("invalid URL %s: %w", resolved, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme %q in %s", parsed.Scheme, resolved)
	}
	a.url = resolved

	a.filename = path.Base(parsed.Path)
	if a.archiveformat != "" {
		if a.filename, err = a.template.Resolve(a.archiveformat); err != nil {
			return fmt.Errorf("failed to resolve archive name: %w", err)
		}
	}
	if a.filename == "" || a.filename == "." || a.filename == "/" || strings.ContainsRune(a.filename, '/') {
		return fmt.Errorf("invalid archive name %q", a.filename)
	}

	a.tree = trimArchiveExtension(a.filename)
	if a.treeformat != "" {
		if a.tree, err = a.template.Resolve(a.treeformat); err != nil {
			return fmt.Errorf("failed to resolve tree name: %w", err)
		}
	}
	if a.tree == "" || a.tree == "." || a.tree == ".." || strings.ContainsRune(a.tree, '/') {
		return fmt.Errorf("invalid source tree name %q", a.tree)
	}

	return nil
}

// Name of the project.
func (a *Archive) Name() string {
	return a.template.Name
}

// Version of the project, as passed to [New].
func (a *Archive) Version() string {
	return a.template.Version
}

// URL the archive gets downloaded from.
func (a *Archive) URL() string {
	return a.url
}

// FileName is the name the archive has once downloaded.
func (a *Archive) FileName() string {
	return a.filename
}

// TreeName is the name of the top level directory the archive extracts to.
func (a *Archive) TreeName() string {
	return a.tree
}

// Verified reports if a digest was configured for the archive.
func (a *Archive) Verified() bool {
	return a.sha256 != ""
}

// Verify compares the sha256 digest of the file at path with the configured one.
// Without a configured digest there is nothing to compare against and nil is returned.
func (a *Archive) Verify(path string) error {
	if a.sha256 == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return fmt.Errorf("failed to hash %s: %w", path, err)
	}

	actual := hex.EncodeToString(hash.Sum(nil))
	if !strings.EqualFold(actual, a.sha256) {
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", a.filename, a.sha256, actual)
	}

	return nil
}

func trimArchiveExtension(name string) string {
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".zip"} {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}
