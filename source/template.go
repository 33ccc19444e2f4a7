package source

import (
	"strings"
	"text/template"
)

// Template contains fields used to resolve specific metadata about the archive.
// It includes system architecture information and version information.
type Template struct {
	// GOOS is the operating system of the host (e.g., "linux", "darwin")
	GOOS string
	// GOARCH is the architecture of the host (e.g., "amd64", "arm64")
	GOARCH string

	// Name of the project the archive belongs to
	Name string
	// Version is the version string as published upstream, without a v prefix
	Version string
}

// Resolve executes the provided format string as a template with the Template's fields.
// It returns the resolved string and any error that occurred during template parsing or execution.
func (t Template) Resolve(format string) (string, error) {
	tmpl, err := template.New("source").Option("missingkey=error").Parse(format)
	if err != nil {
		return "", err
	}

	var bld strings.Builder
	if err := tmpl.Execute(&bld, t); err != nil {
		return "", err
	}

	return bld.String(), nil
}

// MustResolve executes the provided format string as a template with the Template's fields.
// Panics if the template can't be resolved correctly.
func (t Template) MustResolve(format string) string {
	resolved, err := t.Resolve(format)
	if err != nil {
		panic(err)
	}
	return resolved
}
