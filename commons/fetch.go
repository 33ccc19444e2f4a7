package commons

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/aexvir/provision"
	"github.com/aexvir/provision/source"
)

// Fetch downloads the archive into dir.
// An archive left by a previous run is always downloaded again.
func Fetch(arc *source.Archive, dir string) provision.Step {
	destination := filepath.Join(dir, arc.FileName())

	return provision.Step{
		Name:        "fetch-source",
		Dir:         dir,
		Commands:    [][]string{{"wget", "-O", arc.FileName(), arc.URL()}},
		Description: fmt.Sprintf("download %s", arc.URL()),
		Run: func(ctx context.Context) error {
			provision.LogStep(fmt.Sprintf("downloading %s %s", arc.Name(), arc.Version()))
			provision.LogDetail(fmt.Sprintf("%s -> %s", arc.URL(), destination))

			if !arc.Verified() {
				provision.LogWarn("no sha256 configured, the archive integrity won't be verified")
			}

			if _, err := arc.Fetch(ctx, dir); err != nil {
				return err
			}

			return nil
		},
	}
}

// Unpack extracts the previously fetched archive inside dir.
func Unpack(arc *source.Archive, dir string) provision.Step {
	archive := filepath.Join(dir, arc.FileName())

	return provision.Step{
		Name:        "unpack-source",
		Dir:         dir,
		Commands:    [][]string{{"tar", "-xf", arc.FileName()}},
		Description: fmt.Sprintf("extract %s", arc.FileName()),
		Run: func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("unpacking %s", arc.FileName()))
			return arc.Unpack(archive, dir)
		},
	}
}
