package commons

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aexvir/provision"
)

// EnsureDir makes sure the scratch directory exists.
// Later steps receive it explicitly, the process working directory is never changed.
func EnsureDir(dir string) provision.Step {
	return provision.Step{
		Name:        "enter-scratch",
		Dir:         dir,
		Commands:    [][]string{{"mkdir", "-p", dir}},
		Description: fmt.Sprintf("use %s as scratch directory", dir),
		Run: func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("using scratch directory %s", dir))

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create scratch directory: %w", err)
			}

			info, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("failed to access scratch directory: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("%s is not a directory", dir)
			}

			return nil
		},
	}
}

// EnterTree checks the extracted source tree exists below dir and contains marker,
// the file every later build step depends on.
func EnterTree(dir, tree, marker string) provision.Step {
	root := filepath.Join(dir, tree)

	return provision.Step{
		Name:        "enter-source-tree",
		Dir:         root,
		Commands:    [][]string{{"test", "-f", marker}},
		Description: fmt.Sprintf("build inside %s", root),
		Run: func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("entering source tree %s", root))

			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("source tree not found: %w", err)
			}
			if !info.IsDir() {
				return fmt.Errorf("source tree %s is not a directory", root)
			}

			if marker == "" {
				return nil
			}

			if _, err := os.Stat(filepath.Join(root, marker)); err != nil {
				return fmt.Errorf("source tree %s doesn't look right: %w", root, err)
			}

			return nil
		},
	}
}

// Cleanup removes the given entries of dir.
// Removal is best effort: problems are printed as warnings and never fail the run.
func Cleanup(dir string, entries ...string) provision.Step {
	return provision.Step{
		Name:     "cleanup",
		Dir:      dir,
		Commands: [][]string{append([]string{"rm", "-rf"}, entries...)},
		Run: func(_ context.Context) error {
			provision.LogStep(fmt.Sprintf("removing temporary files from %s", dir))

			for _, entry := range entries {
				target := filepath.Join(dir, entry)

				// never remove dir itself or anything outside of it
				if rel, err := filepath.Rel(dir, target); err != nil || rel == "." || !filepath.IsLocal(rel) {
					provision.LogWarn(fmt.Sprintf("refusing to remove %s", target))
					continue
				}

				if _, err := os.Lstat(target); errors.Is(err, os.ErrNotExist) {
					provision.LogDetail(fmt.Sprintf("%s already gone", target))
					continue
				}

				if err := os.RemoveAll(target); err != nil {
					provision.LogWarn(fmt.Sprintf("failed to remove %s: %s", target, err))
					continue
				}

				provision.LogDetail(fmt.Sprintf("removed %s", target))
			}

			return nil
		},
	}
}
