package source

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/ulikunitz/xz"

	"github.com/aexvir/provision"
)

var xzmagic = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}

// Unpack extracts the archive at path into destination.
// The archive format is sniffed from its contents, tar.gz, tar.xz and zip are supported.
// Entries that would land outside destination make the whole extraction fail.
// The archive itself is left in place.
func (a *Archive) Unpack(path, destination string) error {
	return extract(path, destination)
}

func extract(compressed, destination string) (err error) {
	provision.LogDetail(fmt.Sprintf("extracting %s into %s", compressed, destination))

	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	destination, err = filepath.Abs(destination)
	if err != nil {
		return fmt.Errorf("failed to resolve destination %s: %w", destination, err)
	}

	file, err := os.Open(compressed)
	if err != nil {
		return fmt.Errorf("failed to open compressed file: %w", err)
	}
	defer file.Close()

	// sniff header to determine file type
	header := make([]byte, 512)
	n, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("failed to read %s: %w", compressed, err)
	}
	header = header[:n]

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if bytes.HasPrefix(header, xzmagic) {
		decompressor, err := xz.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create xz reader: %w", err)
		}
		return untar(decompressor, destination)
	}

	switch mime := http.DetectContentType(header); mime {
	case "application/x-gzip":
		decompressor, err := gzip.NewReader(file)
		if err != nil {
			return fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer decompressor.Close()
		return untar(decompressor, destination)
	case "application/zip":
		info, err := file.Stat()
		if err != nil {
			return err
		}
		return unzip(file, info.Size(), destination)
	default:
		return fmt.Errorf("unsupported format: %s", mime)
	}
}

// handles tar streams, already decompressed
func untar(stream io.Reader, destination string) error {
	reader := tar.NewReader(stream)

	for {
		header, err := reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("corrupt archive: %w", err)
		}

		target, err := within(destination, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
		case tar.TypeReg:
			if err := writefile(target, reader, header.FileInfo().Mode().Perm()); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if err := symlink(destination, target, header.Linkname); err != nil {
				return err
			}
		default:
			provision.Logger().Debug("skipping archive entry", "name", header.Name, "type", string(header.Typeflag))
		}
	}

	return nil
}

// handles .zip files
func unzip(file io.ReaderAt, size int64, destination string) error {
	reader, err := zip.NewReader(file, size)
	if err != nil {
		return fmt.Errorf("failed to create zip reader: %w", err)
	}

	for _, entry := range reader.File {
		target, err := within(destination, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			continue
		}

		contents, err := entry.Open()
		if err != nil {
			return fmt.Errorf("failed to open file %s: %w", target, err)
		}

		err = writefile(target, contents, entry.Mode().Perm())
		contents.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func writefile(target string, contents io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	if mode == 0 {
		mode = 0o644
	}

	// a previous run may have left a symlink or read only file here
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", target, err)
	}

	if _, err := io.Copy(out, contents); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy data to file %s: %w", target, err)
	}

	return out.Close()
}

func symlink(destination, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("archive entry %s links outside of the destination: %s", target, linkname)
	}

	if _, err := within(destination, filepath.Join(filepath.Dir(target), linkname)); err != nil {
		return fmt.Errorf("archive entry %s links outside of the destination: %s", target, linkname)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(target), err)
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}

	return os.Symlink(linkname, target)
}

// within joins name to destination making sure the result doesn't escape it.
func within(destination, name string) (string, error) {
	var target string
	if filepath.IsAbs(name) {
		target = filepath.Clean(name)
	} else {
		target = filepath.Join(destination, name)
	}

	rel, err := filepath.Rel(destination, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("archive entry %s escapes destination %s", name, destination)
	}

	return target, nil
}
