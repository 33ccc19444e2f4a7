package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/aexvir/provision"
)

// Fetch downloads the archive into dir and returns the path of the downloaded file.
// An existing file with the same name is replaced; the download is never skipped.
// On any failure, including a checksum mismatch, no file is left at the returned path.
func (a *Archive) Fetch(ctx context.Context, dir string) (string, error) {
	destination := filepath.Join(dir, a.filename)

	if err := download(ctx, a.client, a.url, destination, a.Verify); err != nil {
		return "", err
	}

	return destination, nil
}

// download fetches url into destination through a temporary .part file that is
// renamed once the transfer and the check function succeeded.
func download(ctx context.Context, client *http.Client, url, destination string, check func(path string) error) (err error) {
	provision.LogDetail(fmt.Sprintf("downloading %s to %s", url, destination))

	partial := destination + ".part"

	start := time.Now()
	defer func() {
		if err != nil {
			if rmerr := os.Remove(partial); rmerr != nil && !errors.Is(rmerr, os.ErrNotExist) {
				provision.Logger().Warn("failed to remove partial download", "path", partial, "err", rmerr)
			}
		}

		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			color.Red("     ✘ %s", elapsed)
			return
		}
		color.Green("     ✔ %s", elapsed)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("received unexpected response when downloading %s: http%d", url, resp.StatusCode)
	}

	provision.Logger().Debug("download started", "url", resp.Request.URL.String(), "size", resp.ContentLength)

	if err := write(partial, resp.Body, resp.ContentLength); err != nil {
		return err
	}

	if err := check(partial); err != nil {
		return err
	}

	if err := os.Rename(partial, destination); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", destination, err)
	}

	return nil
}

func write(destination string, body io.Reader, size int64) error {
	data, finish := progress(body, size)
	defer finish()

	out, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", destination, err)
	}

	if _, err := io.Copy(out, data); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy data to file %s: %w", destination, err)
	}

	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to flush file %s: %w", destination, err)
	}

	return nil
}

// progress wraps an io.Reader to display a progress bar when running in a terminal.
// Returns the wrapped reader and a function to finalize the progress display.
// The progress bar shows transfer speed and completion percentage.
func progress(reader io.Reader, size int64) (io.Reader, func()) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return reader, func() {}
	}

	bar := pb.
		New64(size).
		SetTemplate(
			pb.ProgressBarTemplate(
				color.New(color.FgHiBlack).Sprint(
					`   └ {{string . "prefix"}}{{counters . }}` +
						` {{bar . "[" "=" ">" " " "]" }} {{percent . }}` +
						` {{speed . }} {{string . "suffix"}}`,
				),
			),
		).
		SetRefreshRate(time.Second / 60).
		SetMaxWidth(100).
		Start()

	return bar.NewProxyReader(reader), func() { bar.Finish() }
}
