package fileutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultCoverMaxWidth is used when CoverDownloadOptions.MaxWidth is unset.
const DefaultCoverMaxWidth = 600

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// CoverDownloadOptions holds options for downloading cover images.
type CoverDownloadOptions struct {
	// URL is the source URL of the cover image
	URL string
	// OutputDir is the directory where the cover will be saved
	OutputDir string
	// Filename is the name of the cover file (e.g., "Title - cover.jpg")
	Filename string
	// MaxWidth downsizes wider images, keeping the aspect ratio
	MaxWidth int
	// UpdateCovers forces re-downloading even if cover exists
	UpdateCovers bool
	// HTTPClient overrides the default client
	HTTPClient HTTPDoer
}

// CoverDownloadResult holds the result of a cover download operation.
type CoverDownloadResult struct {
	// Downloaded indicates if a new file was downloaded
	Downloaded bool
	// LocalPath is the full path to the cover
	LocalPath string
	// Filename is just the filename
	Filename string
	// Width and Height of the saved image; zero when the download was skipped
	Width, Height int
}

// DownloadCover fetches a cover, shrinks it to MaxWidth and stores it as JPEG
// under OutputDir. Existing files are kept unless UpdateCovers is set.
// An empty URL is not an error and returns a nil result.
func DownloadCover(ctx context.Context, opts CoverDownloadOptions) (*CoverDownloadResult, error) {
	if opts.URL == "" {
		return nil, nil
	}
	if opts.Filename == "" {
		return nil, errors.New("cover filename is required")
	}
	maxWidth := opts.MaxWidth
	if maxWidth <= 0 {
		maxWidth = DefaultCoverMaxWidth
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create covers directory: %w", err)
	}

	localPath := filepath.Join(opts.OutputDir, opts.Filename)
	result := &CoverDownloadResult{
		LocalPath: localPath,
		Filename:  opts.Filename,
	}

	if FileExists(localPath) && !opts.UpdateCovers {
		slog.Debug("Cover already exists, skipping download", "path", localPath)
		return result, nil
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d downloading cover from %s", resp.StatusCode, opts.URL)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover image: %w", err)
	}
	if img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	if err := imaging.Save(img, localPath, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to write cover file: %w", err)
	}

	slog.Info("Downloaded cover", "path", localPath)
	result.Downloaded = true
	result.Width = img.Bounds().Dx()
	result.Height = img.Bounds().Dy()
	return result, nil
}

// BuildCoverFilename creates a standard cover filename from a title.
// Returns: "Title - cover.jpg"
func BuildCoverFilename(title string) string {
	return SanitizeFilename(title) + " - cover.jpg"
}
