package modelstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// downloadOptions configures one artifact download.
type downloadOptions struct {
	URL            string
	DestPath       string
	ExpectedSHA256 string // lowercase hex; empty skips verification
	Client         *http.Client
	OnProgress     func(ProgressInfo)
	Resume         bool
}

// downloadResult describes a completed download.
type downloadResult struct {
	BytesDownloaded int64
	TotalBytes      int64
	Resumed         bool
}

// progressCallbackInterval rate-limits progress callbacks to roughly
// one per this many bytes.
const progressCallbackInterval = 1 << 20 // 1 MiB

// downloadWithProgress downloads a file with resume support, progress
// callbacks, and optional checksum verification.
func downloadWithProgress(ctx context.Context, opts downloadOptions) (*downloadResult, error) {
	if opts.URL == "" || opts.DestPath == "" {
		return nil, fmt.Errorf("url and destination are required")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 0}
	}

	if err := os.MkdirAll(filepath.Dir(opts.DestPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	var resumeFrom int64
	if opts.Resume {
		if info, err := os.Stat(opts.DestPath); err == nil {
			resumeFrom = info.Size()
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if resumeFrom > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", resumeFrom))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64
	var resumed bool
	switch resp.StatusCode {
	case http.StatusOK:
		totalSize = resp.ContentLength
		resumeFrom = 0 // server sent the full file
	case http.StatusPartialContent:
		resumed = true
		totalSize = resumeFrom + resp.ContentLength
	case http.StatusRequestedRangeNotSatisfiable:
		// Partial file may already be complete; start over if we cannot
		// prove that with a checksum.
		if opts.ExpectedSHA256 != "" {
			if ok, _ := verifyChecksum(opts.DestPath, opts.ExpectedSHA256); ok {
				info, _ := os.Stat(opts.DestPath)
				return &downloadResult{TotalBytes: info.Size(), Resumed: true}, nil
			}
		}
		_ = os.Remove(opts.DestPath)
		opts.Resume = false
		return downloadWithProgress(ctx, opts)
	default:
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var file *os.File
	if resumed {
		file, err = os.OpenFile(opts.DestPath, os.O_APPEND|os.O_WRONLY, 0644)
	} else {
		file, err = os.Create(opts.DestPath)
	}
	if err != nil {
		return nil, fmt.Errorf("open destination: %w", err)
	}
	defer file.Close()

	tracker := NewProgressTracker(totalSize)
	if resumed {
		tracker.SetDownloaded(resumeFrom)
	}

	written, err := io.Copy(file, &progressReader{
		reader:     resp.Body,
		tracker:    tracker,
		onProgress: opts.OnProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("download interrupted: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync destination: %w", err)
	}

	if opts.OnProgress != nil {
		opts.OnProgress(tracker.Progress())
	}

	if opts.ExpectedSHA256 != "" {
		file.Close()
		ok, verr := verifyChecksum(opts.DestPath, opts.ExpectedSHA256)
		if verr != nil {
			return nil, fmt.Errorf("verify checksum: %w", verr)
		}
		if !ok {
			return nil, fmt.Errorf("checksum mismatch for %s", opts.DestPath)
		}
	}

	return &downloadResult{
		BytesDownloaded: written,
		TotalBytes:      totalSize,
		Resumed:         resumed,
	}, nil
}

// progressReader updates the tracker as bytes flow through, invoking
// the callback at most once per progressCallbackInterval bytes.
type progressReader struct {
	reader       io.Reader
	tracker      *ProgressTracker
	onProgress   func(ProgressInfo)
	lastCallback int64
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.tracker.Update(int64(n))
		if r.onProgress != nil {
			downloaded := r.tracker.Downloaded()
			if downloaded-r.lastCallback >= progressCallbackInterval {
				r.onProgress(r.tracker.Progress())
				r.lastCallback = downloaded
			}
		}
	}
	return n, err
}

// verifyChecksum compares the SHA256 of the file at path against
// expected (lowercase hex).
func verifyChecksum(path, expected string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(h.Sum(nil)) == strings.ToLower(expected), nil
}
