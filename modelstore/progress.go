package modelstore

import (
	"sync"
	"time"

	"localgen/core"
)

// ProgressInfo is a point-in-time view of a running download.
type ProgressInfo struct {
	Total               int64
	Downloaded          int64
	Percent             float64 // -1 when total is unknown
	SpeedBytesPerSec    float64
	ETA                 time.Duration // 0 when unknown or complete
	Elapsed             time.Duration
	DownloadedFormatted string
	TotalFormatted      string // "unknown" when total is 0
}

// ProgressTracker accumulates download progress with thread-safe
// updates and an exponentially smoothed speed estimate.
type ProgressTracker struct {
	mu sync.RWMutex

	total          int64
	downloaded     int64
	startTime      time.Time
	lastUpdateTime time.Time
	lastDownloaded int64
	speedAvg       float64
}

// speedAlpha weights the moving speed average toward recent samples.
const speedAlpha = 0.3

// NewProgressTracker creates a tracker for a download of total bytes
// (0 when unknown).
func NewProgressTracker(total int64) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		total:          total,
		startTime:      now,
		lastUpdateTime: now,
	}
}

// Update adds n downloaded bytes.
func (p *ProgressTracker) Update(n int64) {
	if n <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.downloaded += n

	now := time.Now()
	dt := now.Sub(p.lastUpdateTime).Seconds()
	if dt >= 0.2 {
		instant := float64(p.downloaded-p.lastDownloaded) / dt
		if p.speedAvg == 0 {
			p.speedAvg = instant
		} else {
			p.speedAvg = speedAlpha*instant + (1-speedAlpha)*p.speedAvg
		}
		p.lastUpdateTime = now
		p.lastDownloaded = p.downloaded
	}
}

// SetDownloaded sets the absolute downloaded count, used when resuming
// a partial file.
func (p *ProgressTracker) SetDownloaded(n int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.downloaded = n
	p.lastDownloaded = n
}

// Downloaded returns the bytes downloaded so far.
func (p *ProgressTracker) Downloaded() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.downloaded
}

// Progress returns a snapshot for display.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ProgressInfo{
		Total:               p.total,
		Downloaded:          p.downloaded,
		Percent:             -1,
		SpeedBytesPerSec:    p.speedAvg,
		Elapsed:             time.Since(p.startTime),
		DownloadedFormatted: core.FormatBytes(p.downloaded),
		TotalFormatted:      "unknown",
	}
	if p.total > 0 {
		info.Percent = float64(p.downloaded) / float64(p.total) * 100
		info.TotalFormatted = core.FormatBytes(p.total)
		if p.speedAvg > 0 && p.downloaded < p.total {
			remaining := float64(p.total-p.downloaded) / p.speedAvg
			info.ETA = time.Duration(remaining * float64(time.Second))
		}
	}
	return info
}
