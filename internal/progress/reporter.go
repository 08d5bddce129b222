package progress

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Options configures the progress reporter.
type Options struct {
	// TotalSize is the expected size in bytes. Zero or negative when the
	// server did not send a Content-Length.
	TotalSize int64

	// Output is where to write progress output.
	// Default: os.Stdout
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration

	// SourceURL is the URL being downloaded (for display).
	SourceURL string
}

// Reporter outputs human-readable progress for a single streamed transfer.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	written    atomic.Int64
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	stopped    bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// SetTotal sets the expected size once it is known from response headers.
func (r *Reporter) SetTotal(n int64) {
	r.mu.Lock()
	r.opts.TotalSize = n
	r.mu.Unlock()
}

// Start begins outputting progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	total := r.opts.TotalSize
	r.mu.Unlock()

	fmt.Fprintf(r.opts.Output, "[audiohook] Downloading: %s\n", r.opts.SourceURL)
	if total > 0 {
		fmt.Fprintf(r.opts.Output, "[audiohook] Total size: %s\n", formatBytes(total))
	}

	go r.updateLoop()
}

// Stop stops the reporter and prints the final status. It waits for the
// final line to be written.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

// Add records n transferred bytes.
func (r *Reporter) Add(n int64) {
	r.written.Add(n)
}

// Written returns the number of bytes recorded so far.
func (r *Reporter) Written() int64 {
	return r.written.Load()
}

// Write implements io.Writer so the reporter can sit behind io.TeeReader.
func (r *Reporter) Write(p []byte) (int, error) {
	r.Add(int64(len(p)))
	return len(p), nil
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	completed := r.written.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(completed-r.lastBytes) / elapsed

	r.lastUpdate = now
	r.lastBytes = completed

	if r.opts.TotalSize <= 0 {
		fmt.Fprintf(r.opts.Output, "\r[audiohook] Progress: %s | Speed: %s/s    ",
			formatBytes(completed),
			formatBytes(int64(speed)),
		)
		return
	}

	percent := float64(completed) / float64(r.opts.TotalSize) * 100
	eta := "calculating..."
	if speed > 0 {
		remaining := float64(r.opts.TotalSize - completed)
		eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
	}

	fmt.Fprintf(r.opts.Output, "\r[audiohook] Progress: %.1f%% | %s / %s | Speed: %s/s | ETA: %s    ",
		percent,
		formatBytes(completed),
		formatBytes(r.opts.TotalSize),
		formatBytes(int64(speed)),
		eta,
	)
}

func (r *Reporter) printFinalStatus() {
	completed := r.written.Load()
	duration := time.Since(r.startTime)
	secs := duration.Seconds()
	if secs <= 0 {
		secs = 1e-3
	}
	avgSpeed := float64(completed) / secs

	fmt.Fprintf(r.opts.Output, "\r[audiohook] Downloaded %s in %s | Average speed: %s/s    \n",
		formatBytes(completed),
		formatDuration(duration),
		formatBytes(int64(avgSpeed)),
	)
}

// formatBytes formats bytes with binary multiples and one decimal.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.1f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

var byteUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"TIB", 1 << 40},
	{"GIB", 1 << 30},
	{"MIB", 1 << 20},
	{"KIB", 1 << 10},
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string such as "50MB" or "1.5 MiB".
// KB/MB/GB/TB are binary multiples, the same as KiB/MiB/GiB/TiB.
func ParseBytes(s string) (int64, error) {
	orig := s
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid byte string: %s", orig)
	}

	return int64(value * float64(multiplier)), nil
}
