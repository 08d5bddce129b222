package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lacer2k/n8n-lacer2k-chatbot/internal/audio"
)

// Metrics holds the counters for one CLI run. Each Metrics has its own
// registry, so the process-wide default registry is never touched.
type Metrics struct {
	registry *prometheus.Registry

	downloads      *prometheus.CounterVec
	uploads        *prometheus.CounterVec
	archives       *prometheus.CounterVec
	cleanups       *prometheus.CounterVec
	downloadBytes  prometheus.Histogram
	uploadDuration prometheus.Histogram
	lastRunSuccess prometheus.Gauge
	lastRunTime    prometheus.Gauge
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiohook_downloads_total",
			Help: "Audio downloads by result",
		}, []string{"result"}),
		uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiohook_uploads_total",
			Help: "Webhook uploads by result",
		}, []string{"result"}),
		archives: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiohook_archives_total",
			Help: "Bucket archive copies by result",
		}, []string{"result"}),
		cleanups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audiohook_cleanups_total",
			Help: "Local file removals by result",
		}, []string{"result"}),
		downloadBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiohook_download_bytes",
			Help:    "Size of downloaded audio files",
			Buckets: prometheus.ExponentialBuckets(64*1024, 4, 8), // 64 KiB .. 1 GiB
		}),
		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audiohook_upload_duration_seconds",
			Help:    "Time spent posting audio to the webhook",
			Buckets: prometheus.DefBuckets,
		}),
		lastRunSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audiohook_last_run_success",
			Help: "1 if the last run uploaded successfully, 0 otherwise",
		}),
		lastRunTime: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audiohook_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// result is "success" for a nil error and the error kind otherwise.
func result(err error) string {
	if err == nil {
		return "success"
	}
	return audio.KindOf(err).String()
}

// ObserveDownload records a download attempt; size is ignored on failure.
func (m *Metrics) ObserveDownload(size int64, err error) {
	m.downloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.downloadBytes.Observe(float64(size))
	}
}

// ObserveUpload records an upload attempt and how long it took.
func (m *Metrics) ObserveUpload(d time.Duration, err error) {
	m.uploads.WithLabelValues(result(err)).Inc()
	m.uploadDuration.Observe(d.Seconds())
}

// ObserveArchive records an archive copy.
func (m *Metrics) ObserveArchive(err error) {
	m.archives.WithLabelValues(result(err)).Inc()
}

// ObserveCleanup records a local file removal.
func (m *Metrics) ObserveCleanup(err error) {
	m.cleanups.WithLabelValues(result(err)).Inc()
}

// SetLastRun records the outcome of the whole run.
func (m *Metrics) SetLastRun(success bool, at time.Time) {
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
	m.lastRunTime.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
