package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_manager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_manager_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Gallery scan metrics
var (
	GalleryScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_gallery_scans_total",
			Help: "Total number of gallery scans",
		},
		[]string{"status"},
	)

	GalleryScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_gallery_scan_duration_seconds",
			Help:    "Gallery scan duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	GalleryGroupsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_gallery_groups_returned",
			Help:    "Number of groups returned per gallery scan",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	GalleryAssetsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_gallery_assets_returned",
			Help:    "Number of assets returned per gallery scan",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	GalleryUnreadableDirs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_manager_gallery_unreadable_dirs_total",
			Help: "Directories skipped during scans because they could not be read",
		},
	)
)

// Deletion metrics
var (
	DeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_deletions_total",
			Help: "Per-item outcomes of bulk delete requests",
		},
		[]string{"result"}, // "deleted", "failed"
	)
)

// Archive metrics
var (
	ArchiveBuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_manager_archive_builds_total",
			Help: "Total number of zip archives built",
		},
	)

	ArchiveEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_archive_entries",
			Help:    "Number of entries written per archive",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	ArchiveBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_archive_bytes",
			Help:    "Size of built archives in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)
)

// Resize pipeline metrics
var (
	ResizesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_resizes_total",
			Help: "Total number of resize requests by output format and status",
		},
		[]string{"format", "status"},
	)

	ResizePhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asset_manager_resize_phase_duration_seconds",
			Help:    "Duration of resize pipeline phases",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"phase"}, // "decode", "resize", "encode", "write"
	)

	ResizeQueueWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asset_manager_resize_queue_wait_seconds",
			Help:    "Time resize requests spend waiting for a worker slot",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

// Metadata extraction metrics
var (
	MetadataExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_metadata_extractions_total",
			Help: "Total number of embedded metadata extractions",
		},
		[]string{"status"},
	)
)

// Output watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asset_manager_watcher_events_total",
			Help: "Filesystem events observed under the output root",
		},
		[]string{"event"}, // "create", "write", "remove", "rename", "chmod", "unknown"
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "asset_manager_watched_directories",
			Help: "Number of directories currently watched under the output root",
		},
	)

	WatcherErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "asset_manager_watcher_errors_total",
			Help: "Errors reported by the output directory watcher",
		},
	)
)

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
