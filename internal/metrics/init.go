package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error"} {
		GalleryScansTotal.WithLabelValues(status)
		MetadataExtractionsTotal.WithLabelValues(status)
	}

	for _, result := range []string{"deleted", "failed"} {
		DeletionsTotal.WithLabelValues(result)
	}

	formats := []string{"png", "jpeg", "webp", "gif"}
	for _, format := range formats {
		ResizesTotal.WithLabelValues(format, "success")
		ResizesTotal.WithLabelValues(format, "error")
	}

	for _, phase := range []string{"decode", "resize", "encode", "write"} {
		ResizePhaseDuration.WithLabelValues(phase)
	}

	for _, event := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		WatcherEventsTotal.WithLabelValues(event)
	}
}
