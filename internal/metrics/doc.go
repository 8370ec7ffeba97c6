// Package metrics defines the Prometheus metrics exported by the asset
// manager and pre-populates label combinations at startup so every series
// is present from the first scrape.
package metrics
