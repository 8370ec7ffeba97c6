package assets

import (
	"os"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"
	"asset-manager/internal/sandbox"
)

// Deleter removes batches of referenced files. One bad entry never
// prevents deletion of the others.
type Deleter struct {
	resolver *sandbox.Resolver
}

// NewDeleter creates a Deleter that validates every item against the
// resolver before touching disk.
func NewDeleter(resolver *sandbox.Resolver) *Deleter {
	return &Deleter{resolver: resolver}
}

// DeleteMany deletes each item independently. Items that fail resolution,
// do not exist, or are not regular files count as failed; the batch always
// runs to completion and Deleted+Failed equals len(items).
func (d *Deleter) DeleteMany(items []DeleteItem) DeleteOutcome {
	var outcome DeleteOutcome

	for _, item := range items {
		target, err := d.resolver.Resolve(item.Filename, item.Subfolder)
		if err != nil {
			logging.Warn("delete rejected for %q/%q: %v", item.Subfolder, item.Filename, err)
			outcome.Failed++
			continue
		}

		info, err := os.Stat(target)
		if err != nil || !info.Mode().IsRegular() {
			logging.Debug("delete skipped, not a regular file: %s", target)
			outcome.Failed++
			continue
		}

		if err := os.Remove(target); err != nil {
			logging.Warn("failed to delete %s: %v", target, err)
			outcome.Failed++
			continue
		}
		outcome.Deleted++
	}

	metrics.DeletionsTotal.WithLabelValues("deleted").Add(float64(outcome.Deleted))
	metrics.DeletionsTotal.WithLabelValues("failed").Add(float64(outcome.Failed))

	return outcome
}
