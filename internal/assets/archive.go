package assets

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"
	"asset-manager/internal/sandbox"
)

// Archiver streams files from directly under the output root into a single
// in-memory zip archive.
type Archiver struct {
	resolver *sandbox.Resolver
}

// NewArchiver creates an Archiver over the resolver's root.
func NewArchiver(resolver *sandbox.Resolver) *Archiver {
	return &Archiver{resolver: resolver}
}

// BuildZip writes the named files into a deflate-compressed zip held in
// memory. Names are flattened to their basename before lookup, so no
// subfolder traversal is possible; entries are stored by basename and
// missing files are silently skipped. Basename collisions produce
// duplicate entries.
func (a *Archiver) BuildZip(filenames []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	entries := 0
	for _, name := range filenames {
		base := filepath.Base(name)
		if base == "." || base == string(filepath.Separator) {
			continue
		}

		source, err := a.resolver.Resolve(base, "")
		if err != nil {
			logging.Warn("archive skipping %q: %v", name, err)
			continue
		}

		info, err := os.Stat(source)
		if err != nil || !info.Mode().IsRegular() {
			logging.Debug("archive skipping missing file %s", source)
			continue
		}

		file, err := os.Open(source)
		if err != nil {
			logging.Warn("archive skipping unreadable file %s: %v", source, err)
			continue
		}

		entry, err := zw.Create(base)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to create archive entry %q: %w", base, err)
		}
		if _, err := io.Copy(entry, file); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write archive entry %q: %w", base, err)
		}
		if err := file.Close(); err != nil {
			logging.Warn("failed to close %s: %v", source, err)
		}
		entries++
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	metrics.ArchiveBuildsTotal.Inc()
	metrics.ArchiveEntries.Observe(float64(entries))
	metrics.ArchiveBytes.Observe(float64(buf.Len()))

	return buf.Bytes(), nil
}
