package assets

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"
	"asset-manager/internal/sandbox"
)

// Scanner builds grouped, time-ordered gallery listings of the output root.
type Scanner struct {
	resolver *sandbox.Resolver
}

// NewScanner creates a Scanner over the resolver's root.
func NewScanner(resolver *sandbox.Resolver) *Scanner {
	return &Scanner{resolver: resolver}
}

// Scan walks the output root and returns one group per directory that
// contains at least one gallery file. Groups are ordered by label
// ascending with the root group first; assets within a group are ordered
// newest first. The only fatal condition is a missing root; unreadable
// subdirectories contribute nothing.
func (s *Scanner) Scan() ([]Group, error) {
	start := time.Now()
	var err error
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.GalleryScansTotal.WithLabelValues(status).Inc()
		metrics.GalleryScanDuration.Observe(time.Since(start).Seconds())
	}()

	root := s.resolver.Root()
	if _, err = os.Stat(root); err != nil {
		return nil, err
	}

	grouped := make(map[string][]Asset)
	s.scanDir(root, "", grouped)

	labels := make([]string, 0, len(grouped))
	for label := range grouped {
		if label != RootLabel {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)
	if _, ok := grouped[RootLabel]; ok {
		labels = append([]string{RootLabel}, labels...)
	}

	groups := make([]Group, 0, len(labels))
	assetCount := 0
	for _, label := range labels {
		groups = append(groups, Group{Folder: label, Assets: grouped[label]})
		assetCount += len(grouped[label])
	}

	metrics.GalleryGroupsReturned.Observe(float64(len(groups)))
	metrics.GalleryAssetsReturned.Observe(float64(assetCount))

	return groups, nil
}

// scanDir collects gallery files in one directory and recurses into its
// subdirectories. Each directory read is independently fallible.
func (s *Scanner) scanDir(dir, subfolder string, grouped map[string][]Asset) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Warn("gallery scan skipping unreadable directory %s: %v", dir, err)
		metrics.GalleryUnreadableDirs.Inc()
		return
	}

	var found []Asset
	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() {
			childSub := name
			if subfolder != "" {
				childSub = path.Join(subfolder, name)
			}
			s.scanDir(filepath.Join(dir, name), childSub, grouped)
			continue
		}

		if !GalleryExtensions[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		found = append(found, Asset{
			Filename:  name,
			Subfolder: subfolder,
			URL:       s.resolver.ViewURL(name, subfolder),
			Timestamp: unixSeconds(info.ModTime()),
		})
	}

	if len(found) == 0 {
		return
	}

	sort.Slice(found, func(i, j int) bool {
		return found[i].Timestamp > found[j].Timestamp
	})

	label := subfolder
	if label == "" {
		label = RootLabel
	}
	grouped[label] = found
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
