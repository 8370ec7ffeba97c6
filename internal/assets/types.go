package assets

// RootLabel is the reserved display label for assets that live directly
// under the output root (empty subfolder).
const RootLabel = "Uncategorized (Root)"

// GalleryExtensions maps file extensions to whether they appear in gallery
// listings.
var GalleryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true,
}

// Asset is a single gallery entry. Subfolder is relative to the output
// root, empty for the root itself, and never contains a parent-directory
// segment.
type Asset struct {
	Filename  string  `json:"filename"`
	Subfolder string  `json:"subfolder"`
	URL       string  `json:"url"`
	Timestamp float64 `json:"timestamp"`
}

// Group is one directory's bucket in the gallery listing. Assets are
// ordered newest first.
type Group struct {
	Folder string  `json:"folder"`
	Assets []Asset `json:"images"`
}

// DeleteItem references one file in a bulk delete request.
type DeleteItem struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
}

// DeleteOutcome aggregates a bulk delete. Deleted+Failed always equals the
// number of requested items.
type DeleteOutcome struct {
	Deleted int
	Failed  int
}
