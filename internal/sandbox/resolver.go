package sandbox

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrPathEscape is returned when a resolved path falls outside the
	// sandbox root.
	ErrPathEscape = errors.New("path escapes sandbox root")
	// ErrDisallowedType is returned when a bare path carries an extension
	// that is not on the view allow-list.
	ErrDisallowedType = errors.New("disallowed file type")
)

// ViewExtensions is the allow-list for files served by absolute path.
var ViewExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".webp": true, ".gif": true,
}

// Resolver turns caller-supplied names into absolute paths guaranteed to
// lie inside the configured root. It holds no state beyond the root.
type Resolver struct {
	root string
}

// NewResolver creates a Resolver anchored at root. The root is made
// absolute and symlink-resolved so later containment checks compare
// canonical paths.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve sandbox root %q: %w", root, err)
	}
	canonical, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize sandbox root %q: %w", root, err)
	}
	return &Resolver{root: canonical}, nil
}

// Root returns the canonical sandbox root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins root, subfolder and filename, canonicalizes the result and
// accepts it only if it is equal to or nested under the root. Absolute
// filenames are rejected outright.
func (r *Resolver) Resolve(filename, subfolder string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrPathEscape)
	}
	if filepath.IsAbs(filename) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, filename)
	}

	candidate := filepath.Join(r.root, subfolder, filename)
	abs, err := filepath.Abs(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathEscape, err)
	}

	resolved, err := canonicalize(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathEscape, err)
	}

	if !r.contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, filename)
	}
	return resolved, nil
}

// ResolveBare canonicalizes an absolute path supplied directly by the
// caller and constrains it to the view extension allow-list.
func (r *Resolver) ResolveBare(path string) (string, error) {
	if path == "" || !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: not an absolute path", ErrPathEscape)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !ViewExtensions[ext] {
		return "", fmt.Errorf("%w: %s", ErrDisallowedType, ext)
	}

	resolved, err := canonicalize(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPathEscape, err)
	}
	return resolved, nil
}

// ViewURL builds the canonical view reference for a file under the root.
// The same rule is used for gallery listings and resize results.
func (r *Resolver) ViewURL(filename, subfolder string) string {
	v := url.Values{}
	v.Set("filename", filename)
	v.Set("subfolder", subfolder)
	v.Set("type", "output")
	return "/view?" + v.Encode()
}

func (r *Resolver) contains(path string) bool {
	if path == r.root {
		return true
	}
	return strings.HasPrefix(path, r.root+string(filepath.Separator))
}

// canonicalize resolves symlinks in path. When the path does not exist yet
// (resize outputs, missing files) the nearest existing ancestor is resolved
// and the remainder re-attached, so containment checks still see through
// symlinked parents.
func canonicalize(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return path, nil
	}
	resolvedParent, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(path)), nil
}
