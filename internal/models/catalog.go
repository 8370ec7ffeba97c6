// Package models lists generation model files (checkpoints, loras, and
// auxiliary models) and locates the preview images stored next to them.
package models

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"asset-manager/internal/logging"
	"asset-manager/internal/sandbox"
)

// ModelExtensions are the file extensions treated as model weights.
var ModelExtensions = map[string]bool{
	".safetensors": true, ".ckpt": true, ".pt": true, ".pth": true, ".bin": true,
}

// previewSuffixes is the probe order for preview images beside a model.
var previewSuffixes = []string{
	".preview.jpeg", ".preview.jpg", ".preview.png",
	".jpeg", ".jpg", ".png",
}

// folderDirs maps public folder names to on-disk subdirectories.
var folderDirs = map[string]string{
	"checkpoints": "checkpoints",
	"loras":       "loras",
	"upscale":     "upscale_models",
	"bbox":        "ultralytics",
	"segm":        "sams",
}

// Model is one listed weight file with optional sidecar links.
type Model struct {
	Name     string  `json:"name"`
	ImageURL *string `json:"image_url"`
	JSONURL  *string `json:"json_url"`
}

// Catalog lists models under a fixed root directory. Path handling goes
// through a sandbox resolver so crafted folder or model names cannot
// reach outside the root.
type Catalog struct {
	resolver *sandbox.Resolver
}

// NewCatalog returns a catalog rooted at dir.
func NewCatalog(dir string) (*Catalog, error) {
	resolver, err := sandbox.NewResolver(dir)
	if err != nil {
		return nil, err
	}
	return &Catalog{resolver: resolver}, nil
}

// List returns the models in the named folder, sorted by relative path,
// each with a preview image link when a preview file sits beside it.
// An unknown folder or a missing directory yields an empty list.
func (c *Catalog) List(folder string) []Model {
	names := c.Names(folder)
	result := make([]Model, 0, len(names))
	for _, name := range names {
		model := Model{Name: name}
		if ext := c.previewExt(folder, name); ext != "" {
			u := previewURL(folder, name, ext)
			model.ImageURL = &u
		}
		result = append(result, model)
	}
	return result
}

// Names returns just the relative model paths in the named folder.
func (c *Catalog) Names(folder string) []string {
	dir, ok := folderDirs[folder]
	if !ok {
		return nil
	}
	root := filepath.Join(c.resolver.Root(), dir)

	var names []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipAll
			}
			logging.Warn("skipping unreadable model path %s: %v", path, err)
			return nil
		}
		if d.IsDir() || !ModelExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		logging.Warn("model walk for %s failed: %v", folder, err)
	}

	sort.Strings(names)
	return names
}

// PreviewPath resolves the preview file for a model, constrained to the
// known preview suffixes. Missing files surface as os.IsNotExist.
func (c *Catalog) PreviewPath(folder, name, ext string) (string, error) {
	if !allowedSuffix(ext) {
		return "", fmt.Errorf("%w: %s", sandbox.ErrDisallowedType, ext)
	}
	dir, ok := folderDirs[folder]
	if !ok {
		return "", os.ErrNotExist
	}

	modelPath, err := c.resolver.Resolve(name, dir)
	if err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(modelPath, filepath.Ext(modelPath))
	previewPath := stem + ext
	if _, err := os.Stat(previewPath); err != nil {
		return "", err
	}
	return previewPath, nil
}

// previewExt probes for a preview file next to the model, returning the
// first suffix that exists.
func (c *Catalog) previewExt(folder, name string) string {
	dir, ok := folderDirs[folder]
	if !ok {
		return ""
	}
	modelPath, err := c.resolver.Resolve(name, dir)
	if err != nil {
		return ""
	}
	stem := strings.TrimSuffix(modelPath, filepath.Ext(modelPath))
	for _, suffix := range previewSuffixes {
		if _, err := os.Stat(stem + suffix); err == nil {
			return suffix
		}
	}
	return ""
}

func allowedSuffix(ext string) bool {
	for _, suffix := range previewSuffixes {
		if ext == suffix {
			return true
		}
	}
	return false
}

func previewURL(folder, name, ext string) string {
	v := url.Values{}
	v.Set("folder", folder)
	v.Set("name", name)
	v.Set("ext", ext)
	return "/api/file?" + v.Encode()
}
