package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"asset-manager/internal/assets"
	"asset-manager/internal/logging"
	"asset-manager/internal/metadata"
	"asset-manager/internal/sandbox"
)

// GalleryResponse is the wire shape for the gallery listing.
type GalleryResponse struct {
	Status  string         `json:"status"`
	Gallery []assets.Group `json:"gallery"`
}

// GetGallery returns the grouped listing of the output directory.
func (h *Handlers) GetGallery(w http.ResponseWriter, _ *http.Request) {
	groups, err := h.scanner.Scan()
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, "Output directory not found", http.StatusNotFound)
			return
		}
		logging.Error("gallery scan failed: %v", err)
		writeError(w, "Failed to scan output directory", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, GalleryResponse{Status: "success", Gallery: groups})
}

// MetadataResponse is the wire shape for extracted image metadata.
type MetadataResponse struct {
	Status   string            `json:"status"`
	Prompt   json.RawMessage   `json:"prompt"`
	Workflow json.RawMessage   `json:"workflow"`
	Raw      map[string]string `json:"raw_info"`
}

// GetImageMetadata extracts the embedded generation metadata of one
// gallery image, addressed by filename and subfolder.
func (h *Handlers) GetImageMetadata(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	subfolder := r.URL.Query().Get("subfolder")

	path, err := h.resolver.Resolve(filename, subfolder)
	if err != nil {
		writeError(w, "Invalid file path", http.StatusForbidden)
		return
	}

	bundle, err := metadata.Extract(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, "File not found", http.StatusNotFound)
			return
		}
		logging.Error("metadata extraction failed for %s: %v", path, err)
		writeError(w, "Failed to read image metadata", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, MetadataResponse{
		Status:   "success",
		Prompt:   bundle.Prompt,
		Workflow: bundle.Workflow,
		Raw:      bundle.Raw,
	})
}

type deleteRequest struct {
	Images []assets.DeleteItem `json:"images"`
}

// DeleteResponse reports the partial-failure outcome of a bulk delete.
type DeleteResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
	Failed  int    `json:"failed"`
}

// DeleteImages removes the listed gallery files. Individual failures do
// not abort the batch; the response carries both counters.
func (h *Handlers) DeleteImages(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Images) == 0 {
		writeError(w, "No images provided for deletion", http.StatusBadRequest)
		return
	}

	outcome := h.deleter.DeleteMany(req.Images)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, DeleteResponse{
		Status:  "success",
		Deleted: outcome.Deleted,
		Failed:  outcome.Failed,
	})
}

// OpenFolder reveals the file (or its containing directory) in the host
// file manager. Paths are sandbox-checked before touching the OS.
func (h *Handlers) OpenFolder(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	subfolder := r.URL.Query().Get("subfolder")

	target, err := h.resolver.Resolve(filename, subfolder)
	if err != nil {
		writeError(w, "Invalid file path", http.StatusForbidden)
		return
	}
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(target)
	}

	if err := revealInFileManager(target); err != nil {
		logging.Error("failed to open folder for %s: %v", target, err)
		writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "success")
}

func revealInFileManager(target string) error {
	switch runtime.GOOS {
	case "windows":
		return exec.Command("explorer", "/select,", target).Run()
	case "darwin":
		return exec.Command("open", "-R", target).Run()
	default:
		return exec.Command("xdg-open", filepath.Dir(target)).Run()
	}
}

// ViewImage serves an image addressed by absolute path, constrained to
// the image extension allow-list.
func (h *Handlers) ViewImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	// Existence decides first, so a missing file is 404 regardless of its
	// extension.
	if _, err := os.Stat(raw); err != nil {
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	path, err := h.resolver.ResolveBare(raw)
	if err != nil {
		if errors.Is(err, sandbox.ErrDisallowedType) {
			http.Error(w, "Forbidden file type", http.StatusForbidden)
			return
		}
		http.Error(w, "Image not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}

// View serves a gallery file addressed by filename and subfolder,
// the same reference shape the listing and resize results hand out.
func (h *Handlers) View(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	subfolder := r.URL.Query().Get("subfolder")

	path, err := h.resolver.Resolve(filename, subfolder)
	if err != nil {
		http.Error(w, "Invalid file path", http.StatusForbidden)
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	http.ServeFile(w, r, path)
}
