package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"asset-manager/internal/logging"
	"asset-manager/internal/resize"
)

// maxUploadBytes bounds resize uploads; generation outputs are far
// smaller than this.
const maxUploadBytes = 256 << 20

type zipRequest struct {
	Filenames []string `json:"filenames"`
}

// DownloadZip bundles the named output files into a zip archive and
// streams it as an attachment.
func (h *Handlers) DownloadZip(w http.ResponseWriter, r *http.Request) {
	var req zipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Filenames) == 0 {
		writeError(w, "No filenames provided", http.StatusBadRequest)
		return
	}

	archive, err := h.archiver.BuildZip(req.Filenames)
	if err != nil {
		logging.Error("archive build failed: %v", err)
		writeError(w, "Failed to build archive", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="images.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	if _, err := w.Write(archive); err != nil {
		logging.Error("failed to stream archive: %v", err)
	}
}

// ResizeResponse is the wire shape for a completed resize upload.
type ResizeResponse struct {
	Status   string `json:"status"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ResizeImage accepts a multipart image upload, resizes and transcodes
// it per the form fields, and returns where the result landed.
func (h *Handlers) ResizeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	req, err := parseResizeRequest(r)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.pipeline.Process(r.Context(), data, header.Filename, req)
	if err != nil {
		switch {
		case errors.Is(err, resize.ErrValidation):
			writeError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, resize.ErrDecode):
			writeError(w, fmt.Sprintf("Resize Error: %v", err), http.StatusInternalServerError)
		default:
			logging.Error("resize failed for %s: %v", header.Filename, err)
			writeError(w, fmt.Sprintf("Resize Error: %v", err), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, ResizeResponse{
		Status:   "success",
		Filename: result.Filename,
		URL:      result.URL,
	})
}

// parseResizeRequest maps the multipart form fields onto a pipeline
// request. Mode and format default to "none" and "webp"; the numeric
// parameter of the selected mode is required.
func parseResizeRequest(r *http.Request) (resize.Request, error) {
	mode, err := resize.ParseMode(r.FormValue("mode"))
	if err != nil {
		return resize.Request{}, err
	}
	format, err := resize.ParseFormat(r.FormValue("format"))
	if err != nil {
		return resize.Request{}, err
	}

	req := resize.Request{Mode: mode, Format: format, Quality: 85}

	if q := r.FormValue("quality"); q != "" {
		quality, err := strconv.Atoi(q)
		if err != nil {
			return resize.Request{}, fmt.Errorf("%w: quality must be an integer", resize.ErrValidation)
		}
		req.Quality = quality
	}

	switch mode {
	case resize.ModeScale:
		value, err := strconv.ParseFloat(r.FormValue("val_scale"), 64)
		if err != nil {
			return resize.Request{}, fmt.Errorf("%w: scale mode requires val_scale", resize.ErrValidation)
		}
		req.ScalePercent = value
	case resize.ModeLongest:
		value, err := strconv.Atoi(r.FormValue("val_longest"))
		if err != nil {
			return resize.Request{}, fmt.Errorf("%w: longest mode requires val_longest", resize.ErrValidation)
		}
		req.LongestEdge = value
	case resize.ModeExact:
		width, err := strconv.Atoi(r.FormValue("val_width"))
		if err != nil {
			return resize.Request{}, fmt.Errorf("%w: exact mode requires val_width", resize.ErrValidation)
		}
		height, err := strconv.Atoi(r.FormValue("val_height"))
		if err != nil {
			return resize.Request{}, fmt.Errorf("%w: exact mode requires val_height", resize.ErrValidation)
		}
		req.TargetWidth = width
		req.TargetHeight = height
	}

	return req, nil
}
