package handlers

import (
	"net/http"
	"os"

	"asset-manager/internal/models"
)

// GetCheckpoints lists checkpoint models with their preview links.
func (h *Handlers) GetCheckpoints(w http.ResponseWriter, _ *http.Request) {
	h.writeModelList(w, "checkpoints")
}

// GetLoras lists lora models with their preview links.
func (h *Handlers) GetLoras(w http.ResponseWriter, _ *http.Request) {
	h.writeModelList(w, "loras")
}

func (h *Handlers) writeModelList(w http.ResponseWriter, folder string) {
	list := []models.Model{}
	if h.catalog != nil {
		list = h.catalog.List(folder)
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string][]models.Model{folder: list})
}

// GetAuxModels lists the auxiliary model names (upscalers and
// detectors) in one response.
func (h *Handlers) GetAuxModels(w http.ResponseWriter, _ *http.Request) {
	aux := map[string][]string{
		"upscale": {},
		"bbox":    {},
		"segm":    {},
	}
	if h.catalog != nil {
		for folder := range aux {
			if names := h.catalog.Names(folder); names != nil {
				aux[folder] = names
			}
		}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, aux)
}

// GetModelFile serves the preview image stored next to a model file.
func (h *Handlers) GetModelFile(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	name := r.URL.Query().Get("name")
	ext := r.URL.Query().Get("ext")

	if folder == "" || name == "" || ext == "" {
		http.Error(w, "Missing folder, name, or ext", http.StatusBadRequest)
		return
	}
	if h.catalog == nil {
		http.Error(w, "Model browsing disabled", http.StatusNotFound)
		return
	}

	path, err := h.catalog.PreviewPath(folder, name, ext)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "Preview not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Forbidden file type", http.StatusForbidden)
		return
	}
	http.ServeFile(w, r, path)
}
