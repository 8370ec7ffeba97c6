package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"asset-manager/internal/logging"
)

// GetLibrary returns the prompt library document, or the empty default
// structure when nothing has been saved yet.
func (h *Handlers) GetLibrary(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.library.Load()
	if err != nil {
		if os.IsNotExist(err) {
			w.Header().Set("Content-Type", "application/json")
			writeJSON(w, map[string][]interface{}{"categories": {}})
			return
		}
		logging.Error("failed to load library: %v", err)
		writeError(w, "Failed to load library", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(doc)
}

// SaveLibrary stores the posted prompt library document verbatim.
func (h *Handlers) SaveLibrary(w http.ResponseWriter, r *http.Request) {
	h.saveDocument(w, r, h.library, "library")
}

// LoadState returns the saved UI state, or a not_found status when no
// state has been stored.
func (h *Handlers) LoadState(w http.ResponseWriter, _ *http.Request) {
	doc, err := h.appState.Load()
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONStatus(w, "not_found")
			return
		}
		logging.Error("failed to load state: %v", err)
		writeError(w, "Failed to load state", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, struct {
		Status string          `json:"status"`
		State  json.RawMessage `json:"state"`
	}{Status: "success", State: doc})
}

// SaveState stores the posted UI state document.
func (h *Handlers) SaveState(w http.ResponseWriter, r *http.Request) {
	h.saveDocument(w, r, h.appState, "state")
}

type documentSaver interface {
	Save(doc json.RawMessage) error
}

func (h *Handlers) saveDocument(w http.ResponseWriter, r *http.Request, dst documentSaver, name string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(body) {
		writeError(w, "Invalid JSON document", http.StatusBadRequest)
		return
	}
	if err := dst.Save(body); err != nil {
		logging.Error("failed to save %s: %v", name, err)
		writeError(w, "Failed to save "+name, http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "success")
}

type logRequest struct {
	Message string `json:"message"`
}

// AppendLog records one client-side log message into the daily log file.
func (h *Handlers) AppendLog(w http.ResponseWriter, r *http.Request) {
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Message == "" {
		writeError(w, "No message provided", http.StatusBadRequest)
		return
	}
	if err := h.logbook.Append(req.Message); err != nil {
		logging.Error("failed to append client log: %v", err)
		writeError(w, "Failed to write log", http.StatusInternalServerError)
		return
	}
	writeJSONStatus(w, "success")
}
