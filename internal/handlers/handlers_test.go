package handlers

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"asset-manager/internal/startup"
	"asset-manager/internal/workers"
)

func newTestHandlers(t *testing.T) (*Handlers, *startup.Config) {
	t.Helper()

	config := &startup.Config{
		OutputDir: t.TempDir(),
		DataDir:   t.TempDir(),
	}
	config.LibraryPath = filepath.Join(config.DataDir, "prompt_library.json")
	config.StatePath = filepath.Join(config.DataDir, "app_state.json")
	config.LogDir = filepath.Join(config.DataDir, "log")

	h, err := New(config, workers.NewPool(2))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return h, config
}

func writeOutputFile(t *testing.T, config *startup.Config, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{config.OutputDir}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writePNGFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	if err := png.Encode(file, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("response is not valid JSON: %v\nbody: %s", err, w.Body.String())
	}
}

func TestGetGallery(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	writeOutputFile(t, config, "a.png")
	writeOutputFile(t, config, "renders", "b.png")
	writeOutputFile(t, config, "notes.txt")

	w := httptest.NewRecorder()
	h.GetGallery(w, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		Gallery []struct {
			Folder string `json:"folder"`
			Images []struct {
				Filename string `json:"filename"`
				URL      string `json:"url"`
			} `json:"images"`
		} `json:"gallery"`
	}
	decodeBody(t, w, &resp)

	if resp.Status != "success" || len(resp.Gallery) != 2 {
		t.Fatalf("gallery = %+v", resp)
	}
	if !strings.Contains(resp.Gallery[0].Folder, "Root") {
		t.Errorf("first group = %q, want the root group", resp.Gallery[0].Folder)
	}
	if resp.Gallery[1].Folder != "renders" {
		t.Errorf("second group = %q, want renders", resp.Gallery[1].Folder)
	}
}

func TestGetGalleryMissingRoot(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	if err := os.RemoveAll(config.OutputDir); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.GetGallery(w, httptest.NewRequest(http.MethodGet, "/api/gallery", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var resp map[string]string
	decodeBody(t, w, &resp)
	if resp["status"] != "error" {
		t.Errorf("status field = %q, want error", resp["status"])
	}
}

func TestGetImageMetadata(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	writePNGFile(t, filepath.Join(config.OutputDir, "img.png"))

	w := httptest.NewRecorder()
	h.GetImageMetadata(w, httptest.NewRequest(http.MethodGet, "/api/image_metadata?filename=img.png", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Status   string          `json:"status"`
		Prompt   json.RawMessage `json:"prompt"`
		Workflow json.RawMessage `json:"workflow"`
	}
	decodeBody(t, w, &resp)
	if resp.Status != "success" || string(resp.Prompt) != "{}" || string(resp.Workflow) != "{}" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetImageMetadataErrors(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.GetImageMetadata(w, httptest.NewRequest(http.MethodGet, "/api/image_metadata?filename=gone.png", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing file status = %d, want 404", w.Code)
	}

	w = httptest.NewRecorder()
	h.GetImageMetadata(w, httptest.NewRequest(http.MethodGet, "/api/image_metadata?filename=..%2F..%2Fetc%2Fpasswd", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("traversal status = %d, want 403", w.Code)
	}
}

func TestDeleteImages(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	writeOutputFile(t, config, "keep.png")
	writeOutputFile(t, config, "drop.png")

	body := `{"images":[{"filename":"drop.png","subfolder":""},{"filename":"absent.png","subfolder":""}]}`
	w := httptest.NewRecorder()
	h.DeleteImages(w, httptest.NewRequest(http.MethodPost, "/api/delete_images", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DeleteResponse
	decodeBody(t, w, &resp)
	if resp.Deleted != 1 || resp.Failed != 1 {
		t.Errorf("deleted/failed = %d/%d, want 1/1", resp.Deleted, resp.Failed)
	}
	if _, err := os.Stat(filepath.Join(config.OutputDir, "keep.png")); err != nil {
		t.Error("unrelated file was removed")
	}
}

func TestDeleteImagesEmptyRequest(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.DeleteImages(w, httptest.NewRequest(http.MethodPost, "/api/delete_images", strings.NewReader(`{"images":[]}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDownloadZip(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	writeOutputFile(t, config, "one.png")
	writeOutputFile(t, config, "two.png")

	body := `{"filenames":["one.png","two.png","missing.png"]}`
	w := httptest.NewRecorder()
	h.DownloadZip(w, httptest.NewRequest(http.MethodPost, "/api/download_zip", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Content-Type"); got != "application/zip" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "attachment") {
		t.Errorf("Content-Disposition = %q", got)
	}

	reader, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a zip: %v", err)
	}
	if len(reader.File) != 2 {
		t.Errorf("archive has %d entries, want 2 (missing file skipped)", len(reader.File))
	}
}

func TestDownloadZipEmptyRequest(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.DownloadZip(w, httptest.NewRequest(http.MethodPost, "/api/download_zip", strings.NewReader(`{"filenames":[]}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/resize", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestResizeImage(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	fields := map[string]string{
		"mode":      "scale",
		"val_scale": "50",
		"format":    "png",
	}

	w := httptest.NewRecorder()
	h.ResizeImage(w, multipartUpload(t, fields, "shot.png", pngBytes(t, 100, 60)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp ResizeResponse
	decodeBody(t, w, &resp)
	if resp.Status != "success" || !strings.HasPrefix(resp.Filename, "shot_res_") {
		t.Errorf("response = %+v", resp)
	}
	if !strings.Contains(resp.URL, "AssetManager_Resized") {
		t.Errorf("URL = %q, want resized subfolder reference", resp.URL)
	}

	outPath := filepath.Join(config.OutputDir, "AssetManager_Resized", resp.Filename)
	file, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 30 {
		t.Errorf("output size = %dx%d, want 50x30", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResizeImageValidation(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	// No file part at all.
	w := httptest.NewRecorder()
	h.ResizeImage(w, multipartUpload(t, map[string]string{"mode": "none"}, "", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing file status = %d, want 400", w.Code)
	}

	// Scale mode without its numeric parameter.
	w = httptest.NewRecorder()
	h.ResizeImage(w, multipartUpload(t, map[string]string{"mode": "scale", "format": "png"}, "a.png", pngBytes(t, 4, 4)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing val_scale status = %d, want 400", w.Code)
	}

	// Unknown mode.
	w = httptest.NewRecorder()
	h.ResizeImage(w, multipartUpload(t, map[string]string{"mode": "stretch"}, "a.png", pngBytes(t, 4, 4)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown mode status = %d, want 400", w.Code)
	}

	// Undecodable upload.
	w = httptest.NewRecorder()
	h.ResizeImage(w, multipartUpload(t, map[string]string{"mode": "none", "format": "png"}, "a.png", []byte("junk")))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("garbage upload status = %d, want 500", w.Code)
	}
}

func TestLibraryRoundTrip(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	// Default before anything is saved.
	w := httptest.NewRecorder()
	h.GetLibrary(w, httptest.NewRequest(http.MethodGet, "/api/library", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"categories"`) {
		t.Fatalf("default library = %d %s", w.Code, w.Body.String())
	}

	doc := `{"categories":[{"name":"portraits","groups":[]}]}`
	w = httptest.NewRecorder()
	h.SaveLibrary(w, httptest.NewRequest(http.MethodPost, "/api/library", strings.NewReader(doc)))
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.GetLibrary(w, httptest.NewRequest(http.MethodGet, "/api/library", nil))
	if strings.TrimSpace(w.Body.String()) != doc {
		t.Errorf("library = %s, want saved document", w.Body.String())
	}
}

func TestSaveLibraryRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.SaveLibrary(w, httptest.NewRequest(http.MethodPost, "/api/library", strings.NewReader("{broken")))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestStateRoundTrip(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.LoadState(w, httptest.NewRequest(http.MethodGet, "/api/load_state", nil))
	var status map[string]string
	decodeBody(t, w, &status)
	if status["status"] != "not_found" {
		t.Fatalf("initial state = %v, want not_found", status)
	}

	w = httptest.NewRecorder()
	h.SaveState(w, httptest.NewRequest(http.MethodPost, "/api/save_state", strings.NewReader(`{"tab":"gallery"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.LoadState(w, httptest.NewRequest(http.MethodGet, "/api/load_state", nil))
	var resp struct {
		Status string          `json:"status"`
		State  json.RawMessage `json:"state"`
	}
	decodeBody(t, w, &resp)
	if resp.Status != "success" || string(resp.State) != `{"tab":"gallery"}` {
		t.Errorf("loaded state = %+v", resp)
	}
}

func TestAppendLog(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.AppendLog(w, httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"message":""}`)))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty message status = %d, want 400", w.Code)
	}

	w = httptest.NewRecorder()
	h.AppendLog(w, httptest.NewRequest(http.MethodPost, "/api/log", strings.NewReader(`{"message":"panel opened"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	entries, err := os.ReadDir(config.LogDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("log dir = %v, %v, want one file", entries, err)
	}
}

func TestViewServesFile(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	writePNGFile(t, filepath.Join(config.OutputDir, "renders", "pic.png"))

	w := httptest.NewRecorder()
	h.View(w, httptest.NewRequest(http.MethodGet, "/view?filename=pic.png&subfolder=renders", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.View(w, httptest.NewRequest(http.MethodGet, "/view?filename=..%2F..%2Fetc%2Fpasswd&subfolder=", nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("traversal status = %d, want 403", w.Code)
	}

	w = httptest.NewRecorder()
	h.View(w, httptest.NewRequest(http.MethodGet, "/view?filename=nope.png&subfolder=", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing status = %d, want 404", w.Code)
	}
}

func TestViewImageByPath(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	imgPath := filepath.Join(config.OutputDir, "direct.png")
	writePNGFile(t, imgPath)

	w := httptest.NewRecorder()
	h.ViewImage(w, httptest.NewRequest(http.MethodGet, "/api/view_image?path="+imgPath, nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}

	// Disallowed extension.
	txtPath := writeOutputFile(t, config, "notes.txt")
	w = httptest.NewRecorder()
	h.ViewImage(w, httptest.NewRequest(http.MethodGet, "/api/view_image?path="+txtPath, nil))
	if w.Code != http.StatusForbidden {
		t.Errorf("txt status = %d, want 403", w.Code)
	}

	// Missing path.
	w = httptest.NewRecorder()
	h.ViewImage(w, httptest.NewRequest(http.MethodGet, "/api/view_image?path=", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("empty path status = %d, want 404", w.Code)
	}

	// A file that does not exist is 404 even with a disallowed extension.
	missingTxt := filepath.Join(config.OutputDir, "gone.txt")
	w = httptest.NewRecorder()
	h.ViewImage(w, httptest.NewRequest(http.MethodGet, "/api/view_image?path="+missingTxt, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("missing txt status = %d, want 404", w.Code)
	}
}

func TestModelEndpointsWithoutCatalog(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.GetCheckpoints(w, httptest.NewRequest(http.MethodGet, "/api/checkpoints", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"checkpoints":[]`) {
		t.Errorf("checkpoints = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.GetAuxModels(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
	var aux map[string][]string
	decodeBody(t, w, &aux)
	for _, key := range []string{"upscale", "bbox", "segm"} {
		if aux[key] == nil {
			t.Errorf("aux[%s] missing", key)
		}
	}

	w = httptest.NewRecorder()
	h.GetModelFile(w, httptest.NewRequest(http.MethodGet, "/api/file?folder=checkpoints", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("partial query status = %d, want 400", w.Code)
	}
}

func TestModelEndpointsWithCatalog(t *testing.T) {
	t.Parallel()

	config := &startup.Config{
		OutputDir:     t.TempDir(),
		DataDir:       t.TempDir(),
		ModelsDir:     t.TempDir(),
		ModelsEnabled: true,
	}
	config.LibraryPath = filepath.Join(config.DataDir, "prompt_library.json")
	config.StatePath = filepath.Join(config.DataDir, "app_state.json")
	config.LogDir = filepath.Join(config.DataDir, "log")

	ckptDir := filepath.Join(config.ModelsDir, "checkpoints")
	if err := os.MkdirAll(ckptDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ckptDir, "base.safetensors"), []byte("w"), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNGFile(t, filepath.Join(ckptDir, "base.preview.png"))

	h, err := New(config, workers.NewPool(1))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	w := httptest.NewRecorder()
	h.GetCheckpoints(w, httptest.NewRequest(http.MethodGet, "/api/checkpoints", nil))
	if !strings.Contains(w.Body.String(), "base.safetensors") {
		t.Fatalf("checkpoints = %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.GetModelFile(w, httptest.NewRequest(http.MethodGet,
		"/api/file?folder=checkpoints&name=base.safetensors&ext=.preview.png", nil))
	if w.Code != http.StatusOK {
		t.Errorf("preview status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
	var health HealthResponse
	decodeBody(t, w, &health)
	if health.Status != "healthy" || !health.OutputDirOK {
		t.Errorf("health = %+v", health)
	}

	w = httptest.NewRecorder()
	h.LivenessCheck(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if w.Code != http.StatusOK {
		t.Errorf("livez status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("readyz status = %d", w.Code)
	}
}

func TestHealthDegradedWhenOutputMissing(t *testing.T) {
	t.Parallel()

	h, config := newTestHandlers(t)
	if err := os.RemoveAll(config.OutputDir); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("health status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz status = %d, want 503", w.Code)
	}
}

func TestGetVersion(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandlers(t)
	w := httptest.NewRecorder()
	h.GetVersion(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var info startup.BuildInfo
	decodeBody(t, w, &info)
	if info.Version == "" || info.GoVersion == "" {
		t.Errorf("build info = %+v", info)
	}
}
