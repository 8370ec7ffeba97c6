package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"

	// Decoders for the non-PNG gallery formats, used to verify that a
	// container is at least a readable image.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the image container cannot be opened at all.
var ErrDecode = errors.New("unreadable image container")

const (
	promptKey   = "prompt"
	workflowKey = "workflow"
)

var emptyObject = json.RawMessage(`{}`)

// Bundle is the embedded metadata of one image. Prompt and Workflow are
// the two JSON-bearing generation keys; Raw carries every other embedded
// key verbatim.
type Bundle struct {
	Prompt   json.RawMessage   `json:"prompt"`
	Workflow json.RawMessage   `json:"workflow"`
	Raw      map[string]string `json:"raw_info"`
}

// Extract reads the embedded textual metadata of the image at path.
// The prompt and workflow keys are parsed independently: a missing or
// unparsable value degrades to an empty JSON object and never blocks the
// other key. Non-PNG containers that decode as images yield an empty
// bundle. The caller distinguishes a missing file via os.IsNotExist.
func Extract(path string) (*Bundle, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	text, err := readTextChunks(file)
	if errors.Is(err, errNotPNG) {
		// Not a PNG; the container still has to be a readable image.
		if _, err := file.Seek(0, 0); err != nil {
			metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if _, _, err := image.DecodeConfig(file); err != nil {
			metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		text = nil
	} else if err != nil {
		metrics.MetadataExtractionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	bundle := &Bundle{
		Prompt:   jsonOrEmpty(text[promptKey], path, promptKey),
		Workflow: jsonOrEmpty(text[workflowKey], path, workflowKey),
		Raw:      make(map[string]string),
	}
	for key, value := range text {
		if key == promptKey || key == workflowKey {
			continue
		}
		bundle.Raw[key] = value
	}

	metrics.MetadataExtractionsTotal.WithLabelValues("success").Inc()
	return bundle, nil
}

// jsonOrEmpty returns the value as raw JSON, degrading to an empty object
// when the key is absent or does not parse.
func jsonOrEmpty(value, path, key string) json.RawMessage {
	if value == "" {
		return emptyObject
	}
	if !json.Valid([]byte(value)) {
		logging.Debug("embedded %s key in %s is not valid JSON, defaulting", key, path)
		return emptyObject
	}
	return json.RawMessage(value)
}
