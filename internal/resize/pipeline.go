package resize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"time"

	"asset-manager/internal/logging"
	"asset-manager/internal/metrics"
	"asset-manager/internal/sandbox"
	"asset-manager/internal/workers"

	"github.com/disintegration/imaging"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when the uploaded bytes do not decode as an image.
var ErrDecode = errors.New("undecodable image upload")

// OutputSubfolder is the sandbox subfolder all resized files land in.
const OutputSubfolder = "AssetManager_Resized"

// Result describes where a processed upload was written.
type Result struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	URL       string `json:"url"`
}

// Pipeline decodes, resizes, converts, and writes uploaded images.
// Concurrency is bounded by a shared worker pool so a burst of uploads
// cannot exhaust memory.
type Pipeline struct {
	resolver *sandbox.Resolver
	pool     *workers.Pool
}

// NewPipeline returns a pipeline writing into the resolver's sandbox.
func NewPipeline(resolver *sandbox.Resolver, pool *workers.Pool) *Pipeline {
	return &Pipeline{resolver: resolver, pool: pool}
}

// Process runs one resize request on the uploaded bytes. The original
// filename contributes its stem to the output name; the output always
// lands in OutputSubfolder with a millisecond timestamp suffix so
// repeated runs never overwrite each other.
func (p *Pipeline) Process(ctx context.Context, data []byte, originalName string, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, err
	}

	queueStart := time.Now()
	if err := p.pool.Acquire(ctx); err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, fmt.Errorf("waiting for resize worker: %w", err)
	}
	defer p.pool.Release()
	metrics.ResizeQueueWait.Observe(time.Since(queueStart).Seconds())

	phaseStart := time.Now()
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	metrics.ResizePhaseDuration.WithLabelValues("decode").Observe(time.Since(phaseStart).Seconds())

	bounds := img.Bounds()
	srcWidth, srcHeight := bounds.Dx(), bounds.Dy()

	targetWidth, targetHeight := req.targetDimensions(srcWidth, srcHeight)
	if targetWidth > 0 && targetHeight > 0 && (targetWidth != srcWidth || targetHeight != srcHeight) {
		phaseStart = time.Now()
		img = imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)
		metrics.ResizePhaseDuration.WithLabelValues("resize").Observe(time.Since(phaseStart).Seconds())
		logging.Debug("resized %s from %dx%d to %dx%d", originalName, srcWidth, srcHeight, targetWidth, targetHeight)
	}

	img = prepareForFormat(img, req.Format)

	phaseStart = time.Now()
	encoded, err := encode(img, req)
	if err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, err
	}
	metrics.ResizePhaseDuration.WithLabelValues("encode").Observe(time.Since(phaseStart).Seconds())

	outputName := outputFilename(originalName, req.Format)

	phaseStart = time.Now()
	outDir := filepath.Join(p.resolver.Root(), OutputSubfolder)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath, err := p.resolver.Resolve(outputName, OutputSubfolder)
	if err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, err
	}
	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		metrics.ResizesTotal.WithLabelValues(string(req.Format), "error").Inc()
		return nil, fmt.Errorf("failed to write resized image: %w", err)
	}
	metrics.ResizePhaseDuration.WithLabelValues("write").Observe(time.Since(phaseStart).Seconds())

	metrics.ResizesTotal.WithLabelValues(string(req.Format), "success").Inc()
	return &Result{
		Filename:  outputName,
		Subfolder: OutputSubfolder,
		URL:       p.resolver.ViewURL(outputName, OutputSubfolder),
	}, nil
}

// prepareForFormat adjusts the pixel layout for the target encoder.
// Formats without an alpha channel get the image flattened over white;
// the rest get a plain NRGBA copy so palette sources round-trip cleanly.
func prepareForFormat(img image.Image, format Format) image.Image {
	if !format.SupportsAlpha() && hasAlpha(img) {
		bounds := img.Bounds()
		background := imaging.New(bounds.Dx(), bounds.Dy(), color.White)
		return imaging.Overlay(background, img, image.Pt(0, 0), 1.0)
	}
	return imaging.Clone(img)
}

// hasAlpha reports whether the image carries any transparent pixels.
func hasAlpha(img image.Image) bool {
	if opaquer, ok := img.(interface{ Opaque() bool }); ok {
		return !opaquer.Opaque()
	}
	return true
}

func encode(img image.Image, req Request) ([]byte, error) {
	var buf bytes.Buffer
	switch req.Format {
	case FormatPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("png encode failed: %w", err)
		}
	case FormatJPEG:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(req.Quality)); err != nil {
			return nil, fmt.Errorf("jpeg encode failed: %w", err)
		}
	case FormatGIF:
		if err := imaging.Encode(&buf, img, imaging.GIF); err != nil {
			return nil, fmt.Errorf("gif encode failed: %w", err)
		}
	case FormatWebP:
		return encodeWebP(img, req.Quality)
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrValidation, req.Format)
	}
	return buf.Bytes(), nil
}

// outputFilename builds "{stem}_res_{millis}{ext}" from the upload name.
func outputFilename(originalName string, format Format) string {
	base := filepath.Base(originalName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "image"
	}
	return fmt.Sprintf("%s_res_%d%s", stem, time.Now().UnixMilli(), format.Ext())
}
