package resize

import (
	"fmt"
	"strings"
)

// Format is an output image format the pipeline can encode.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatWebP Format = "webp"
	FormatGIF  Format = "gif"
)

// ParseFormat normalizes a user-supplied format name. An empty value
// defaults to WebP; "jpg" is accepted as an alias for JPEG.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return FormatWebP, nil
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "webp":
		return FormatWebP, nil
	case "gif":
		return FormatGIF, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q", ErrValidation, name)
	}
}

func (f Format) String() string {
	return string(f)
}

// Ext returns the file extension for the format, including the dot.
// JPEG keeps the long ".jpeg" spelling so output names mirror the
// format value verbatim.
func (f Format) Ext() string {
	return "." + string(f)
}

// Lossy reports whether the format's encoder takes a quality setting.
func (f Format) Lossy() bool {
	return f == FormatJPEG || f == FormatWebP
}

// SupportsAlpha reports whether the format can carry a transparent
// channel. Formats that cannot get flattened over a white background.
func (f Format) SupportsAlpha() bool {
	return f == FormatPNG || f == FormatWebP
}
