package resize

import (
	"errors"
	"fmt"
	"math"
)

// ErrValidation is returned when a request carries an unknown mode,
// an unsupported format, or numeric parameters that do not fit the
// selected mode.
var ErrValidation = errors.New("invalid resize request")

// Mode selects how target dimensions are derived from the source.
type Mode string

const (
	// ModeNone converts format only, keeping the source dimensions.
	ModeNone Mode = "none"
	// ModeScale multiplies both edges by a percentage.
	ModeScale Mode = "scale"
	// ModeLongest pins the longest edge and scales the other to match.
	ModeLongest Mode = "longest"
	// ModeExact forces explicit width and height, ignoring aspect ratio.
	ModeExact Mode = "exact"
)

// ParseMode normalizes a user-supplied mode name, defaulting to none.
func ParseMode(name string) (Mode, error) {
	switch name {
	case "", "none":
		return ModeNone, nil
	case "scale":
		return ModeScale, nil
	case "longest":
		return ModeLongest, nil
	case "exact":
		return ModeExact, nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, name)
	}
}

// Request describes one resize and transcode operation.
type Request struct {
	Mode         Mode
	ScalePercent float64
	LongestEdge  int
	TargetWidth  int
	TargetHeight int
	Format       Format
	Quality      int
}

// Validate checks the mode-specific numeric parameters and the quality
// range before any decoding work happens.
func (r *Request) Validate() error {
	switch r.Mode {
	case ModeNone:
	case ModeScale:
		if r.ScalePercent <= 0 {
			return fmt.Errorf("%w: scale mode requires a positive percentage", ErrValidation)
		}
	case ModeLongest:
		if r.LongestEdge <= 0 {
			return fmt.Errorf("%w: longest mode requires a positive edge length", ErrValidation)
		}
	case ModeExact:
		if r.TargetWidth <= 0 || r.TargetHeight <= 0 {
			return fmt.Errorf("%w: exact mode requires positive width and height", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrValidation, r.Mode)
	}
	if r.Quality < 1 || r.Quality > 100 {
		return fmt.Errorf("%w: quality must be between 1 and 100", ErrValidation)
	}
	return nil
}

// targetDimensions computes the output size for a source of the given
// dimensions. A zero return in either dimension, or a result equal to
// the source, means the resize step is skipped.
func (r *Request) targetDimensions(width, height int) (int, int) {
	switch r.Mode {
	case ModeScale:
		return int(float64(width) * r.ScalePercent / 100), int(float64(height) * r.ScalePercent / 100)
	case ModeLongest:
		if width >= height {
			return r.LongestEdge, int(math.Round(float64(height) * float64(r.LongestEdge) / float64(width)))
		}
		return int(math.Round(float64(width) * float64(r.LongestEdge) / float64(height))), r.LongestEdge
	case ModeExact:
		return r.TargetWidth, r.TargetHeight
	default:
		return width, height
	}
}
