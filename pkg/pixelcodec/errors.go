package pixelcodec

import "fmt"

// DecodeError reports a source that is not a readable raster image
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("decode image: %v", e.Err)
	}
	return fmt.Sprintf("decode image %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a raster that could not be produced or written
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encode image: %v", e.Err)
	}
	return fmt.Sprintf("encode image %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// ShapeMismatchError reports a pixel count that does not fill width*height
type ShapeMismatchError struct {
	Pixels int
	Width  int
	Height int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("pixel count %d does not match %dx%d (%d)",
		e.Pixels, e.Width, e.Height, e.Width*e.Height)
}

// ParseError reports a malformed pixel-text line
type ParseError struct {
	// Line is 1-based
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
