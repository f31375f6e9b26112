// Package pixelcodec converts raster images to and from flat RGB pixel
// sequences and their line-oriented text form.
package pixelcodec

import (
	"bufio"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"golang.org/x/image/tiff"

	"tiffmerge/internal/models"
)

// OverflowPolicy decides how channel values outside 0-255 are written
type OverflowPolicy string

const (
	// OverflowClamp saturates values to 0..255
	OverflowClamp OverflowPolicy = "clamp"

	// OverflowWrap keeps the low 8 bits
	OverflowWrap OverflowPolicy = "wrap"

	// OverflowError refuses to encode out-of-range values
	OverflowError OverflowPolicy = "error"
)

// ParseOverflowPolicy maps a config string to a policy; empty means clamp
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch OverflowPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverflowClamp:
		return OverflowClamp, nil
	case OverflowWrap:
		return OverflowWrap, nil
	case OverflowError:
		return OverflowError, nil
	default:
		return "", fmt.Errorf("unknown overflow policy %q (must be clamp, wrap, or error)", s)
	}
}

// Decode reads any registered raster format (TIFF, PNG, JPEG) and
// normalizes it to 8-bit RGB in row-major order.
func Decode(r io.Reader) (*models.Raster, error) {
	img, _, err := image.Decode(bufio.NewReader(r))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}
	return FromImage(img), nil
}

// DecodeFile opens and decodes the image at path
func DecodeFile(path string) (*models.Raster, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer file.Close()

	img, _, err := image.Decode(bufio.NewReader(file))
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return FromImage(img), nil
}

// FromImage flattens img into a raster. Alpha is dropped without
// premultiplication, and grayscale or paletted sources are expanded.
func FromImage(img image.Image) *models.Raster {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	pixels := make([]models.Pixel, 0, width*height)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, models.Pixel{R: int(c.R), G: int(c.G), B: int(c.B)})
		}
	}

	return &models.Raster{Width: width, Height: height, Pixels: pixels}
}

// Encode reshapes a flat pixel sequence into a width x height image
func Encode(pixels []models.Pixel, width, height int, policy OverflowPolicy) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 || len(pixels) != width*height {
		return nil, &ShapeMismatchError{Pixels: len(pixels), Width: width, Height: height}
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, p := range pixels {
		r, err := channelByte(p.R, policy)
		if err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("pixel %d: %w", i, err)}
		}
		g, err := channelByte(p.G, policy)
		if err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("pixel %d: %w", i, err)}
		}
		b, err := channelByte(p.B, policy)
		if err != nil {
			return nil, &EncodeError{Err: fmt.Errorf("pixel %d: %w", i, err)}
		}
		img.SetNRGBA(i%width, i/width, color.NRGBA{R: r, G: g, B: b, A: 255})
	}

	return img, nil
}

func channelByte(v int, policy OverflowPolicy) (uint8, error) {
	if v >= 0 && v <= 255 {
		return uint8(v), nil
	}
	switch policy {
	case OverflowWrap:
		return uint8(v & 0xff), nil
	case OverflowError:
		return 0, fmt.Errorf("channel value %d out of range 0..255", v)
	default:
		if v < 0 {
			return 0, nil
		}
		return 255, nil
	}
}

// WriteTIFF writes img as an uncompressed TIFF
func WriteTIFF(w io.Writer, img image.Image) error {
	if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Uncompressed}); err != nil {
		return &EncodeError{Err: err}
	}
	return nil
}

// EncodeFile reshapes pixels and writes them as a TIFF at path
func EncodeFile(path string, pixels []models.Pixel, width, height int, policy OverflowPolicy) (err error) {
	img, err := Encode(pixels, width, height, policy)
	if err != nil {
		if ee, ok := err.(*EncodeError); ok {
			ee.Path = path
		}
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return &EncodeError{Path: path, Err: err}
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = &EncodeError{Path: path, Err: cerr}
		}
	}()

	if err := WriteTIFF(file, img); err != nil {
		if ee, ok := err.(*EncodeError); ok {
			ee.Path = path
		}
		return err
	}
	return nil
}
