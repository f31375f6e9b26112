package pixelcodec

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiffmerge/internal/models"
)

// createTestImage fills an RGBA image with a deterministic gradient
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x * 40),
				G: uint8(y * 30),
				B: uint8((x + y) * 7),
				A: 255,
			})
		}
	}
	return img
}

func TestDecodeTIFFRowMajor(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTIFF(&buf, createTestImage(3, 2)))

	raster, err := Decode(&buf)
	require.NoError(t, err)

	assert.Equal(t, 3, raster.Width)
	assert.Equal(t, 2, raster.Height)
	require.Len(t, raster.Pixels, 6)

	// (x=1, y=0) precedes (x=0, y=1)
	assert.Equal(t, models.Pixel{R: 40, G: 0, B: 7}, raster.Pixels[1])
	assert.Equal(t, models.Pixel{R: 0, G: 30, B: 7}, raster.Pixels[3])
	assert.Equal(t, models.Pixel{R: 80, G: 30, B: 21}, raster.At(2, 1))
}

func TestDecodeNormalizesGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(0, 0, color.Gray{Y: 17})
	img.SetGray(1, 0, color.Gray{Y: 200})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	raster, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, []models.Pixel{{R: 17, G: 17, B: 17}, {R: 200, G: 200, B: 200}}, raster.Pixels)
}

func TestDecodeDropsAlphaWithoutPremultiplying(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 150, B: 200, A: 128})

	raster := FromImage(img)
	assert.Equal(t, models.Pixel{R: 100, G: 150, B: 200}, raster.Pixels[0])
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := DecodeFile(filepath.Join(dir, "missing.tif"))
	var de *DecodeError
	require.ErrorAs(t, err, &de)

	garbage := filepath.Join(dir, "garbage.tif")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0644))
	_, err = DecodeFile(garbage)
	require.ErrorAs(t, err, &de)
	assert.Equal(t, garbage, de.Path)
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []image.Point{{1, 1}, {2, 1}, {1, 3}, {5, 4}} {
		src := createTestImage(size.X, size.Y)
		original := FromImage(src)

		path := filepath.Join(t.TempDir(), "round.tif")
		require.NoError(t, EncodeFile(path, original.Pixels, original.Width, original.Height, OverflowClamp))

		decoded, err := DecodeFile(path)
		require.NoError(t, err)
		assert.Equal(t, original, decoded, "size %v", size)
	}
}

func TestRoundTripThroughText(t *testing.T) {
	original := FromImage(createTestImage(4, 3))

	var buf bytes.Buffer
	require.NoError(t, SerializeText(&buf, original.Pixels))
	assert.Equal(t, 12, strings.Count(buf.String(), "\n"))

	pixels, err := DeserializeText(&buf)
	require.NoError(t, err)

	img, err := Encode(pixels, original.Width, original.Height, OverflowClamp)
	require.NoError(t, err)
	assert.Equal(t, original, FromImage(img))
}

func TestEncodeTwoByOne(t *testing.T) {
	img, err := Encode([]models.Pixel{{R: 1, G: 1, B: 0}, {R: 5, G: 5, B: 5}}, 2, 1, OverflowClamp)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 1, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 1, G: 1, B: 0, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 5, G: 5, B: 5, A: 255}, img.NRGBAAt(1, 0))
}

func TestEncodeShapeMismatch(t *testing.T) {
	pixels := []models.Pixel{{R: 1, G: 2, B: 3}, {R: 4, G: 5, B: 6}, {R: 7, G: 8, B: 9}}

	for _, dims := range [][2]int{{2, 2}, {0, 3}, {3, -1}} {
		_, err := Encode(pixels, dims[0], dims[1], OverflowClamp)
		var se *ShapeMismatchError
		require.ErrorAs(t, err, &se, "dims %v", dims)
		assert.Equal(t, 3, se.Pixels)
	}
}

func TestEncodeOverflowPolicies(t *testing.T) {
	pixels := []models.Pixel{{R: 300, G: 255, B: -4}}

	img, err := Encode(pixels, 1, 1, OverflowClamp)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 0, A: 255}, img.NRGBAAt(0, 0))

	img, err = Encode(pixels, 1, 1, OverflowWrap)
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 44, G: 255, B: 252, A: 255}, img.NRGBAAt(0, 0))

	_, err = Encode(pixels, 1, 1, OverflowError)
	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
}

func TestEncodeFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.tif")
	err := EncodeFile(path, []models.Pixel{{R: 1, G: 2, B: 3}}, 1, 1, OverflowClamp)

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, path, ee.Path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteTIFFFailure(t *testing.T) {
	err := WriteTIFF(failingWriter{}, createTestImage(2, 2))

	var ee *EncodeError
	require.ErrorAs(t, err, &ee)
	assert.Empty(t, ee.Path)
	assert.EqualError(t, ee.Err, "disk full")
}

func TestEncodeFileMatchesWriteTIFF(t *testing.T) {
	pixels := []models.Pixel{{R: 1, G: 2, B: 3}, {R: 300, G: 4, B: 5}, {R: 6, G: 7, B: 8}, {R: 9, G: 10, B: 11}}
	path := filepath.Join(t.TempDir(), "out.tif")
	require.NoError(t, EncodeFile(path, pixels, 2, 2, OverflowClamp))

	img, err := Encode(pixels, 2, 2, OverflowClamp)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteTIFF(&buf, img))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), written)
}

func TestParseOverflowPolicy(t *testing.T) {
	p, err := ParseOverflowPolicy("")
	require.NoError(t, err)
	assert.Equal(t, OverflowClamp, p)

	p, err = ParseOverflowPolicy(" WRAP ")
	require.NoError(t, err)
	assert.Equal(t, OverflowWrap, p)

	_, err = ParseOverflowPolicy("saturate")
	assert.Error(t, err)
}
