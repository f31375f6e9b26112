package pixelcodec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"tiffmerge/internal/models"
)

// TextExt is the extension of pixel-text artifacts
const TextExt = ".txt"

// SerializeText writes one "R,G,B" line per pixel, preserving order
func SerializeText(w io.Writer, pixels []models.Pixel) error {
	bw := bufio.NewWriter(w)
	for _, p := range pixels {
		if _, err := fmt.Fprintf(bw, "%d,%d,%d\n", p.R, p.G, p.B); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTextFile serializes pixels to a new file at path
func WriteTextFile(path string, pixels []models.Pixel) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return SerializeText(file, pixels)
}

// DeserializeText parses a full pixel-text stream
func DeserializeText(r io.Reader) ([]models.Pixel, error) {
	tr := NewTextReader(r)
	var pixels []models.Pixel
	for {
		p, ok, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return pixels, nil
		}
		pixels = append(pixels, p)
	}
}

// ReadTextFile parses the pixel-text file at path
func ReadTextFile(path string) ([]models.Pixel, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	pixels, err := DeserializeText(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pixels, nil
}

// TextReader yields pixels one line at a time so two artifacts can be
// walked in lock-step without loading either fully.
type TextReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewTextReader wraps r
func NewTextReader(r io.Reader) *TextReader {
	return &TextReader{scanner: bufio.NewScanner(r)}
}

// Line is one non-blank, not yet parsed pixel-text line
type Line struct {
	// Number is 1-based and counts blank lines
	Number int
	Text   string
}

// Pixel parses the line
func (l Line) Pixel() (models.Pixel, error) {
	p, err := ParseLine(l.Text)
	if err != nil {
		return models.Pixel{}, &ParseError{Line: l.Number, Text: l.Text, Err: err}
	}
	return p, nil
}

// NextLine returns the next non-blank line without parsing it.
// ok is false at end of stream.
func (t *TextReader) NextLine() (l Line, ok bool, err error) {
	for t.scanner.Scan() {
		t.line++
		raw := t.scanner.Text()
		if strings.TrimSpace(raw) == "" {
			continue
		}
		return Line{Number: t.line, Text: raw}, true, nil
	}
	if err := t.scanner.Err(); err != nil {
		return Line{}, false, err
	}
	return Line{}, false, nil
}

// Next returns the next pixel. ok is false at end of stream.
// Blank lines are skipped.
func (t *TextReader) Next() (p models.Pixel, ok bool, err error) {
	l, ok, err := t.NextLine()
	if err != nil || !ok {
		return models.Pixel{}, false, err
	}
	p, err = l.Pixel()
	if err != nil {
		return models.Pixel{}, false, err
	}
	return p, true, nil
}

var errArity = errors.New("expected 3 comma-separated values")

// lineCutset holds the characters tolerated around values, e.g. "(1, 2, 3)"
const lineCutset = "() \t\r"

// ParseLine parses a single "R,G,B" line
func ParseLine(line string) (models.Pixel, error) {
	fields := strings.Split(strings.Trim(line, lineCutset), ",")
	if len(fields) != 3 {
		return models.Pixel{}, errArity
	}

	var vals [3]int
	for i, f := range fields {
		v, err := strconv.Atoi(strings.Trim(f, lineCutset))
		if err != nil {
			return models.Pixel{}, fmt.Errorf("value %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return models.Pixel{R: vals[0], G: vals[1], B: vals[2]}, nil
}
