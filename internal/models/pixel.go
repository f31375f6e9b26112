package models

import (
	"fmt"
	"sort"
)

// Pixel is a single RGB triple.
// Decoded pixels stay within 0-255; merged pixels are widened sums and
// may exceed 255 until an overflow policy is applied at encode time.
type Pixel struct {
	R, G, B int
}

// String renders the pixel in the pixel-text line format.
func (p Pixel) String() string {
	return fmt.Sprintf("%d,%d,%d", p.R, p.G, p.B)
}

// Dimensions holds the raster size a pixel sequence belongs to
type Dimensions struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Valid reports whether both sides are positive
func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

// Area is the number of pixels a raster of these dimensions holds
func (d Dimensions) Area() int {
	return d.Width * d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Raster represents a decoded RGB image
type Raster struct {
	// Width is the image width in pixels
	Width int

	// Height is the image height in pixels
	Height int

	// Pixels is the row-major pixel data; len(Pixels) == Width*Height
	Pixels []Pixel
}

// Dims returns the raster dimensions
func (r *Raster) Dims() Dimensions {
	return Dimensions{Width: r.Width, Height: r.Height}
}

// At returns the pixel at (x, y)
func (r *Raster) At(x, y int) Pixel {
	return r.Pixels[y*r.Width+x]
}

// TileSetID identifies one physical tile captured across channels
type TileSetID string

// ChannelID identifies one acquisition channel, e.g. "CH1"
type ChannelID string

// ChannelEntry is one per-channel pixel-text artifact of a tile-set
type ChannelEntry struct {
	// Path is the location of the pixel-text file
	Path string

	// Dims are the source raster dimensions when known
	Dims Dimensions

	// HasDims is false when no dimension record exists for Path
	HasDims bool
}

// ChannelMap groups pixel-text artifacts by tile-set and channel
type ChannelMap map[TileSetID]map[ChannelID]ChannelEntry

// Put inserts or replaces an entry and returns the replaced one, if any
func (m ChannelMap) Put(set TileSetID, ch ChannelID, e ChannelEntry) (ChannelEntry, bool) {
	channels, ok := m[set]
	if !ok {
		channels = make(map[ChannelID]ChannelEntry)
		m[set] = channels
	}
	prev, replaced := channels[ch]
	channels[ch] = e
	return prev, replaced
}

// Lookup returns the entry for a tile-set and channel
func (m ChannelMap) Lookup(set TileSetID, ch ChannelID) (ChannelEntry, bool) {
	e, ok := m[set][ch]
	return e, ok
}

// SortedTileSets returns the tile-set ids in ascending order
func (m ChannelMap) SortedTileSets() []TileSetID {
	ids := make([]TileSetID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MergeResult is the merged pixel sequence of one tile-set
type MergeResult struct {
	TileSet  TileSetID
	ChannelA ChannelID
	ChannelB ChannelID
	Pixels   []Pixel

	// Dims are carried over from the paired inputs when both were known
	Dims    Dimensions
	HasDims bool
}
