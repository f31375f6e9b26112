// Package merge sums two channels of every tile-set pixel by pixel.
package merge

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/manifest"
	"tiffmerge/pkg/pixelcodec"
)

// DimensionMismatchError rejects a pair whose recorded sizes differ
type DimensionMismatchError struct {
	TileSet models.TileSetID
	A, B    models.Dimensions
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("tile-set %s: channel dimensions differ (%s vs %s)", e.TileSet, e.A, e.B)
}

// SkipReason explains why a tile-set produced no output
type SkipReason string

const (
	SkipMissingChannel    SkipReason = "missing channel"
	SkipDimensionMismatch SkipReason = "dimension mismatch"
	SkipReadFailed        SkipReason = "read failed"
	SkipWriteFailed       SkipReason = "write failed"
)

// Skipped is a tile-set left out of the merge
type Skipped struct {
	TileSet models.TileSetID
	Reason  SkipReason
	Err     error
}

// Merged is a tile-set written to disk
type Merged struct {
	Result  models.MergeResult
	Path    string
	Summary Summary
}

// Report lists the outcome of every tile-set, in tile-set order
type Report struct {
	Merged  []Merged
	Skipped []Skipped
}

// FileName is the merged artifact name for a tile-set and channel pair
func FileName(set models.TileSetID, a, b models.ChannelID) string {
	return fmt.Sprintf("merged_%s_%s_%s%s", set, a, b, pixelcodec.TextExt)
}

// Sum adds two triples channel by channel without clamping
func Sum(a, b models.Pixel) models.Pixel {
	return models.Pixel{R: a.R + b.R, G: a.G + b.G, B: a.B + b.B}
}

// MergeFiles walks two pixel-text files in lock-step and sums each line
// pair. Output stops at the end of the shorter file.
func MergeFiles(pathA, pathB string) ([]models.Pixel, error) {
	fa, err := os.Open(pathA)
	if err != nil {
		return nil, err
	}
	defer fa.Close()

	fb, err := os.Open(pathB)
	if err != nil {
		return nil, err
	}
	defer fb.Close()

	ra := pixelcodec.NewTextReader(fa)
	rb := pixelcodec.NewTextReader(fb)

	// both lines are read before either is parsed, so content past the
	// end of the shorter file is never inspected
	var out []models.Pixel
	for {
		la, okA, err := ra.NextLine()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pathA, err)
		}
		lb, okB, err := rb.NextLine()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pathB, err)
		}
		if !okA || !okB {
			return out, nil
		}

		pa, err := la.Pixel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pathA, err)
		}
		pb, err := lb.Pixel()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", pathB, err)
		}
		out = append(out, Sum(pa, pb))
	}
}

// Merger writes merged artifacts for every complete channel pair
type Merger struct {
	// OutputDir receives merged_*.txt files and their dimension manifest
	OutputDir string
}

// NewMerger creates a merger writing into outputDir
func NewMerger(outputDir string) *Merger {
	return &Merger{OutputDir: outputDir}
}

// Merge combines channelA and channelB of every tile-set in cm.
// Per-tile-set problems are reported as skips; only a failure to prepare
// the output directory or save its manifest is returned as an error.
func (m *Merger) Merge(cm models.ChannelMap, channelA, channelB models.ChannelID) (*Report, error) {
	if err := os.MkdirAll(m.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create merge output directory: %w", err)
	}

	dims, err := manifest.Load(m.OutputDir)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, set := range cm.SortedTileSets() {
		logger := log.With().Str("tile_set", string(set)).Logger()

		a, okA := cm.Lookup(set, channelA)
		b, okB := cm.Lookup(set, channelB)
		if !okA || !okB {
			missing := channelA
			if okA {
				missing = channelB
			}
			logger.Info().Str("missing", string(missing)).Msg("skipping tile-set without both channels")
			report.Skipped = append(report.Skipped, Skipped{TileSet: set, Reason: SkipMissingChannel})
			continue
		}

		result, err := mergePair(set, channelA, channelB, a, b)
		if err != nil {
			reason := SkipReadFailed
			if _, ok := err.(*DimensionMismatchError); ok {
				reason = SkipDimensionMismatch
			}
			logger.Error().Err(err).Msg("skipping tile-set")
			report.Skipped = append(report.Skipped, Skipped{TileSet: set, Reason: reason, Err: err})
			continue
		}

		name := FileName(set, channelA, channelB)
		path := filepath.Join(m.OutputDir, name)
		// the artifact is rewritten, so an entry from an earlier run no
		// longer describes it
		dims.Delete(name)
		if err := pixelcodec.WriteTextFile(path, result.Pixels); err != nil {
			logger.Error().Err(err).Str("file", path).Msg("failed to write merged artifact")
			report.Skipped = append(report.Skipped, Skipped{TileSet: set, Reason: SkipWriteFailed, Err: err})
			continue
		}
		if result.HasDims {
			dims.Set(name, result.Dims)
		}

		summary := Summarize(result.Pixels)
		logger.Debug().
			Int("pixels", summary.Count).
			Floats64("mean", summary.Mean[:]).
			Int("over_255", summary.Overflowed).
			Msg("merged tile-set")
		report.Merged = append(report.Merged, Merged{Result: *result, Path: path, Summary: summary})
	}

	if err := dims.Save(m.OutputDir); err != nil {
		return report, err
	}
	return report, nil
}

func mergePair(set models.TileSetID, chA, chB models.ChannelID, a, b models.ChannelEntry) (*models.MergeResult, error) {
	if a.HasDims && b.HasDims && a.Dims != b.Dims {
		return nil, &DimensionMismatchError{TileSet: set, A: a.Dims, B: b.Dims}
	}

	pixels, err := MergeFiles(a.Path, b.Path)
	if err != nil {
		return nil, err
	}

	result := &models.MergeResult{
		TileSet:  set,
		ChannelA: chA,
		ChannelB: chB,
		Pixels:   pixels,
	}
	// A truncated merge no longer fills the recorded raster
	if a.HasDims && a.Dims.Area() == len(pixels) {
		result.Dims, result.HasDims = a.Dims, true
	} else if b.HasDims && b.Dims.Area() == len(pixels) {
		result.Dims, result.HasDims = b.Dims, true
	}
	return result, nil
}
