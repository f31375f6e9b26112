package channels

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/manifest"
)

// Duplicate records an artifact replaced by a later file with the same
// tile-set and channel. Which file wins depends on directory order.
type Duplicate struct {
	Match    Match
	Replaced string
	Kept     string
}

// IndexReport describes one indexing pass
type IndexReport struct {
	// Matched is the number of entries that followed the naming pattern
	Matched int

	// Ignored is the number of entries that did not
	Ignored int

	Duplicates []Duplicate
}

// Index scans dir and builds a fresh channel map. Names that do not match
// the pattern are skipped. When dims is non-nil, the recorded dimensions
// of each artifact are attached to its entry.
func Index(dir string, dims *manifest.Manifest) (models.ChannelMap, IndexReport, error) {
	var report IndexReport

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, report, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	cm := make(models.ChannelMap)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		m, ok := ParseName(name)
		if !ok {
			report.Ignored++
			log.Trace().Str("file", name).Msg("name does not match channel pattern")
			continue
		}
		report.Matched++

		e := models.ChannelEntry{Path: filepath.Join(dir, name)}
		if dims != nil {
			e.Dims, e.HasDims = dims.Get(name)
		}

		if prev, replaced := cm.Put(m.TileSet, m.Channel, e); replaced {
			report.Duplicates = append(report.Duplicates, Duplicate{
				Match:    m,
				Replaced: prev.Path,
				Kept:     e.Path,
			})
			log.Warn().
				Str("tile_set", string(m.TileSet)).
				Str("channel", string(m.Channel)).
				Str("replaced", prev.Path).
				Str("kept", e.Path).
				Msg("duplicate channel artifact, last seen wins")
		}
	}

	return cm, report, nil
}
