// Package channels groups per-channel pixel-text artifacts by tile-set.
package channels

import (
	"regexp"

	"tiffmerge/internal/models"
)

// namePattern skips six underscore-delimited tokens, then captures the
// 5-digit tile-set id and the channel token, e.g.
// "Exp_A_B_C_D_E_00001_CH1_pixels.txt" -> ("00001", "CH1").
var namePattern = regexp.MustCompile(`^(?:[^_]+_){6}(\d{5})_(CH\d)(?:[_.].*)?$`)

// Match is the identity a filename carries
type Match struct {
	TileSet models.TileSetID
	Channel models.ChannelID
}

// ParseName extracts the tile-set and channel from a base filename.
// ok is false when the name does not follow the naming pattern.
func ParseName(name string) (m Match, ok bool) {
	groups := namePattern.FindStringSubmatch(name)
	if groups == nil {
		return Match{}, false
	}
	return Match{
		TileSet: models.TileSetID(groups[1]),
		Channel: models.ChannelID(groups[2]),
	}, true
}
