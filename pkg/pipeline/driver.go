// Package pipeline runs the decode, index, merge and encode stages over a
// batch directory layout.
package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/channels"
	"tiffmerge/pkg/manifest"
	"tiffmerge/pkg/merge"
	"tiffmerge/pkg/metrics"
	"tiffmerge/pkg/pixelcodec"
)

// Params holds the parameters of one batch run.
type Params struct {
	// RawDir is the directory containing the source raster tiles.
	RawDir string

	// ChannelTextDir receives pixel-text files of per-channel tiles.
	// It is also the directory the index stage scans.
	ChannelTextDir string

	// ReferenceTextDir receives pixel-text files of raw tiles whose name
	// ends with ReferenceSuffix.
	ReferenceTextDir string

	// ReferenceSuffix routes raw files to ReferenceTextDir.
	ReferenceSuffix string

	// TextSuffix is appended to the raw base name, "_pixels" giving
	// "tile_CH1_pixels.txt".
	TextSuffix string

	// MergedTextDir receives merged_*.txt files.
	MergedTextDir string

	// MergedImageDir receives the re-encoded merged TIFFs.
	MergedImageDir string

	// ChannelA and ChannelB are the channels summed for every tile-set.
	ChannelA models.ChannelID
	ChannelB models.ChannelID

	// Overflow decides how merged values above 255 are written.
	Overflow pixelcodec.OverflowPolicy

	// Fallback is used for merged files without recorded dimensions.
	// The zero value disables it.
	Fallback models.Dimensions
}

// Driver sequences the pipeline stages. Each stage reads the committed
// output of the previous one from disk.
type Driver struct {
	params  *Params
	metrics *metrics.BatchMetrics
	logger  zerolog.Logger
	runID   string
}

// NewDriver creates a driver for params. A nil m gets a private metrics set.
func NewDriver(params *Params, m *metrics.BatchMetrics) *Driver {
	if m == nil {
		m = metrics.New()
	}
	runID := uuid.NewString()
	return &Driver{
		params:  params,
		metrics: m,
		logger:  log.With().Str("run_id", runID).Logger(),
		runID:   runID,
	}
}

// RunID identifies this driver's log lines
func (d *Driver) RunID() string {
	return d.runID
}

// Metrics returns the collectors updated by the stages
func (d *Driver) Metrics() *metrics.BatchMetrics {
	return d.metrics
}

// Run executes decode, index, merge and encode in order.
// Per-file failures are logged and counted; only stage-level failures
// such as an unreadable directory stop the run.
func (d *Driver) Run() (*Report, error) {
	report := &Report{RunID: d.runID}
	start := time.Now()

	d.logger.Info().Msg("Biostats: TIFF RGB tile image processor")

	d.logger.Info().Str("dir", d.params.RawDir).Msg("Step 1: decoding raw tiles")
	decoded, err := d.DecodeStage()
	if err != nil {
		return report, fmt.Errorf("decode stage: %w", err)
	}
	report.Decode = *decoded

	d.logger.Info().Str("dir", d.params.ChannelTextDir).Msg("Step 2: indexing channel artifacts")
	cm, indexed, err := d.IndexStage()
	if err != nil {
		return report, fmt.Errorf("index stage: %w", err)
	}
	report.Index = *indexed

	d.logger.Info().
		Str("channel_a", string(d.params.ChannelA)).
		Str("channel_b", string(d.params.ChannelB)).
		Msg("Step 3: merging channel pairs")
	merged, err := d.MergeStage(cm)
	if err != nil {
		return report, fmt.Errorf("merge stage: %w", err)
	}
	report.Merge = *merged

	d.logger.Info().Str("dir", d.params.MergedImageDir).Msg("Step 4: encoding merged tiles")
	encoded, err := d.EncodeStage()
	if err != nil {
		return report, fmt.Errorf("encode stage: %w", err)
	}
	report.Encode = *encoded

	d.metrics.Finish()
	report.Elapsed = time.Since(start)
	d.logger.Info().
		Int("decoded", len(report.Decode.Written)).
		Int("merged", len(report.Merge.Merged)).
		Int("encoded", len(report.Encode.Written)).
		Int("failures", report.Failures()).
		Dur("elapsed", report.Elapsed).
		Msg("run complete")
	return report, nil
}

// TextName maps a raw image name to its pixel-text name
func (d *Driver) TextName(raw string) string {
	base := strings.TrimSuffix(filepath.Base(raw), filepath.Ext(raw))
	return base + d.params.TextSuffix + pixelcodec.TextExt
}

// ImageName maps a merged pixel-text name to its raster name
func ImageName(text string) string {
	return strings.TrimSuffix(filepath.Base(text), filepath.Ext(text)) + ".tif"
}

// sortedFiles lists regular files of dir by name
func sortedFiles(dir string, keep func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !keep(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// errorKind labels failures in logs and metrics
func errorKind(err error) string {
	var (
		de *pixelcodec.DecodeError
		ee *pixelcodec.EncodeError
		se *pixelcodec.ShapeMismatchError
		pe *pixelcodec.ParseError
		me *merge.DimensionMismatchError
	)
	switch {
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &ee):
		return "encode"
	case errors.As(err, &se):
		return "shape_mismatch"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &me):
		return "dimension_mismatch"
	default:
		return "io"
	}
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return manifest.Load(dir)
}

// indexChannels wraps the channel indexer with manifest loading
func indexChannels(dir string) (models.ChannelMap, channels.IndexReport, error) {
	dims, err := manifest.Load(dir)
	if err != nil {
		return nil, channels.IndexReport{}, err
	}
	return channels.Index(dir, dims)
}
