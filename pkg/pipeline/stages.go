package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/manifest"
	"tiffmerge/pkg/merge"
	"tiffmerge/pkg/metrics"
	"tiffmerge/pkg/pixelcodec"
)

// Role is the destination class of a raw tile
type Role string

const (
	// RoleChannel tiles feed the channel merge
	RoleChannel Role = "channel"

	// RoleReference tiles are decoded for comparison only
	RoleReference Role = "reference"
)

// Classify picks the role of a raw file from its name
func (d *Driver) Classify(name string) Role {
	if d.params.ReferenceSuffix != "" && strings.HasSuffix(name, d.params.ReferenceSuffix) {
		return RoleReference
	}
	return RoleChannel
}

// DecodeStage converts every raw tile into a pixel-text file and records
// its dimensions in the manifest of the destination directory.
func (d *Driver) DecodeStage() (*DecodeReport, error) {
	names, err := sortedFiles(d.params.RawDir, func(string) bool { return true })
	if err != nil {
		return nil, fmt.Errorf("failed to read raw directory: %w", err)
	}
	if len(names) == 0 {
		d.logger.Warn().Str("dir", d.params.RawDir).Msg("no raw tiles found")
	}

	dirs := map[Role]string{
		RoleChannel:   d.params.ChannelTextDir,
		RoleReference: d.params.ReferenceTextDir,
	}
	// both roles may share one directory and therefore one manifest
	manifests := make(map[string]*manifest.Manifest, len(dirs))
	for _, dir := range dirs {
		if _, ok := manifests[dir]; ok {
			continue
		}
		m, err := loadManifest(dir)
		if err != nil {
			return nil, err
		}
		manifests[dir] = m
	}

	report := &DecodeReport{}
	for _, name := range names {
		src := filepath.Join(d.params.RawDir, name)
		role := d.Classify(name)
		dst := filepath.Join(dirs[role], d.TextName(name))
		logger := d.logger.With().Str("file", name).Str("role", string(role)).Logger()

		raster, err := pixelcodec.DecodeFile(src)
		if err == nil {
			err = pixelcodec.WriteTextFile(dst, raster.Pixels)
		}
		if err != nil {
			kind := errorKind(err)
			logger.Error().Err(err).Str("kind", kind).Msg("failed to decode tile")
			d.metrics.FileFailed(metrics.StageDecode, kind)
			report.Failed = append(report.Failed, FileFailure{Path: src, Kind: kind, Err: err})
			continue
		}

		manifests[dirs[role]].Set(dst, raster.Dims())
		d.metrics.FileOK(metrics.StageDecode)
		logger.Debug().Str("dims", raster.Dims().String()).Str("out", dst).Msg("decoded tile")
		report.Written = append(report.Written, Artifact{
			Source: src,
			Path:   dst,
			Role:   role,
			Dims:   raster.Dims(),
		})
	}

	for dir, m := range manifests {
		if err := m.Save(dir); err != nil {
			return report, err
		}
	}
	return report, nil
}

// IndexStage groups the channel pixel-text files by tile-set
func (d *Driver) IndexStage() (models.ChannelMap, *IndexReport, error) {
	cm, idx, err := indexChannels(d.params.ChannelTextDir)
	if err != nil {
		return nil, nil, err
	}

	d.metrics.FilesTotal.WithLabelValues(metrics.StageIndex, "ok").Add(float64(idx.Matched))
	d.metrics.FilesTotal.WithLabelValues(metrics.StageIndex, "skipped").Add(float64(idx.Ignored))
	d.metrics.DuplicatesTotal.Add(float64(len(idx.Duplicates)))
	d.logger.Info().
		Int("tile_sets", len(cm)).
		Int("matched", idx.Matched).
		Int("ignored", idx.Ignored).
		Int("duplicates", len(idx.Duplicates)).
		Msg("indexed channel artifacts")
	return cm, &IndexReport{IndexReport: idx, TileSets: len(cm)}, nil
}

// MergeStage sums the configured channel pair of every tile-set in cm
func (d *Driver) MergeStage(cm models.ChannelMap) (*merge.Report, error) {
	report, err := merge.NewMerger(d.params.MergedTextDir).Merge(cm, d.params.ChannelA, d.params.ChannelB)
	if err != nil {
		return report, err
	}

	for _, m := range report.Merged {
		d.metrics.FileOK(metrics.StageMerge)
		d.metrics.TileSetsTotal.WithLabelValues("merged").Inc()
		d.metrics.PixelsMerged.Add(float64(len(m.Result.Pixels)))
	}
	for _, s := range report.Skipped {
		d.metrics.TileSetsTotal.WithLabelValues("skipped").Inc()
		if s.Err != nil {
			d.metrics.FileFailed(metrics.StageMerge, errorKind(s.Err))
		} else {
			d.metrics.FileSkipped(metrics.StageMerge)
		}
	}
	return report, nil
}

// EncodeStage turns every merged pixel-text file into a TIFF using the
// dimensions recorded for that file.
func (d *Driver) EncodeStage() (*EncodeReport, error) {
	names, err := sortedFiles(d.params.MergedTextDir, func(name string) bool {
		return strings.HasPrefix(name, "merged_") && filepath.Ext(name) == pixelcodec.TextExt
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read merged directory: %w", err)
	}

	dims, err := manifest.Load(d.params.MergedTextDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(d.params.MergedImageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	report := &EncodeReport{}
	for _, name := range names {
		src := filepath.Join(d.params.MergedTextDir, name)
		dst := filepath.Join(d.params.MergedImageDir, ImageName(name))
		logger := d.logger.With().Str("file", name).Logger()

		size, ok := dims.Get(name)
		if !ok {
			if !d.params.Fallback.Valid() {
				logger.Warn().Msg("no recorded dimensions, skipping")
				d.metrics.FileSkipped(metrics.StageEncode)
				report.Skipped = append(report.Skipped, src)
				continue
			}
			size = d.params.Fallback
			logger.Warn().Str("dims", size.String()).Msg("no recorded dimensions, using fallback")
		}

		pixels, err := pixelcodec.ReadTextFile(src)
		if err == nil {
			err = pixelcodec.EncodeFile(dst, pixels, size.Width, size.Height, d.params.Overflow)
		}
		if err != nil {
			kind := errorKind(err)
			logger.Error().Err(err).Str("kind", kind).Msg("failed to encode merged tile")
			d.metrics.FileFailed(metrics.StageEncode, kind)
			report.Failed = append(report.Failed, FileFailure{Path: src, Kind: kind, Err: err})
			continue
		}

		d.metrics.FileOK(metrics.StageEncode)
		logger.Debug().Str("out", dst).Str("dims", size.String()).Msg("encoded merged tile")
		report.Written = append(report.Written, dst)
	}
	return report, nil
}
