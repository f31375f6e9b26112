package pipeline

import (
	"time"

	"tiffmerge/internal/models"
	"tiffmerge/pkg/channels"
	"tiffmerge/pkg/merge"
)

// Artifact is a pixel-text file produced from a raw tile
type Artifact struct {
	Source string
	Path   string
	Role   Role
	Dims   models.Dimensions
}

// FileFailure is a file that was skipped because of an error
type FileFailure struct {
	Path string
	Kind string
	Err  error
}

// DecodeReport is the outcome of the decode stage
type DecodeReport struct {
	Written []Artifact
	Failed  []FileFailure
}

// IndexReport is the outcome of the index stage
type IndexReport struct {
	channels.IndexReport
	TileSets int
}

// EncodeReport is the outcome of the encode stage
type EncodeReport struct {
	Written []string
	Skipped []string
	Failed  []FileFailure
}

// Report collects the stage reports of one run
type Report struct {
	RunID   string
	Decode  DecodeReport
	Index   IndexReport
	Merge   merge.Report
	Encode  EncodeReport
	Elapsed time.Duration
}

// Failures counts per-file errors across all stages
func (r *Report) Failures() int {
	n := len(r.Decode.Failed) + len(r.Encode.Failed)
	for _, s := range r.Merge.Skipped {
		if s.Err != nil {
			n++
		}
	}
	return n
}
