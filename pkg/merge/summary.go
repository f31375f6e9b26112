package merge

import (
	"gonum.org/v1/gonum/stat"

	"tiffmerge/internal/models"
)

// Summary describes the value distribution of a merged sequence
type Summary struct {
	Count int

	// Mean and StdDev are per color channel (R, G, B)
	Mean   [3]float64
	StdDev [3]float64

	// Max is the largest value seen per channel
	Max [3]int

	// Overflowed counts channel components above 255
	Overflowed int
}

// Summarize computes channel statistics over pixels
func Summarize(pixels []models.Pixel) Summary {
	s := Summary{Count: len(pixels)}
	if len(pixels) == 0 {
		return s
	}

	var planes [3][]float64
	for c := range planes {
		planes[c] = make([]float64, len(pixels))
	}

	for i, p := range pixels {
		for c, v := range [3]int{p.R, p.G, p.B} {
			planes[c][i] = float64(v)
			if v > s.Max[c] {
				s.Max[c] = v
			}
			if v > 255 {
				s.Overflowed++
			}
		}
	}

	for c := range planes {
		s.Mean[c], s.StdDev[c] = stat.MeanStdDev(planes[c], nil)
	}
	return s
}
