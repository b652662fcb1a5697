package constants

// ConfidenceBand buckets a 0..100 confidence the same way the extraction prompt describes it.
type ConfidenceBand string

const (
	BandHigh    ConfidenceBand = "HIGH"
	BandMedium  ConfidenceBand = "MEDIUM"
	BandLow     ConfidenceBand = "LOW"
	BandVeryLow ConfidenceBand = "VERY_LOW"
)

// BandRange is the inclusive confidence interval of a band plus its prompt guidance.
type BandRange struct {
	Band     ConfidenceBand
	Min, Max int
	Guidance string
}

var bandRanges = []BandRange{
	{BandHigh, 80, 100, "text is sharp, crisp and perfectly readable"},
	{BandMedium, 50, 79, "text is readable but some characters are slightly unclear"},
	{BandLow, 20, 49, "text is blurry, faded or small and some characters had to be guessed"},
	{BandVeryLow, 0, 19, "text is barely legible; return null instead of guessing"},
}

// BandRanges returns the bands from highest to lowest.
func BandRanges() []BandRange {
	out := make([]BandRange, len(bandRanges))
	copy(out, bandRanges)
	return out
}

// BandFor returns the band containing confidence c (clamped into 0..100).
func BandFor(c int) ConfidenceBand {
	for _, r := range bandRanges {
		if c >= r.Min {
			return r.Band
		}
	}
	return BandVeryLow
}
