package models

import (
	"fmt"
	"strings"
)

// ConfidenceBand is a thresholded classification of a confidence score.
type ConfidenceBand string

const (
	// BandAll selects every band when used as a filter. The zero value behaves the same.
	BandAll    ConfidenceBand = "all"
	BandHigh   ConfidenceBand = "high"
	BandMedium ConfidenceBand = "medium"
	BandLow    ConfidenceBand = "low"
)

const (
	highThreshold = 70.0
	lowThreshold  = 50.0
)

// BandOf classifies a confidence score: High is > 70, Medium is 50..70
// inclusive, Low is < 50.
func BandOf(confidence float64) ConfidenceBand {
	switch {
	case confidence > highThreshold:
		return BandHigh
	case confidence >= lowThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// ParseBand parses a band selector. Empty input selects all bands.
func ParseBand(s string) (ConfidenceBand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return BandAll, nil
	case "high":
		return BandHigh, nil
	case "medium":
		return BandMedium, nil
	case "low":
		return BandLow, nil
	}
	return "", fmt.Errorf("unknown confidence band %q (want all, high, medium or low)", s)
}

// IsAll reports whether the band selects every record.
func (b ConfidenceBand) IsAll() bool {
	return b == "" || b == BandAll
}

// Rank orders bands from Low (1) to High (3); the all selector ranks 0.
func (b ConfidenceBand) Rank() int {
	switch b {
	case BandHigh:
		return 3
	case BandMedium:
		return 2
	case BandLow:
		return 1
	}
	return 0
}

// Label is the badge text shown next to a prediction.
func (b ConfidenceBand) Label() string {
	switch b {
	case BandHigh:
		return "HIGH"
	case BandMedium:
		return "MEDIUM"
	case BandLow:
		return "LOW"
	}
	return "ALL"
}

// Color is the badge colour as a hex RGB string.
func (b ConfidenceBand) Color() string {
	switch b {
	case BandHigh:
		return "#4CAF50"
	case BandMedium:
		return "#FF9800"
	default:
		return "#F44336"
	}
}
