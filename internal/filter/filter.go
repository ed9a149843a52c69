// Package filter narrows a prediction collection by free text and confidence band.
package filter

import (
	"strings"

	"github.com/rewired-gh/tennisoracle/internal/models"
)

// Criteria is the query state applied to a prediction list.
// The zero value matches every record.
type Criteria struct {
	Text string
	Band models.ConfidenceBand
}

// Apply returns the records matching c, in input order.
// The input slice is never modified and the result is never nil.
func Apply(records []models.PredictionRecord, c Criteria) []models.PredictionRecord {
	query := strings.ToLower(c.Text)

	out := make([]models.PredictionRecord, 0, len(records))
	for i := range records {
		r := &records[i]
		if query != "" && !matchesText(r, query) {
			continue
		}
		if !c.Band.IsAll() && r.Band() != c.Band {
			continue
		}
		out = append(out, *r)
	}
	return out
}

// matchesText expects query already lowercased.
func matchesText(r *models.PredictionRecord, query string) bool {
	return strings.Contains(strings.ToLower(r.PlayerA), query) ||
		strings.Contains(strings.ToLower(r.PlayerB), query) ||
		strings.Contains(strings.ToLower(r.Tournament), query)
}

// BandCounts tallies a collection by confidence band.
type BandCounts struct {
	High   int
	Medium int
	Low    int
}

// Total is the number of records counted.
func (b BandCounts) Total() int {
	return b.High + b.Medium + b.Low
}

// Count classifies every record and tallies the bands.
func Count(records []models.PredictionRecord) BandCounts {
	var bc BandCounts
	for i := range records {
		switch records[i].Band() {
		case models.BandHigh:
			bc.High++
		case models.BandMedium:
			bc.Medium++
		default:
			bc.Low++
		}
	}
	return bc
}

// ByTournament counts records per tournament name.
func ByTournament(records []models.PredictionRecord) map[string]int {
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].Tournament]++
	}
	return counts
}
