// Package models defines the core domain entities: predictions, confidence bands,
// dashboard aggregates, and match details.
package models

import (
	"errors"
	"fmt"
)

// PredictionRecord is one forecast for a single match, as served by the
// prediction service. Probabilities and confidence are percentages (0-100).
type PredictionRecord struct {
	Tournament   string  `json:"tournament"`
	PlayerA      string  `json:"player_a"`
	PlayerB      string  `json:"player_b"`
	ProbabilityA float64 `json:"probability_a"`
	ProbabilityB float64 `json:"probability_b"`
	Confidence   float64 `json:"confidence"`
	Favorite     string  `json:"favorite"`
	OddsA        float64 `json:"odds_a"`
	OddsB        float64 `json:"odds_b"`
}

// MatchLabel returns the "A vs B" label used to address a match detail.
func (p *PredictionRecord) MatchLabel() string {
	return fmt.Sprintf("%s vs %s", p.PlayerA, p.PlayerB)
}

// Band classifies the record by its confidence.
func (p *PredictionRecord) Band() ConfidenceBand {
	return BandOf(p.Confidence)
}

// Validate checks record field constraints.
// Confidence is deliberately not cross-checked against the probabilities.
func (p *PredictionRecord) Validate() error {
	if p.PlayerA == "" || p.PlayerB == "" {
		return errors.New("both players must be named")
	}
	if p.Favorite != p.PlayerA && p.Favorite != p.PlayerB {
		return fmt.Errorf("favorite %q must be %q or %q", p.Favorite, p.PlayerA, p.PlayerB)
	}
	if p.ProbabilityA < 0 || p.ProbabilityA > 100 {
		return errors.New("probability a must be between 0 and 100")
	}
	if p.ProbabilityB < 0 || p.ProbabilityB > 100 {
		return errors.New("probability b must be between 0 and 100")
	}
	if p.Confidence < 0 || p.Confidence > 100 {
		return errors.New("confidence must be between 0 and 100")
	}
	if p.OddsA <= 0 || p.OddsB <= 0 {
		return errors.New("odds must be positive")
	}
	return nil
}

// MatchDetail is the payload of a single match lookup.
type MatchDetail struct {
	PredictionRecord
	Surface  string `json:"surface,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

// IsEmpty reports whether the detail carries no match at all. The service
// answers unknown keys with an empty object on some versions.
func (d *MatchDetail) IsEmpty() bool {
	return d == nil || (d.PlayerA == "" && d.PlayerB == "")
}

// DashboardStats holds the aggregate counts shown on the dashboard.
type DashboardStats struct {
	TotalMatches      int                `json:"total_matches"`
	TotalTournaments  int                `json:"total_tournaments"`
	HighConfidence    int                `json:"high_confidence"`
	MediumConfidence  int                `json:"medium_confidence"`
	LowConfidence     int                `json:"low_confidence"`
	Tournaments       map[string]int     `json:"tournaments"`
	RecentPredictions []PredictionRecord `json:"recent_predictions"`
}

const (
	DefaultSurface    = "Hard"
	DefaultTournament = "ATP250"
)

// PredictRequest asks the service for a fresh prediction.
type PredictRequest struct {
	Player1    string `json:"player1"`
	Player2    string `json:"player2"`
	Surface    string `json:"surface"`
	Tournament string `json:"tournament"`
}

// WithDefaults fills surface and tournament when unset.
func (r PredictRequest) WithDefaults() PredictRequest {
	if r.Surface == "" {
		r.Surface = DefaultSurface
	}
	if r.Tournament == "" {
		r.Tournament = DefaultTournament
	}
	return r
}
