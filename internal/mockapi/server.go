// Package mockapi serves a local stand-in for the remote prediction service
// from a fixed set of fixture predictions.
package mockapi

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"net/url"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rewired-gh/tennisoracle/internal/filter"
	"github.com/rewired-gh/tennisoracle/internal/models"
)

const recentLimit = 5

// Server answers the prediction service endpoints from memory.
// Fixtures are read-only after New, so handlers need no locking.
type Server struct {
	predictions []models.PredictionRecord
}

// New creates a server over a copy of the given fixtures.
func New(predictions []models.PredictionRecord) *Server {
	return &Server{predictions: append([]models.PredictionRecord(nil), predictions...)}
}

// Router returns the HTTP routes of the prediction service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/api/health", s.health)
	r.Get("/api/predictions", s.listPredictions)
	r.Get("/api/dashboard", s.dashboard)
	r.Get("/api/match/{tournament}/{match}", s.matchDetail)
	r.Get("/api/tournament/{tournament}", s.tournament)
	r.Post("/api/predict", s.predict)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "prediction service running",
	})
}

func (s *Server) listPredictions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"predictions": s.predictions,
	})
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	counts := filter.Count(s.predictions)
	byTournament := filter.ByTournament(s.predictions)

	recent := s.predictions
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	respondJSON(w, http.StatusOK, models.DashboardStats{
		TotalMatches:      len(s.predictions),
		TotalTournaments:  len(byTournament),
		HighConfidence:    counts.High,
		MediumConfidence:  counts.Medium,
		LowConfidence:     counts.Low,
		Tournaments:       byTournament,
		RecentPredictions: append([]models.PredictionRecord{}, recent...),
	})
}

func (s *Server) matchDetail(w http.ResponseWriter, r *http.Request) {
	tournament := pathParam(r, "tournament")
	label := pathParam(r, "match")

	for i := range s.predictions {
		p := &s.predictions[i]
		if p.Tournament == tournament && p.MatchLabel() == label {
			respondJSON(w, http.StatusOK, models.MatchDetail{
				PredictionRecord: *p,
				Analysis:         analysis(p),
			})
			return
		}
	}
	respondError(w, http.StatusNotFound, "match not found")
}

func (s *Server) tournament(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "tournament")

	matches := make([]models.PredictionRecord, 0)
	for _, p := range s.predictions {
		if p.Tournament == name {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		respondError(w, http.StatusNotFound, "tournament not found")
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if req.Player1 == "" || req.Player2 == "" {
		respondError(w, http.StatusBadRequest, "player1 and player2 are required")
		return
	}
	respondJSON(w, http.StatusOK, Predict(req.WithDefaults()))
}

// Predict derives a stable pseudo-prediction from the request so repeated
// calls agree. It stands in for the model, not a forecast.
func Predict(req models.PredictRequest) models.PredictionRecord {
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Player1 + "|" + req.Player2 + "|" + req.Surface))
	probA := 25 + float64(h.Sum32()%5001)/100 // 25.00 .. 75.00
	probB := 100 - probA

	favorite := req.Player1
	if probB > probA {
		favorite = req.Player2
	}
	return models.PredictionRecord{
		Tournament:   req.Tournament,
		PlayerA:      req.Player1,
		PlayerB:      req.Player2,
		ProbabilityA: probA,
		ProbabilityB: probB,
		Confidence:   math.Max(probA, probB),
		Favorite:     favorite,
		OddsA:        math.Round(100/probA*100) / 100,
		OddsB:        math.Round(100/probB*100) / 100,
	}
}

func analysis(p *models.PredictionRecord) string {
	switch p.Band() {
	case models.BandHigh:
		return fmt.Sprintf("Strong prediction. %s is a clear favorite.", p.Favorite)
	case models.BandMedium:
		return fmt.Sprintf("Moderate prediction. Balanced match with a slight edge for %s.", p.Favorite)
	default:
		return "Uncertain prediction. Either player can win."
	}
}

// pathParam unescapes a route parameter; chi hands back the raw segment
// when the request path carried escaped slashes.
func pathParam(r *http.Request, name string) string {
	raw := chi.URLParam(r, name)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

// LoadFixtures reads predictions from a JSON file holding either a bare
// array or a {"predictions": [...]} object.
func LoadFixtures(path string) ([]models.PredictionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	var records []models.PredictionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		var env struct {
			Predictions []models.PredictionRecord `json:"predictions"`
		}
		if err2 := json.Unmarshal(data, &env); err2 != nil {
			return nil, fmt.Errorf("failed to decode fixtures: %w", err)
		}
		records = env.Predictions
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid fixture %d: %w", i, err)
		}
	}
	return records, nil
}

// SampleFixtures returns a small built-in data set.
func SampleFixtures() []models.PredictionRecord {
	return []models.PredictionRecord{
		{Tournament: "Roland Garros", PlayerA: "Carlos Alcaraz", PlayerB: "Jannik Sinner", ProbabilityA: 58.4, ProbabilityB: 41.6, Confidence: 58.4, Favorite: "Carlos Alcaraz", OddsA: 1.71, OddsB: 2.4},
		{Tournament: "Roland Garros", PlayerA: "Iga Świątek", PlayerB: "Coco Gauff", ProbabilityA: 76.2, ProbabilityB: 23.8, Confidence: 76.2, Favorite: "Iga Świątek", OddsA: 1.31, OddsB: 4.2},
		{Tournament: "Madrid Open", PlayerA: "Novak Djokovic", PlayerB: "Casper Ruud", ProbabilityA: 71.5, ProbabilityB: 28.5, Confidence: 71.5, Favorite: "Novak Djokovic", OddsA: 1.4, OddsB: 3.5},
		{Tournament: "Madrid Open", PlayerA: "Holger Rune", PlayerB: "Taylor Fritz", ProbabilityA: 47.1, ProbabilityB: 52.9, Confidence: 52.9, Favorite: "Taylor Fritz", OddsA: 2.12, OddsB: 1.89},
		{Tournament: "Lyon Open", PlayerA: "Ugo Humbert", PlayerB: "Arthur Fils", ProbabilityA: 51.2, ProbabilityB: 48.8, Confidence: 44.0, Favorite: "Ugo Humbert", OddsA: 1.95, OddsB: 2.05},
		{Tournament: "Lyon Open", PlayerA: "Richard Gasquet", PlayerB: "Alexandre Müller", ProbabilityA: 38.0, ProbabilityB: 62.0, Confidence: 62.0, Favorite: "Alexandre Müller", OddsA: 2.63, OddsB: 1.61},
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
