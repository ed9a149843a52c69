package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rewired-gh/tennisoracle/internal/models"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSampleFixturesAreValid(t *testing.T) {
	for i, p := range SampleFixtures() {
		if err := p.Validate(); err != nil {
			t.Errorf("fixture %d invalid: %v", i, err)
		}
	}
}

func TestHealth(t *testing.T) {
	rec := get(t, New(nil).Router(), "/api/health")
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	rec := get(t, New(SampleFixtures()).Router(), "/api/dashboard")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rec.Code)
	}

	var stats models.DashboardStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalMatches != 6 || stats.TotalTournaments != 3 {
		t.Errorf("unexpected totals: %+v", stats)
	}
	if stats.HighConfidence != 2 || stats.MediumConfidence != 3 || stats.LowConfidence != 1 {
		t.Errorf("unexpected band counts: high=%d medium=%d low=%d",
			stats.HighConfidence, stats.MediumConfidence, stats.LowConfidence)
	}
	if stats.Tournaments["Madrid Open"] != 2 {
		t.Errorf("unexpected tournament counts: %v", stats.Tournaments)
	}
	if len(stats.RecentPredictions) != recentLimit {
		t.Errorf("got %d recent predictions, want %d", len(stats.RecentPredictions), recentLimit)
	}
}

func TestMatchDetail(t *testing.T) {
	h := New(SampleFixtures()).Router()

	rec := get(t, h, "/api/match/Roland%20Garros/Iga%20%C5%9Awi%C4%85tek%20vs%20Coco%20Gauff")
	if rec.Code != http.StatusOK {
		t.Fatalf("match status = %d: %s", rec.Code, rec.Body.String())
	}
	var detail models.MatchDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Favorite != "Iga Świątek" || detail.Analysis == "" {
		t.Errorf("unexpected detail: %+v", detail)
	}

	rec = get(t, h, "/api/match/Roland%20Garros/Nobody%20vs%20Someone")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown match status = %d, want 404", rec.Code)
	}
}

func TestTournament(t *testing.T) {
	h := New(SampleFixtures()).Router()

	rec := get(t, h, "/api/tournament/Lyon%20Open")
	if rec.Code != http.StatusOK {
		t.Fatalf("tournament status = %d", rec.Code)
	}
	var records []models.PredictionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records, want 2", len(records))
	}

	if rec := get(t, h, "/api/tournament/Wimbledon"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tournament status = %d, want 404", rec.Code)
	}
}

func TestPredictEndpoint(t *testing.T) {
	h := New(nil).Router()

	body := `{"player1":"Carlos Alcaraz","player2":"Jannik Sinner"}`
	req := httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict status = %d", rec.Code)
	}

	var p models.PredictionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Tournament != "ATP250" {
		t.Errorf("default tournament not applied: %q", p.Tournament)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("prediction invalid: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/predict", strings.NewReader(`{"player1":"A"}`))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing player status = %d, want 400", rec.Code)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	req := models.PredictRequest{Player1: "A", Player2: "B", Surface: "Clay", Tournament: "X"}
	first, second := Predict(req), Predict(req)
	if first != second {
		t.Errorf("predictions differ: %+v vs %+v", first, second)
	}
	if sum := first.ProbabilityA + first.ProbabilityB; sum < 99.99 || sum > 100.01 {
		t.Errorf("probabilities sum to %f", sum)
	}
}

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()

	arrayPath := filepath.Join(dir, "array.json")
	data, _ := json.Marshal(SampleFixtures())
	if err := os.WriteFile(arrayPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	records, err := LoadFixtures(arrayPath)
	if err != nil || len(records) != 6 {
		t.Fatalf("LoadFixtures(array) = %d records, err %v", len(records), err)
	}

	envPath := filepath.Join(dir, "env.json")
	data, _ = json.Marshal(map[string]interface{}{"predictions": SampleFixtures()[:2]})
	if err := os.WriteFile(envPath, data, 0o644); err != nil {
		t.Fatal(err)
	}
	records, err = LoadFixtures(envPath)
	if err != nil || len(records) != 2 {
		t.Fatalf("LoadFixtures(envelope) = %d records, err %v", len(records), err)
	}

	badPath := filepath.Join(dir, "bad.json")
	bad := `[{"player_a":"A","player_b":"B","favorite":"C","odds_a":1,"odds_b":1}]`
	if err := os.WriteFile(badPath, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixtures(badPath); err == nil {
		t.Error("expected error for invalid favorite")
	}
}
