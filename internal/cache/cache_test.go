package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rewired-gh/tennisoracle/internal/models"
)

type memEntry struct {
	data    []byte
	expires time.Time
}

type memStore struct {
	mu       sync.Mutex
	entries  map[string]memEntry
	failGet  error
	failSet  error
	setCalls int
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]memEntry)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return nil, m.failGet
	}
	e, ok := m.entries[key]
	if !ok || time.Now().After(e.expires) {
		return nil, ErrMiss
	}
	return e.data, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++
	if m.failSet != nil {
		return m.failSet
	}
	m.entries[key] = memEntry{data: value, expires: time.Now().Add(ttl)}
	return nil
}

type fakeSource struct {
	predictionCalls int
	dashboardCalls  int
	records         []models.PredictionRecord
	err             error
}

func (f *fakeSource) FetchPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	f.predictionCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) FetchDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	f.dashboardCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.DashboardStats{TotalMatches: len(f.records), Tournaments: map[string]int{"Paris Open": len(f.records)}}, nil
}

func sampleRecords() []models.PredictionRecord {
	return []models.PredictionRecord{
		{Tournament: "Paris Open", PlayerA: "A", PlayerB: "B", Confidence: 72, Favorite: "A", OddsA: 1.4, OddsB: 3},
		{Tournament: "Paris Open", PlayerA: "C", PlayerB: "D", Confidence: 55, Favorite: "D", OddsA: 2, OddsB: 1.8},
	}
}

func TestFetchPredictions_MissThenHit(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	c := New(src, newMemStore(), time.Minute)

	for i := 0; i < 3; i++ {
		records, err := c.FetchPredictions(context.Background())
		if err != nil {
			t.Fatalf("FetchPredictions: %v", err)
		}
		if len(records) != 2 || records[0].PlayerA != "A" {
			t.Errorf("unexpected records: %+v", records)
		}
	}
	if src.predictionCalls != 1 {
		t.Errorf("source called %d times, want 1", src.predictionCalls)
	}
}

func TestFetchPredictions_Expiry(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	c := New(src, newMemStore(), 20*time.Millisecond)

	if _, err := c.FetchPredictions(context.Background()); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := c.FetchPredictions(context.Background()); err != nil {
		t.Fatal(err)
	}
	if src.predictionCalls != 2 {
		t.Errorf("source called %d times after expiry, want 2", src.predictionCalls)
	}
}

func TestFetchPredictions_EmptyCollectionCached(t *testing.T) {
	src := &fakeSource{records: []models.PredictionRecord{}}
	c := New(src, newMemStore(), time.Minute)

	for i := 0; i < 2; i++ {
		records, err := c.FetchPredictions(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if records == nil || len(records) != 0 {
			t.Errorf("expected empty non-nil collection, got %#v", records)
		}
	}
	if src.predictionCalls != 1 {
		t.Errorf("source called %d times, want 1", src.predictionCalls)
	}
}

func TestFetchPredictions_SourceErrorNotCached(t *testing.T) {
	sourceErr := errors.New("service down")
	src := &fakeSource{err: sourceErr}
	store := newMemStore()
	c := New(src, store, time.Minute)

	if _, err := c.FetchPredictions(context.Background()); !errors.Is(err, sourceErr) {
		t.Fatalf("expected source error, got %v", err)
	}
	if store.setCalls != 0 {
		t.Errorf("failure was cached")
	}

	src.err = nil
	src.records = sampleRecords()
	if _, err := c.FetchPredictions(context.Background()); err != nil {
		t.Fatalf("FetchPredictions after recovery: %v", err)
	}
}

func TestFetchPredictions_StoreFailureFallsThrough(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	store := newMemStore()
	store.failGet = errors.New("connection refused")
	store.failSet = errors.New("connection refused")
	c := New(src, store, time.Minute)

	for i := 0; i < 2; i++ {
		records, err := c.FetchPredictions(context.Background())
		if err != nil {
			t.Fatalf("store failure leaked: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("got %d records", len(records))
		}
	}
	if src.predictionCalls != 2 {
		t.Errorf("source called %d times, want 2", src.predictionCalls)
	}
}

func TestFetchPredictions_CorruptEntry(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	store := newMemStore()
	_ = store.Set(context.Background(), predictionsKey, []byte("{not json"), time.Minute)
	c := New(src, store, time.Minute)

	records, err := c.FetchPredictions(context.Background())
	if err != nil || len(records) != 2 {
		t.Fatalf("FetchPredictions = %d records, err %v", len(records), err)
	}
	if src.predictionCalls != 1 {
		t.Errorf("corrupt entry served instead of refetching")
	}
}

func TestFetchDashboardStats_Cached(t *testing.T) {
	src := &fakeSource{records: sampleRecords()}
	c := New(src, newMemStore(), time.Minute)

	for i := 0; i < 2; i++ {
		stats, err := c.FetchDashboardStats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalMatches != 2 || stats.Tournaments["Paris Open"] != 2 {
			t.Errorf("unexpected stats: %+v", stats)
		}
	}
	if src.dashboardCalls != 1 {
		t.Errorf("source called %d times, want 1", src.dashboardCalls)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TENNIS_ORACLE_TEST_REDIS")
	if addr == "" {
		t.Skip("TENNIS_ORACLE_TEST_REDIS not set")
	}

	ctx := context.Background()
	client, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer client.Close()

	store := NewRedisStore(client, "tennisoracle-test")
	if _, err := store.Get(ctx, "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get = %q, %v", got, err)
	}
}
