// Package predictapi is the retrieval client for the remote tennis prediction service.
package predictapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/models"
)

// DefaultTimeout bounds every call, including connection setup and body read.
const DefaultTimeout = 10 * time.Second

const maxBodyBytes = 8 << 20

// Client provides access to the prediction service.
// It is safe for concurrent use; calls do not share state beyond the base address.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
}

// ClientConfig tunes the transport. The zero value is usable.
type ClientConfig struct {
	// RequestsPerSec caps outgoing calls; 0 disables the limiter.
	RequestsPerSec      float64
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// NewClient creates a client for the service at baseURL.
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, cfg ClientConfig) (*Client, error) {
	base, err := normalizeBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConnsPerHost
	}
	if cfg.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = cfg.IdleConnTimeout
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		timeout: timeout,
	}
	if cfg.RequestsPerSec > 0 {
		burst := int(cfg.RequestsPerSec)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}
	return c, nil
}

// Configure repoints the client at a new base address. Calls already in
// flight keep the address they started with.
func (c *Client) Configure(address string) error {
	base, err := normalizeBaseURL(address)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.baseURL = base
	c.mu.Unlock()
	logger.Info("Prediction service address set to %s", base)
	return nil
}

// BaseURL returns the address used for the next call.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Timeout returns the per-call budget.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func normalizeBaseURL(address string) (string, error) {
	address = strings.TrimRight(strings.TrimSpace(address), "/")
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", address, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid base URL %q: scheme must be http or https", address)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid base URL %q: missing host", address)
	}
	return address, nil
}

// predictionsEnvelope is the documented /api/predictions shape. Older
// services return a bare array instead.
type predictionsEnvelope struct {
	Predictions []models.PredictionRecord `json:"predictions"`
}

// FetchPredictions retrieves the full prediction collection.
func (c *Client) FetchPredictions(ctx context.Context) ([]models.PredictionRecord, error) {
	const op = "fetch predictions"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/predictions", nil, false)
	if err != nil {
		return nil, err
	}
	records, err := decodeCollection(raw)
	if err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindServer, Err: err}
	}
	logger.Debug("Fetched %d predictions", len(records))
	return records, nil
}

// FetchTournament retrieves the predictions of a single tournament.
// An unknown tournament yields ErrNotFound.
func (c *Client) FetchTournament(ctx context.Context, name string) ([]models.PredictionRecord, error) {
	const op = "fetch tournament"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/tournament/"+url.PathEscape(name), nil, true)
	if err != nil {
		return nil, err
	}
	records, err := decodeCollection(raw)
	if err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindServer, Err: err}
	}
	return records, nil
}

// FetchDashboardStats retrieves the aggregate counts for the dashboard.
func (c *Client) FetchDashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	const op = "fetch dashboard"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/dashboard", nil, false)
	if err != nil {
		return nil, err
	}
	var stats models.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindServer, Err: fmt.Errorf("failed to decode dashboard: %w", err)}
	}
	if stats.Tournaments == nil {
		stats.Tournaments = map[string]int{}
	}
	if stats.RecentPredictions == nil {
		stats.RecentPredictions = []models.PredictionRecord{}
	}
	return &stats, nil
}

// FetchMatchDetail retrieves one match. Both key parts are path-escaped.
// A 404 or an empty payload yields ErrNotFound.
func (c *Client) FetchMatchDetail(ctx context.Context, tournament, matchLabel string) (*models.MatchDetail, error) {
	const op = "fetch match detail"
	path := "/api/match/" + url.PathEscape(tournament) + "/" + url.PathEscape(matchLabel)
	raw, err := c.do(ctx, op, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}

	var detail *models.MatchDetail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindServer, Err: fmt.Errorf("failed to decode match detail: %w", err)}
	}
	if detail.IsEmpty() {
		return nil, &RetrievalError{Op: op, Kind: KindNotFound, Err: fmt.Errorf("no match %q in %q", matchLabel, tournament)}
	}
	return detail, nil
}

// ErrMissingPlayer is returned by Predict before any request is made.
var ErrMissingPlayer = errors.New("both players are required")

// Predict asks the service for a fresh prediction. Surface and tournament
// default to Hard and ATP250. A request without both players fails with
// ErrMissingPlayer, which is an argument error and not a *RetrievalError.
func (c *Client) Predict(ctx context.Context, req models.PredictRequest) (*models.PredictionRecord, error) {
	const op = "predict"
	if req.Player1 == "" || req.Player2 == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrMissingPlayer)
	}
	raw, err := c.do(ctx, op, http.MethodPost, "/api/predict", req.WithDefaults(), false)
	if err != nil {
		return nil, err
	}
	var rec models.PredictionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindServer, Err: fmt.Errorf("failed to decode prediction: %w", err)}
	}
	return &rec, nil
}

// CheckConnection probes /api/health. It reports true only on HTTP 200 and
// never returns an error.
func (c *Client) CheckConnection(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, reqID, err := c.newRequest(ctx, http.MethodGet, c.BaseURL()+"/api/health", nil)
	if err != nil {
		logger.Warn("Health check failed: %v", err)
		return false
	}
	if err := c.wait(ctx); err != nil {
		logger.Warn("Health check failed: %v", err)
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Health check failed (request %s): %v", reqID, err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode != http.StatusOK {
		logger.Warn("Health check returned status %d (request %s)", resp.StatusCode, reqID)
		return false
	}
	return true
}

// do performs one request and returns the raw body of a 2xx response.
// keyed marks lookups where 404 means an unknown key rather than a server fault.
func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, keyed bool) ([]byte, error) {
	// Capture the address once so a concurrent Configure cannot affect this call.
	urlStr := c.BaseURL() + path

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, reqID, err := c.newRequest(ctx, method, urlStr, body)
	if err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindTransport, RequestID: reqID, Err: err}
	}

	if err := c.wait(ctx); err != nil {
		return nil, &RetrievalError{Op: op, Kind: KindTimeout, RequestID: reqID, Err: err}
	}

	logger.Debug("%s %s (request %s)", method, urlStr, reqID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		rerr := &RetrievalError{Op: op, Kind: classify(err), RequestID: reqID, Err: err}
		logger.Warn("%v", rerr)
		return nil, rerr
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RetrievalError{Op: op, Kind: classify(err), StatusCode: resp.StatusCode, RequestID: reqID, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		kind := KindServer
		if keyed && resp.StatusCode == http.StatusNotFound {
			kind = KindNotFound
		}
		rerr := &RetrievalError{Op: op, Kind: kind, StatusCode: resp.StatusCode, RequestID: reqID, Err: serviceMessage(raw)}
		if kind != KindNotFound {
			logger.Warn("%v", rerr)
		}
		return nil, rerr
	}
	return raw, nil
}

func (c *Client) newRequest(ctx context.Context, method, urlStr string, body interface{}) (*http.Request, string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build request: %w", err)
	}

	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	return req, reqID, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// decodeCollection accepts either {"predictions": [...]} or a bare array.
// A null or missing list decodes to an empty collection.
func decodeCollection(raw []byte) ([]models.PredictionRecord, error) {
	trimmed := bytes.TrimSpace(raw)
	var records []models.PredictionRecord

	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("failed to decode predictions: %w", err)
		}
	} else if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		var env predictionsEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, fmt.Errorf("failed to decode predictions: %w", err)
		}
		records = env.Predictions
	}

	if records == nil {
		records = []models.PredictionRecord{}
	}
	return records, nil
}

// serviceMessage extracts the {"error": "..."} message the service sends with failures.
func serviceMessage(raw []byte) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return errors.New(body.Error)
	}
	return nil
}
