// Package watch periodically refreshes the prediction list and notifies about
// newly seen confident predictions.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rewired-gh/tennisoracle/internal/filter"
	"github.com/rewired-gh/tennisoracle/internal/logger"
	"github.com/rewired-gh/tennisoracle/internal/models"
)

// Source supplies the full prediction collection.
type Source interface {
	FetchPredictions(ctx context.Context) ([]models.PredictionRecord, error)
}

// Notifier delivers digests and failure notices. Implementations may be slow;
// the watcher calls them synchronously from its loop.
type Notifier interface {
	Send(predictions []models.PredictionRecord) error
	SendError(err error) error
	SendRecovery(failureCount int) error
}

type Config struct {
	PollInterval time.Duration
	// Query narrows which predictions are watched.
	Query filter.Criteria
	// MinBand is the lowest band that triggers a notification.
	MinBand models.ConfidenceBand
	// Cooldown before the same match is announced again; 0 announces each match once
	// unless its band improves.
	Cooldown       time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval:   5 * time.Minute,
		MinBand:        models.BandHigh,
		InitialBackoff: 5 * time.Second,
		MaxBackoff:     time.Minute,
	}
}

type notifiedRecord struct {
	Band   models.ConfidenceBand
	SentAt time.Time
}

// Watcher owns the refresh loop. Poll and Run must not be called concurrently;
// Latest is safe from any goroutine.
type Watcher struct {
	source   Source
	notifier Notifier
	config   Config

	notified            map[string]notifiedRecord
	consecutiveFailures int

	mu     sync.RWMutex
	latest []models.PredictionRecord

	// OnUpdate, when set, receives each successfully refreshed and filtered collection.
	OnUpdate func([]models.PredictionRecord)
}

// New creates a watcher. notifier may be nil.
func New(source Source, notifier Notifier, config Config) *Watcher {
	return &Watcher{
		source:   source,
		notifier: notifier,
		config:   config,
		notified: make(map[string]notifiedRecord),
		latest:   []models.PredictionRecord{},
	}
}

// Latest returns the collection from the last successful refresh.
func (w *Watcher) Latest() []models.PredictionRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.latest
}

// ConsecutiveFailures is the length of the current failure streak.
func (w *Watcher) ConsecutiveFailures() int {
	return w.consecutiveFailures
}

// Poll runs one refresh cycle.
func (w *Watcher) Poll(ctx context.Context) error {
	startTime := time.Now()

	records, err := w.source.FetchPredictions(ctx)
	if err != nil {
		err = fmt.Errorf("failed to fetch predictions: %w", err)
		// A poll interrupted by shutdown is not a service failure.
		if ctx.Err() != nil {
			return err
		}
		w.handleFailure(err)
		return err
	}
	w.handleRecovery()

	visible := filter.Apply(records, w.config.Query)
	w.mu.Lock()
	w.latest = visible
	w.mu.Unlock()
	logger.Info("Fetched %d predictions, %d match the watch query", len(records), len(visible))

	if w.OnUpdate != nil {
		w.OnUpdate(visible)
	}

	notable := w.SelectNotable(visible)
	if len(notable) > 0 && w.notifier != nil {
		if err := w.notifier.Send(notable); err != nil {
			logger.Error("Failed to send prediction digest: %v", err)
		} else {
			logger.Info("Sent digest with %d predictions", len(notable))
			w.RecordNotified(notable)
		}
	} else if len(notable) > 0 {
		logger.Debug("%d notable predictions, notifications disabled", len(notable))
		w.RecordNotified(notable)
	}

	logger.Debug("Refresh completed in %v", time.Since(startTime))
	return nil
}

func (w *Watcher) handleFailure(err error) {
	w.consecutiveFailures++
	logger.Error("Refresh failed: %v", err)
	if w.consecutiveFailures == 1 && w.notifier != nil {
		if sendErr := w.notifier.SendError(err); sendErr != nil {
			logger.Warn("Failed to send error notification: %v", sendErr)
		}
	}
}

func (w *Watcher) handleRecovery() {
	if w.consecutiveFailures > 0 {
		logger.Info("Recovered after %d consecutive failures", w.consecutiveFailures)
		if w.notifier != nil {
			if sendErr := w.notifier.SendRecovery(w.consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification: %v", sendErr)
			}
		}
	}
	w.consecutiveFailures = 0
}

// SelectNotable returns predictions at or above MinBand that have not been
// announced yet, or whose band improved since they were.
func (w *Watcher) SelectNotable(records []models.PredictionRecord) []models.PredictionRecord {
	minRank := w.config.MinBand.Rank()
	now := time.Now()

	var result []models.PredictionRecord
	for i := range records {
		r := &records[i]
		band := r.Band()
		if band.Rank() < minRank {
			continue
		}

		rec, exists := w.notified[matchKey(r)]
		if exists && band.Rank() <= rec.Band.Rank() {
			if w.config.Cooldown <= 0 || now.Sub(rec.SentAt) < w.config.Cooldown {
				continue
			}
		}
		result = append(result, *r)
	}
	return result
}

// RecordNotified marks predictions as announced.
func (w *Watcher) RecordNotified(records []models.PredictionRecord) {
	now := time.Now()
	for i := range records {
		w.notified[matchKey(&records[i])] = notifiedRecord{
			Band:   records[i].Band(),
			SentAt: now,
		}
	}
}

func matchKey(r *models.PredictionRecord) string {
	return r.Tournament + "|" + r.MatchLabel()
}

// Run polls immediately and then every PollInterval until ctx is done.
// After a failed poll the next attempt comes sooner, on an exponential
// backoff capped by MaxBackoff and never later than PollInterval.
func (w *Watcher) Run(ctx context.Context) error {
	if w.config.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	bo := backoff.NewExponentialBackOff()
	if w.config.InitialBackoff > 0 {
		bo.InitialInterval = w.config.InitialBackoff
	}
	if w.config.MaxBackoff > 0 {
		bo.MaxInterval = w.config.MaxBackoff
	}
	bo.MaxElapsedTime = 0
	bo.Reset()

	logger.Info("Watching predictions (interval: %v, min band: %s)", w.config.PollInterval, w.config.MinBand)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watcher stopped")
			return nil

		case <-timer.C:
			next := w.config.PollInterval
			if err := w.Poll(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				if d := bo.NextBackOff(); d != backoff.Stop && d < next {
					next = d
				}
				logger.Debug("Retrying in %v", next)
			} else {
				bo.Reset()
			}
			timer.Reset(next)
		}
	}
}
