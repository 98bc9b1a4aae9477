/*
scheduler.go - Automated distribution scheduler

PURPOSE:
  Periodically runs a distribution over the stored inputs so payroll always
  has a fresh, reconciled run without anyone pressing a button.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Fingerprints the stored inputs and skips the run when nothing changed
    since the last stored run
  - An empty roster is not an error here; it just means nothing to do yet
  - A run that does not reconcile is logged at error level and not stored

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewDistributionScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunDistribution endpoint (manual run)
*/
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

// DistributionScheduler runs distributions on a fixed interval.
type DistributionScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex

	runMu           sync.Mutex
	lastFingerprint string
}

// NewDistributionScheduler creates a new scheduler.
func NewDistributionScheduler(handler *Handler) *DistributionScheduler {
	return &DistributionScheduler{
		Handler:       handler,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan struct{}),
	}
}

// Start begins the scheduler.
func (ds *DistributionScheduler) Start() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	logger := ds.Handler.Logger
	if !ds.Enabled {
		logger.Info("scheduler disabled, not starting")
		return
	}

	ds.ticker = time.NewTicker(ds.CheckInterval)
	ds.wg.Add(1)

	go ds.run()

	logger.Info("scheduler started", "interval", ds.CheckInterval)
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (ds *DistributionScheduler) Stop() {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	if ds.ticker != nil {
		ds.ticker.Stop()
		close(ds.stop)
		ds.wg.Wait()
		ds.ticker = nil
		ds.Handler.Logger.Info("scheduler stopped")
	}
}

func (ds *DistributionScheduler) run() {
	defer ds.wg.Done()

	// Run immediately on start
	ds.RunNow(context.Background())

	for {
		select {
		case <-ds.ticker.C:
			ds.RunNow(context.Background())
		case <-ds.stop:
			return
		}
	}
}

// RunNow checks the inputs and stores a new run if they changed. It returns
// the stored run, or nil when nothing was stored.
func (ds *DistributionScheduler) RunNow(ctx context.Context) *tips.Distribution {
	ds.runMu.Lock()
	defer ds.runMu.Unlock()

	h := ds.Handler
	in, err := h.Store.LoadInput(ctx)
	if err != nil {
		h.Logger.Error("scheduler: loading inputs", "error", err)
		return nil
	}
	fp, err := fingerprint(in)
	if err != nil {
		h.Logger.Error("scheduler: fingerprinting inputs", "error", err)
		return nil
	}
	if fp == ds.lastFingerprint {
		h.Logger.Debug("scheduler: inputs unchanged, skipping")
		return nil
	}

	dist, err := h.DistributeInput(ctx, in, true)
	switch {
	case errors.Is(err, generic.ErrNoShifts):
		h.Logger.Info("scheduler: no shifts stored yet")
		return nil
	case err != nil:
		h.Logger.Error("scheduler: distribution failed", "error", err)
		return nil
	}

	ds.lastFingerprint = fp
	h.Logger.Info("scheduler: distribution stored",
		"run_id", dist.ID,
		"processed", money(dist.Ledger.TotalProcessed),
		"overpaid", money(dist.Ledger.TotalOverpaid))
	return dist
}

// GetNextRunTime returns when the next scheduled check will occur.
func (ds *DistributionScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(ds.CheckInterval)
}

func fingerprint(in tips.Input) (string, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
