package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StaleReminder re-notifies approvers about expenses that have waited too long
type StaleReminder interface {
	RemindStale(ctx context.Context, staleAfter time.Duration) (int, error)
}

// ReminderConfig holds configuration for the reminder worker
type ReminderConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// DefaultReminderConfig returns default configuration
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval:   time.Hour,
		StaleAfter: 48 * time.Hour,
	}
}

// ReminderWorker periodically reminds approvers about stale pending expenses
type ReminderWorker struct {
	config   ReminderConfig
	reminder StaleReminder
	logger   *zap.Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	runs     int
	reminded int
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(config ReminderConfig, reminder StaleReminder, logger *zap.Logger) *ReminderWorker {
	defaults := DefaultReminderConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	return &ReminderWorker{
		config:   config,
		reminder: reminder,
		logger:   logger,
	}
}

func (w *ReminderWorker) Name() string { return "ReminderWorker" }

// Start begins the polling loop in the background
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.logger.Info("ReminderWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("stale_after", w.config.StaleAfter))

	go w.loop(loopCtx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight pass to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	runs, reminded := w.Stats()
	w.logger.Info("ReminderWorker stopped", zap.Int("runs", runs), zap.Int("reminded", reminded))
	return nil
}

// Stats returns how many passes ran and how many reminders they produced
func (w *ReminderWorker) Stats() (runs, reminded int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs, w.reminded
}

func (w *ReminderWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single reminder pass
func (w *ReminderWorker) RunOnce(ctx context.Context) {
	count, err := w.reminder.RemindStale(ctx, w.config.StaleAfter)

	w.mu.Lock()
	w.runs++
	w.reminded += count
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Reminder pass failed", zap.Error(err))
		return
	}
	if count > 0 {
		w.logger.Debug("Reminder pass finished", zap.Int("reminded", count))
	}
}
