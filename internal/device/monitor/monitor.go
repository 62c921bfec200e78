// Package monitor watches the seismic device's last reading time and alerts admins once when the
// device goes offline.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/project-queyk/queyk-backend/internal/device/domain"
	"github.com/project-queyk/queyk-backend/internal/logging"
	"github.com/project-queyk/queyk-backend/internal/platform/apperr"
	"github.com/project-queyk/queyk-backend/internal/telemetry"
)

const (
	DefaultInterval  = 60 * time.Second
	DefaultThreshold = 6 * time.Minute
)

// ErrCheckInProgress is returned by Check when another check holds the monitor.
var ErrCheckInProgress = errors.New("monitor: check already in progress")

// LastSeenSource returns the time of the newest stored reading, or nil if there is none.
type LastSeenSource interface {
	LastReadingTime(ctx context.Context) (*time.Time, error)
}

// Alerter tells admins the device went offline. lastSeen is nil if the device never reported.
type Alerter interface {
	NotifyOffline(ctx context.Context, lastSeen *time.Time) error
}

// Recorder counts online to offline transitions.
type Recorder interface {
	OfflineTransition(ctx context.Context)
}

// state is guarded by Monitor.mu and only touched inside check.
type state struct {
	lastKnownReadingTime    *time.Time
	offlineNotificationSent bool
}

// Monitor is the liveness state machine. It is safe for concurrent use; checks never overlap.
type Monitor struct {
	source    LastSeenSource
	alerter   Alerter
	recorder  Recorder
	emitter   telemetry.EventEmitter
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time

	mu     sync.Mutex
	state  state
	status atomic.Pointer[domain.Status]
}

// Option configures a Monitor.
type Option func(*Monitor)

func WithInterval(d time.Duration) Option  { return func(m *Monitor) { m.interval = d } }
func WithThreshold(d time.Duration) Option { return func(m *Monitor) { m.threshold = d } }
func WithRecorder(r Recorder) Option       { return func(m *Monitor) { m.recorder = r } }
func WithEmitter(e telemetry.EventEmitter) Option {
	return func(m *Monitor) { m.emitter = e }
}
func WithLogger(l *slog.Logger) Option { return func(m *Monitor) { m.logger = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Monitor) { m.now = now } }

// New returns a Monitor reading last-seen times from source and alerting through alerter.
func New(source LastSeenSource, alerter Alerter, opts ...Option) *Monitor {
	m := &Monitor{
		source:    source,
		alerter:   alerter,
		interval:  DefaultInterval,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.threshold <= 0 {
		m.threshold = DefaultThreshold
	}
	m.logger = logging.OrDefault(m.logger).With("component", "liveness")
	m.status.Store(&domain.Status{})
	return m
}

// Threshold is the silence after which the device counts as offline.
func (m *Monitor) Threshold() time.Duration { return m.threshold }

// Status returns the snapshot published by the last completed check.
func (m *Monitor) Status() domain.Status {
	return *m.status.Load()
}

// Online reports whether the last check saw the device online.
func (m *Monitor) Online() bool {
	s := m.Status()
	return s.Checked && s.Online
}

// Run checks once immediately and then every interval until ctx is done. A tick that arrives while
// a check is still running is skipped.
func (m *Monitor) Run(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	tick := func() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Check(ctx); errors.Is(err, ErrCheckInProgress) {
				m.logger.Warn("previous liveness check still running, skipping tick")
			}
		}()
	}

	m.logger.Info("liveness monitor started", "interval", m.interval, "threshold", m.threshold)
	tick()
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("liveness monitor stopped")
			return
		case <-t.C:
			tick()
		}
	}
}

// Check runs one liveness check. A storage failure leaves the state untouched. A failed offline
// alert leaves the notification flag clear so the next check retries it.
func (m *Monitor) Check(ctx context.Context) error {
	if !m.mu.TryLock() {
		return ErrCheckInProgress
	}
	defer m.mu.Unlock()

	last, err := m.source.LastReadingTime(ctx)
	if err != nil {
		m.logger.Error("liveness check: last reading time", "error", err)
		return apperr.Storage("last reading time", err)
	}
	now := m.now()
	m.state.lastKnownReadingTime = last
	offline := domain.IsOffline(last, now, m.threshold)

	var alertErr error
	switch {
	case offline && !m.state.offlineNotificationSent:
		alertErr = m.alert(ctx, last)
	case !offline && m.state.offlineNotificationSent:
		m.state.offlineNotificationSent = false
		m.logger.Info("device back online", "last_reading", last)
		telemetry.EmitAsync(m.emitter, telemetry.NewEvent(telemetry.EventDeviceOnline, "liveness", map[string]any{
			"lastReadingTime": last,
		}))
	}

	m.status.Store(&domain.Status{
		Checked:                 true,
		Online:                  !offline,
		LastReadingTime:         m.state.lastKnownReadingTime,
		OfflineNotificationSent: m.state.offlineNotificationSent,
		CheckedAt:               now,
	})
	return alertErr
}

func (m *Monitor) alert(ctx context.Context, last *time.Time) error {
	m.logger.Warn("device offline", "last_reading", last, "threshold", m.threshold)
	err := m.alerter.NotifyOffline(ctx, last)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		m.logger.Error("offline alert failed, will retry", "error", err)
		return err
	}
	if err != nil {
		m.logger.Warn("offline alert had no eligible recipients", "error", err)
	}
	m.state.offlineNotificationSent = true
	if m.recorder != nil {
		m.recorder.OfflineTransition(ctx)
	}
	telemetry.EmitAsync(m.emitter, telemetry.NewEvent(telemetry.EventDeviceOffline, "liveness", map[string]any{
		"lastReadingTime": last,
		"threshold":       m.threshold.String(),
	}))
	return nil
}
