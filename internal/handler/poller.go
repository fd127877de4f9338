package handler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hoteldesk/backoffice-service/internal/errs"
)

// Poller refreshes the reservation list at a fixed interval. It shares
// the store's in-flight guard with user-triggered refresh, so a tick that
// lands during a manual fetch is skipped, not queued.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	log      *zap.Logger

	paused   atomic.Bool
	running  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewPoller(interval time.Duration, log *zap.Logger, refresh func(ctx context.Context) error) *Poller {
	return &Poller{
		interval: interval,
		refresh:  refresh,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop. A zero interval disables polling.
func (p *Poller) Start(ctx context.Context) {
	if p.interval <= 0 {
		return
	}
	p.running.Store(true)
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.paused.Load() {
				continue
			}
			if err := p.refresh(ctx); err != nil && !errors.Is(err, errs.ErrRefreshInFlight) {
				p.log.Warn("poll refresh", zap.Error(err))
			}
		}
	}
}

// Pause suspends ticks without stopping the loop, mirroring the
// hidden-tab behavior of the dashboard.
func (p *Poller) Pause()  { p.paused.Store(true) }
func (p *Poller) Resume() { p.paused.Store(false) }

// Stop is safe to call more than once and without a prior Start.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	if p.running.Load() {
		<-p.done
	}
}
