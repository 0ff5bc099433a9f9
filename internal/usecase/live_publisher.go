package usecase

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"PairLab/internal/domain/models"
	domrepo "PairLab/internal/domain/repository"
	"PairLab/internal/services/analytics"
	"PairLab/pkg/cache"
	applogger "PairLab/pkg/logger"
)

// LivePair is one pair the live publisher analyses.
type LivePair struct {
	SymbolX string
	SymbolY string
}

// LivePublisher periodically analyses the recent history of each pair and
// pushes the result to live clients.
type LivePublisher struct {
	pa        *PairAnalytics
	hub       domrepo.Broadcaster
	locks     cache.Service
	pairs     []LivePair
	timeframe domrepo.Timeframe
	window    int
	lookback  time.Duration
	interval  time.Duration
	now       func() time.Time
	log       *applogger.Logger
}

func NewLivePublisher(
	pa *PairAnalytics,
	hub domrepo.Broadcaster,
	locks cache.Service,
	pairs []LivePair,
	timeframe domrepo.Timeframe,
	window int,
	lookback, interval time.Duration,
	l *applogger.Logger,
) *LivePublisher {
	if locks == nil {
		locks = cache.Noop{}
	}
	if l == nil {
		l = applogger.Nop()
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &LivePublisher{
		pa:        pa,
		hub:       hub,
		locks:     locks,
		pairs:     pairs,
		timeframe: timeframe,
		window:    window,
		lookback:  lookback,
		interval:  interval,
		now:       time.Now,
		log:       l.With(applogger.String("component", "live_publisher")),
	}
}

// Run publishes every pair on its own ticker until ctx is done.
func (p *LivePublisher) Run(ctx context.Context) error {
	p.log.Info("live publisher started", applogger.Int("pairs", len(p.pairs)), applogger.Duration("interval", p.interval))
	g, gctx := errgroup.WithContext(ctx)
	for _, pair := range p.pairs {
		pair := pair
		g.Go(func() error {
			ticker := time.NewTicker(p.interval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					p.PublishOnce(gctx, pair)
				}
			}
		})
	}
	err := g.Wait()
	p.log.Info("live publisher stopped")
	return err
}

// PublishOnce analyses one pair and broadcasts analytics and triggered alerts.
// Failures are logged; pairs without data are skipped.
func (p *LivePublisher) PublishOnce(ctx context.Context, pair LivePair) {
	lockKey := cache.Key("live", pair.SymbolX, pair.SymbolY)
	ok, err := p.locks.TryLock(ctx, lockKey, p.interval*9/10)
	if err != nil {
		p.log.Warn("live lock failed", applogger.String("pair", lockKey), applogger.Error(err))
		return
	}
	if !ok {
		return
	}

	now := p.now().UTC()
	q := PairQuery{
		SymbolX:   pair.SymbolX,
		SymbolY:   pair.SymbolY,
		Timeframe: p.timeframe,
		From:      now.Add(-p.lookback),
		To:        now,
	}.normalized()
	res, err := p.pa.analyze(ctx, q, p.window, false)
	if err != nil {
		if !errors.Is(err, ErrNoData) && !errors.Is(err, analytics.ErrNoOverlap) {
			p.log.Warn("live analysis failed",
				applogger.String("symbol_x", q.SymbolX),
				applogger.String("symbol_y", q.SymbolY),
				applogger.Error(err))
		}
		return
	}
	p.pa.raiseAlerts(res)
	p.hub.Broadcast(models.LiveMessage{Type: models.MessageAnalytics, Payload: res})
}
