package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"PairLab/internal/handler/ws"
	mid "PairLab/internal/middleware"
	"PairLab/internal/service/ratelimit"
	"PairLab/internal/usecase"
	"PairLab/pkg/config"
	xhttp "PairLab/pkg/http"
	pkgkafka "PairLab/pkg/kafka"
	applogger "PairLab/pkg/logger"
)

// limiterIdle is how long a client key may stay idle before the limiter forgets it.
const limiterIdle = 10 * time.Minute

// Resource is closed once every component has stopped, in registration order.
type Resource struct {
	Name  string
	Close func() error
}

// App encapsulates the application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	http      *xhttp.Server
	hub       *ws.Hub
	buffer    *mid.TickBuffer
	consumer  *pkgkafka.Consumer
	collector *usecase.TickCollector
	live      *usecase.LivePublisher
	limiter   *ratelimit.Limiter
	resources []Resource
}

// Components holds the optional long-running parts. Nil fields are skipped.
type Components struct {
	Consumer  *pkgkafka.Consumer
	Collector *usecase.TickCollector
	Live      *usecase.LivePublisher
	Limiter   *ratelimit.Limiter
}

// New creates an App. resources are closed on shutdown after all components stop.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	hub *ws.Hub,
	buffer *mid.TickBuffer,
	comps Components,
	resources ...Resource,
) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:       cfg,
		log:       l.With(applogger.String("component", "app")),
		http:      httpServer,
		hub:       hub,
		buffer:    buffer,
		consumer:  comps.Consumer,
		collector: comps.Collector,
		live:      comps.Live,
		limiter:   comps.Limiter,
		resources: resources,
	}
}

// Run starts every component and blocks until ctx is cancelled, SIGINT/SIGTERM
// arrives or a component fails. It then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// The buffer outlives gctx so the final drain is not cancelled.
	a.buffer.Start(context.WithoutCancel(ctx))
	g.Go(func() error {
		a.hub.Run(gctx)
		return nil
	})

	if a.consumer != nil {
		if err := a.consumer.Start(gctx); err != nil {
			return a.abort(fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if a.collector != nil {
		if err := a.collector.Start(gctx); err != nil {
			return a.abort(fmt.Errorf("tick collector: %w", err))
		}
		a.log.Info("exchange stream connected", applogger.Strings("symbols", a.cfg.Ingest.Binance.Symbols))
	}
	if a.live != nil {
		g.Go(func() error { return a.live.Run(gctx) })
	}
	if a.limiter != nil {
		g.Go(func() error {
			a.pruneLimiter(gctx)
			return nil
		})
	}

	g.Go(a.http.ListenAndServe)
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutdown signal received")
		return a.shutdown()
	})

	a.log.Info("pairlab started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("backend", a.cfg.Backend.Type),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("live", a.live != nil),
		applogger.Bool("collector", a.collector != nil))
	return g.Wait()
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Prune(limiterIdle); n > 0 {
				a.log.Debug("rate limiter pruned", applogger.Int("keys", n))
			}
		}
	}
}

// abort stops what was already started when startup fails.
func (a *App) abort(err error) error {
	a.log.Error("startup failed", applogger.Error(err))
	return errors.Join(err, a.shutdown())
}

// shutdown stops inbound traffic first, then drains the buffer and closes resources.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.http.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer stop: %w", err))
		}
	}
	if err := a.buffer.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	for _, r := range a.resources {
		if err := r.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", r.Name), applogger.Error(err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Error("shutdown finished with errors", applogger.Error(err))
		return err
	}
	a.log.Info("shutdown complete")
	return nil
}
