package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PQAnalyzer/internal/domain/repository"
	"PQAnalyzer/internal/service/ratelimit"
	"PQAnalyzer/internal/usecase"
	"PQAnalyzer/pkg/cache"
	pkgch "PQAnalyzer/pkg/clickhouse"
	"PQAnalyzer/pkg/config"
	xhttp "PQAnalyzer/pkg/http"
	pkgkafka "PQAnalyzer/pkg/kafka"
	applogger "PQAnalyzer/pkg/logger"
)

const limiterIdle = 10 * time.Minute

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	acq        *usecase.Acquisition
	store      repository.RunStore
	cache      cache.Service

	limiter  *ratelimit.Limiter
	chClient *pkgch.Client
	producer *pkgkafka.Producer
	consumer *pkgkafka.Consumer
	kh       pkgkafka.MessageHandler
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	acq *usecase.Acquisition,
	store repository.RunStore,
	c cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		l:          l,
		httpServer: httpServer,
		acq:        acq,
		store:      store,
		cache:      c,
	}
}

func (a *App) SetRateLimiter(rl *ratelimit.Limiter) { a.limiter = rl }

func (a *App) SetClickHouse(ch *pkgch.Client) { a.chClient = ch }

// SetKafka hands over the producer used by the sample pipeline and the optional consumer.
func (a *App) SetKafka(p *pkgkafka.Producer, c *pkgkafka.Consumer) {
	a.producer = p
	a.consumer = c
}

func (a *App) SetMessageHandler(h pkgkafka.MessageHandler) { a.kh = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.l.Error("kafka consumer start", applogger.Error(err))
			return err
		}
		a.l.Info("warehouse consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.l.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(limiterIdle); n > 0 {
				a.l.Debug("rate limiter swept", applogger.Int("clients", n))
			}
		}
	}
}

// Shutdown stops intake first, then the stores the running pieces write to.
func (a *App) Shutdown(ctx context.Context) error {
	a.l.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.l.Error("http shutdown error", applogger.Error(err))
	}

	// Saves a running acquisition and flushes its publish pipeline.
	if err := a.acq.Shutdown(ctx); err != nil {
		a.l.Warn("acquisition shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.l.Warn("run store close error", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.l.Warn("cache close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
	return nil
}
