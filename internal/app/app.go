// Package app wires configuration into the store, venue adapters, engine and
// HTTP surface, and runs them under one lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"exeq/internal/config"
	"exeq/internal/engine"
	binancegw "exeq/internal/gateway/binance"
	gategw "exeq/internal/gateway/gate"
	"exeq/internal/gateway/notifier"
	"exeq/internal/gateway/venue"
	"exeq/internal/logger"
	"exeq/internal/store/auditlog"
	"exeq/internal/store/gormstore"
	livehttp "exeq/internal/transport/http/live"

	"golang.org/x/sync/errgroup"
)

// App owns the process-level components. Adapters are constructed once here
// and injected into the engine's entry points; nothing hangs off package
// globals.
type App struct {
	cfg      *config.Config
	store    *gormstore.GormStore
	audit    *auditlog.Store
	engine   *engine.Engine
	adapters []venue.Adapter
	httpSrv  *livehttp.Server
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	st, err := gormstore.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening order store failed: %w", err)
	}

	adapters := buildAdapters(cfg)
	if len(adapters) == 0 {
		st.Close()
		return nil, fmt.Errorf("no venue enabled")
	}

	opts := []engine.Option{
		engine.WithTradeLookback(cfg.Reconcile.TradeLookback()),
		engine.WithRequestTimeout(cfg.Reconcile.RequestTimeout()),
	}
	var audit *auditlog.Store
	if path := cfg.Database.AuditPath; path != "" {
		audit, err = auditlog.Open(path)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("opening audit log failed: %w", err)
		}
		opts = append(opts, engine.WithAudit(audit))
	}
	eng := engine.New(st, buildAlerts(cfg), opts...)

	a := &App{cfg: cfg, store: st, audit: audit, engine: eng, adapters: adapters}
	srv, err := livehttp.NewServer(livehttp.ServerConfig{Addr: cfg.App.HTTPAddr, Trigger: a})
	if err != nil {
		st.Close()
		audit.Close()
		return nil, err
	}
	a.httpSrv = srv
	return a, nil
}

func buildAdapters(cfg *config.Config) []venue.Adapter {
	var out []venue.Adapter
	timeout := cfg.Reconcile.RequestTimeout()
	if vc := cfg.Venues.Binance; vc.Enabled {
		out = append(out, binancegw.New(binancegw.Config{
			APIKey:      vc.APIKey,
			APISecret:   vc.APISecret,
			HTTPTimeout: timeout,
			Spec: venue.Spec{
				MarketCode:    vc.MarketCode,
				QuoteCurrency: vc.QuoteCurrency,
			},
		}))
	}
	if vc := cfg.Venues.Gate; vc.Enabled {
		out = append(out, gategw.New(gategw.Config{
			APIKey:      vc.APIKey,
			APISecret:   vc.APISecret,
			HTTPTimeout: timeout,
			Spec: venue.Spec{
				MarketCode:    vc.MarketCode,
				QuoteCurrency: vc.QuoteCurrency,
			},
		}))
	}
	return out
}

func buildAlerts(cfg *config.Config) notifier.AlertSink {
	var backends []notifier.TextNotifier
	if tg := cfg.Notify.Telegram; tg.Enabled {
		backends = append(backends, notifier.NewTelegram(tg.BotToken, tg.ChatID))
	}
	if m := cfg.Notify.Mail; m.Enabled {
		backends = append(backends, notifier.NewMail(m.Host, m.Port, m.Username, m.Password, m.From, m.Recipients))
	}
	return notifier.NewMulti(backends...)
}

// ExecuteOrders runs the execution pipeline once across all venues.
func (a *App) ExecuteOrders(ctx context.Context) []engine.VenueResult {
	return a.engine.ExecuteAll(ctx, a.adapters)
}

// ReconcileOrders runs poll-mode reconciliation once across all venues.
func (a *App) ReconcileOrders(ctx context.Context) []engine.VenueResult {
	return a.engine.ReconcileAll(ctx, a.adapters)
}

// Run serves HTTP and keeps one push-reconciliation watcher per venue until
// ctx is canceled. A stalled watcher can be canceled without affecting the
// others: each runs in its own goroutine on the shared context.
func (a *App) Run(ctx context.Context) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	for _, ad := range a.adapters {
		ad := ad
		group.Go(func() error {
			err := a.engine.WatchVenue(ctx, ad)
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}

	if interval := a.cfg.Reconcile.PollInterval(); interval > 0 {
		group.Go(func() error {
			a.pollLoop(ctx, interval)
			return nil
		})
	}

	logger.Infof("exeq running (env=%s, venues=%d, http=%s)", a.cfg.App.Env, len(a.adapters), a.httpSrv.Addr())
	err := group.Wait()
	a.store.Close()
	a.audit.Close()
	return err
}

func (a *App) pollLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			results := a.engine.ReconcileAll(ctx, a.adapters)
			if !engine.AllOK(results) {
				logger.Warnf("app: scheduled reconciliation finished with failures: %+v", results)
			}
		}
	}
}
