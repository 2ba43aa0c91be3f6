package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ladderplan/ladderd/internal/server"
	"github.com/ladderplan/ladderd/internal/server/handler"
	"github.com/ladderplan/ladderd/internal/server/ws"
	"github.com/ladderplan/ladderd/internal/service"
)

// components bundles the service layer built on top of the wired
// dependencies.
type components struct {
	prices   *service.PriceService
	planners *service.PlannerService
	trades   *service.TradeService
	alerts   *service.AlertService
	archive  *service.ArchiveService
}

func (a *App) buildComponents(deps *Dependencies) *components {
	logger := slog.Default()

	prices := service.NewPriceService(
		deps.Consensus,
		deps.PriceCache,
		deps.SignalBus,
		a.cfg.Pricing.FreshFor.Duration,
		logger,
	)
	planners := service.NewPlannerService(
		deps.PlannerStore,
		deps.LevelStore,
		deps.TradeStore,
		deps.AuditStore,
		prices,
		deps.SignalBus,
		logger,
	)
	trades := service.NewTradeService(
		deps.PlannerStore,
		deps.TradeStore,
		deps.AuditStore,
		deps.SignalBus,
		logger,
	)
	alerts := service.NewAlertService(
		deps.PlannerStore,
		deps.LevelStore,
		deps.TradeStore,
		prices,
		deps.LockManager,
		deps.SignalBus,
		deps.Notifier,
		a.cfg.Alerts.CheckInterval.Duration,
		a.cfg.Alerts.Cooldown.Duration,
		logger,
	)
	archive := service.NewArchiveService(
		deps.Archiver,
		a.cfg.Archive.Interval.Duration,
		time.Duration(a.cfg.Archive.RetentionDays)*24*time.Hour,
		logger,
	)

	return &components{
		prices:   prices,
		planners: planners,
		trades:   trades,
		alerts:   alerts,
		archive:  archive,
	}
}

// runServer starts the HTTP server and shuts it down when the group context
// is cancelled.
func (a *App) runServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *components) {
	hub := ws.NewHub(deps.SignalBus, slog.Default())
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Pingers, slog.Default()),
		Planners: handler.NewPlannerHandler(c.planners, slog.Default()),
		Trades:   handler.NewTradeHandler(c.trades, slog.Default()),
		Prices:   handler.NewPriceHandler(c.prices, slog.Default()),
		Audit:    handler.NewAuditHandler(deps.AuditStore, slog.Default()),
		Archives: handler.NewArchiveHandler(deps.BlobReader, slog.Default()),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKeyHash:  a.cfg.Server.APIKeyHash,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, slog.Default())

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// runAlerts starts the alert sweep loop.
func (a *App) runAlerts(ctx context.Context, g *errgroup.Group, c *components) {
	g.Go(func() error {
		err := c.alerts.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// runArchive starts the cold-storage sweep loop.
func (a *App) runArchive(ctx context.Context, g *errgroup.Group, c *components) {
	g.Go(func() error {
		err := c.archive.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

// ServeMode runs the HTTP/WebSocket API only. Alerts and archival are left
// to a separate instance in this mode.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	if !a.cfg.Server.Enabled {
		return fmt.Errorf("app: serve mode requires server.enabled")
	}

	a.logger.InfoContext(ctx, "entering serve mode")
	c := a.buildComponents(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.runServer(ctx, g, deps, c)
	return g.Wait()
}

// AlertMode runs the alert sweep and archival loops without the API server.
func (a *App) AlertMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering alert mode")
	c := a.buildComponents(deps)

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Alerts.Enabled {
		a.runAlerts(ctx, g, c)
	}
	if a.cfg.Archive.Enabled {
		a.runArchive(ctx, g, c)
	}
	return g.Wait()
}

// FullMode runs everything in one process: API server, alert sweeps and
// archival.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "entering full mode")
	c := a.buildComponents(deps)

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.runServer(ctx, g, deps, c)
	}
	if a.cfg.Alerts.Enabled {
		a.runAlerts(ctx, g, c)
	}
	if a.cfg.Archive.Enabled {
		a.runArchive(ctx, g, c)
	}
	return g.Wait()
}
