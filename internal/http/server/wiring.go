// Package server arma el handler HTTP con todas sus dependencias.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/holoauth/internal/audit"
	"github.com/dropDatabas3/holoauth/internal/bootstrap"
	"github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/config"
	challengectrl "github.com/dropDatabas3/holoauth/internal/http/controllers/challenge"
	healthctrl "github.com/dropDatabas3/holoauth/internal/http/controllers/health"
	notifyctrl "github.com/dropDatabas3/holoauth/internal/http/controllers/notify"
	mw "github.com/dropDatabas3/holoauth/internal/http/middlewares"
	"github.com/dropDatabas3/holoauth/internal/http/router"
	healthsvc "github.com/dropDatabas3/holoauth/internal/http/services/health"
	"github.com/dropDatabas3/holoauth/internal/metrics"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

// App es el resultado del wiring. Shutdown drena reconciliaciones y cierra
// conexiones; el http.Server lo maneja el caller.
type App struct {
	Handler    http.Handler
	Dispatcher *reconcile.Dispatcher

	resources *bootstrap.Resources
}

// Options permite inyectar piezas en tests.
type Options struct {
	Registry  *prometheus.Registry
	Directory bootstrap.Directory
}

// Build construye el grafo completo desde la config.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := logger.L().With(logger.Component("wiring"))

	res, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	fail := func(err error) (*App, error) {
		res.Close()
		return nil, err
	}

	// 1. Clave y codec
	ks, err := res.KeyStore(ctx)
	if err != nil {
		return fail(err)
	}
	codec, key, err := bootstrap.Codec(ctx, ks)
	if err != nil {
		return fail(err)
	}
	log.Info("hmac key ready", logger.String("fingerprint", key.Fingerprint()), logger.String("driver", cfg.KeyStore.Driver))

	// 2. Allowlist y notificador
	allow, err := res.Allowlist(ctx)
	if err != nil {
		return fail(err)
	}
	notifier, templates, err := res.Notifier(allow.IsInternal)
	if err != nil {
		return fail(err)
	}

	// 3. Challenge + reconciliación
	issuer := challenge.NewIssuer(codec, cfg.Challenge.Validity)
	challengeSvc := challenge.NewService(issuer, allow, notifier, cfg.Challenge.ResponseBaseURL)

	dir := opts.Directory
	if dir == nil {
		dir = res.Directory()
	}
	rec := reconcile.New(
		challenge.NewRedeemer(codec),
		dir,
		reconcile.NewHTTPProbe(cfg.Reconcile.ProbeTimeout),
		notifier,
		reconcile.Config{
			ProbeInterval:   cfg.Reconcile.ProbeInterval,
			ProbeDeadline:   cfg.Reconcile.ProbeDeadline,
			CleanupAttempts: cfg.Reconcile.CleanupAttempts,
			CleanupInterval: cfg.Reconcile.CleanupInterval,
		},
	)
	dispatcher := reconcile.NewDispatcher(rec, reconcile.WithOnDone(func(runID string, r reconcile.Result) {
		audit.Reconciliation(context.Background(), runID, r)
	}))

	// 4. Métricas
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if opts.Registry != nil {
		reg, gatherer = opts.Registry, opts.Registry
	}
	if err := metrics.Register(reg); err != nil {
		return fail(fmt.Errorf("wiring: metrics: %w", err))
	}
	if err := mw.RegisterMetrics(reg); err != nil {
		return fail(fmt.Errorf("wiring: http metrics: %w", err))
	}

	// 5. Health
	health := healthsvc.NewHealthService(healthsvc.Deps{
		Version:        cfg.App.Version,
		Keys:           ks,
		DirectoryCheck: dir.Ping,
		RedisCheck:     res.RedisCheck(),
		DBCheck:        res.DBCheck(),
		Inflight:       dispatcher.Inflight,
	})

	handler := router.New(router.Deps{
		Challenge:   challengectrl.NewChallengeController(challengeSvc, cfg.Server.TrustProxy),
		Redeem:      challengectrl.NewRedeemController(rec, dispatcher),
		Notify:      notifyctrl.NewNotifyController(notifier, templates.Has, cfg.Server.NotifyToken),
		Health:      healthctrl.NewHealthController(health),
		Metrics:     promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		RateLimiter: res.RateLimiter(),
	})

	return &App{Handler: handler, Dispatcher: dispatcher, resources: res}, nil
}

// Shutdown espera las reconciliaciones en curso (o las cancela al vencer ctx)
// y cierra conexiones.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Dispatcher.Shutdown(ctx)
	a.resources.Close()
	return err
}
