package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/holoauth/internal/config"
	"github.com/dropDatabas3/holoauth/internal/http/server"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func printConfigSummary(c *config.Config) {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	fmt.Printf(`app.env=%s log.level=%s
server.addr=%s notify_token=%s trust_proxy=%t
keystore.driver=%s keystore.name=%s
directory.driver=%s directory.network_id=%s directory.api_token=%s
challenge.validity=%s challenge.response_base_url=%s
allowlist.driver=%s internal_domains=%v
reconcile.probe_interval=%s reconcile.probe_deadline=%s
email.driver=%s smtp.host=%s:%d
rate.enabled=%t rate.driver=%s rate.limit=%d/%s
`,
		c.App.Env, c.Log.Level,
		c.Server.Addr, mask(c.Server.NotifyToken), c.Server.TrustProxy,
		c.KeyStore.Driver, c.KeyStore.Name,
		c.Directory.Driver, c.Directory.NetworkID, mask(c.Directory.APIToken),
		c.Challenge.Validity, c.Challenge.ResponseBaseURL,
		c.Allowlist.Driver, c.Allowlist.InternalDomains,
		c.Reconcile.ProbeInterval, c.Reconcile.ProbeDeadline,
		c.Email.Driver, c.SMTP.Host, c.SMTP.Port,
		c.Rate.Enabled, c.Rate.Driver, c.Rate.Limit, c.Rate.Window,
	)
}

func main() {
	var (
		flagConfigPath = flag.String("config", "", "ruta a config.yaml (fallback: $CONFIG_PATH o configs/config.yaml)")
		flagEnvFile    = flag.String("env-file", ".env", "ruta a .env (si existe, se carga)")
		flagPrint      = flag.Bool("print-config", false, "imprime config efectiva y termina")
	)
	flag.Parse()

	if *flagEnvFile != "" && fileExists(*flagEnvFile) {
		_ = godotenv.Load(*flagEnvFile)
	}

	cfgPath := *flagConfigPath
	if cfgPath == "" {
		cfgPath = os.Getenv("CONFIG_PATH")
	}
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *flagPrint {
		printConfigSummary(cfg)
		return
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg, server.Options{})
	if err != nil {
		log.Fatal("wiring failed", logger.Err(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("service up",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("directory", cfg.Directory.Driver),
			logger.String("keystore", cfg.KeyStore.Driver),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", logger.Err(err))
		}
	case <-ctx.Done():
		log.Info("shutdown requested")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", logger.Err(err))
	}
	// Las reconciliaciones que no terminen a tiempo se cancelan (sin notificar).
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Warn("reconciliations canceled on shutdown", logger.Err(err))
	}
	log.Info("service stopped")
}
