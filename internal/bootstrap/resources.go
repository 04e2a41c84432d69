// Package bootstrap construye las dependencias externas a partir de la config.
// Lo usan el server y la CLI.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/holoauth/internal/allowlist"
	"github.com/dropDatabas3/holoauth/internal/config"
	"github.com/dropDatabas3/holoauth/internal/directory"
	"github.com/dropDatabas3/holoauth/internal/notify"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/rate"
	"github.com/dropDatabas3/holoauth/internal/security/keystore"
	"github.com/dropDatabas3/holoauth/internal/security/signer"
)

// Resources agrupa conexiones compartidas. Close las libera en orden inverso.
type Resources struct {
	cfg   *config.Config
	Redis *rdb.Client
	PG    *pgxpool.Pool

	closers []func()
}

func usesRedis(c *config.Config) bool {
	return c.KeyStore.Driver == "redis" ||
		c.Allowlist.Driver == "redis" ||
		(c.Rate.Enabled && c.Rate.Driver == "redis")
}

// Open conecta sólo los backends que la config usa.
func Open(ctx context.Context, cfg *config.Config) (*Resources, error) {
	r := &Resources{cfg: cfg}
	log := logger.L().With(logger.Component("bootstrap"))

	if usesRedis(cfg) {
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("bootstrap: redis ping %s: %w", cfg.Redis.Addr, err)
		}
		r.Redis = client
		r.closers = append(r.closers, func() { _ = client.Close() })
		log.Info("redis connected", logger.String("addr", cfg.Redis.Addr))
	}

	if cfg.KeyStore.Driver == "postgres" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("bootstrap: postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			r.Close()
			return nil, fmt.Errorf("bootstrap: postgres ping: %w", err)
		}
		r.PG = pool
		r.closers = append(r.closers, pool.Close)
		log.Info("postgres connected")
	}
	return r, nil
}

func (r *Resources) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
}

// RedisCheck / DBCheck son los checks de readiness; nil si el backend no se usa.
func (r *Resources) RedisCheck() func(context.Context) error {
	if r.Redis == nil {
		return nil
	}
	return func(ctx context.Context) error { return r.Redis.Ping(ctx).Err() }
}

func (r *Resources) DBCheck() func(context.Context) error {
	if r.PG == nil {
		return nil
	}
	return r.PG.Ping
}

// KeyStore arma el Store sobre el backend configurado.
func (r *Resources) KeyStore(ctx context.Context) (*keystore.Store, error) {
	var (
		b   keystore.Backend
		err error
	)
	switch r.cfg.KeyStore.Driver {
	case "memory":
		b = keystore.NewMemory()
	case "redis":
		b = keystore.NewRedis(r.Redis, r.cfg.Redis.Prefix)
	case "postgres":
		b, err = keystore.NewPostgres(ctx, r.PG)
	case "fs":
		b, err = keystore.NewFS(r.cfg.KeyStore.Path)
	default:
		err = fmt.Errorf("unknown driver %q", r.cfg.KeyStore.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("bootstrap: keystore: %w", err)
	}
	return keystore.New(b, keystore.WithName(r.cfg.KeyStore.Name)), nil
}

// Codec materializa la clave (create-if-absent) y devuelve el signer.
func Codec(ctx context.Context, ks *keystore.Store) (*signer.Codec, keystore.Key, error) {
	key, err := ks.GetOrCreate(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: key: %w", err)
	}
	codec, err := signer.New(key)
	if err != nil {
		return nil, nil, err
	}
	return codec, key, nil
}

// Directory es el cliente de membresía más su check de readiness.
type Directory interface {
	directory.Client
	Ping(ctx context.Context) error
}

func (r *Resources) Directory() Directory {
	d := r.cfg.Directory
	if d.Driver == "memory" {
		return directory.NewMemory()
	}
	return directory.NewZeroTier(d.BaseURL, d.NetworkID, d.APIToken, d.Timeout)
}

// AllowlistStore devuelve el set explícito de emails configurado.
func (r *Resources) AllowlistStore() allowlist.Store {
	if r.cfg.Allowlist.Driver == "redis" {
		return allowlist.NewRedis(r.Redis, r.cfg.Redis.Prefix)
	}
	return allowlist.NewMemory()
}

// Allowlist arma la lista y siembra los emails de la config.
func (r *Resources) Allowlist(ctx context.Context) (*allowlist.List, error) {
	store := r.AllowlistStore()
	if len(r.cfg.Allowlist.Emails) > 0 {
		if err := store.Add(ctx, r.cfg.Allowlist.Emails...); err != nil {
			return nil, fmt.Errorf("bootstrap: allowlist seed: %w", err)
		}
	}
	return allowlist.New(r.cfg.Allowlist.InternalDomains, store), nil
}

// Notifier arma templates, sender y notifier.
func (r *Resources) Notifier(isInternal func(string) bool) (*notify.Notifier, *notify.Templates, error) {
	tpl, err := notify.LoadTemplates(r.cfg.Email.TemplatesDir)
	if err != nil {
		return nil, nil, err
	}

	var sender notify.Sender
	switch strings.ToLower(r.cfg.Email.Driver) {
	case "smtp":
		s := r.cfg.SMTP
		smtp := notify.NewSMTPSender(s.Host, s.Port, s.From, s.Username, s.Password, tpl)
		smtp.TLSMode = s.TLS
		smtp.InsecureSkipVerify = s.InsecureSkipVerify
		sender = smtp
	default:
		sender = notify.NewLogSender(tpl)
	}
	return notify.New(sender, isInternal), tpl, nil
}

// RateLimiter devuelve nil si el rate limiting está apagado.
func (r *Resources) RateLimiter() rate.Limiter {
	c := r.cfg.Rate
	if !c.Enabled {
		return nil
	}
	if c.Driver == "redis" {
		return rate.NewRedisLimiter(r.Redis, r.cfg.Redis.Prefix+":rl:", c.Limit, c.Window)
	}
	return rate.NewMemoryLimiter(c.Limit, c.Window)
}
