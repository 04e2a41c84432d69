package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env     string `yaml:"app_env"`
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// NotifyToken protege POST /v1/notify con Bearer; vacío = abierto.
		NotifyToken string `yaml:"notify_token"`
		// TrustProxy: respetar X-Forwarded-Proto/Host (sólo detrás de un proxy propio).
		TrustProxy bool `yaml:"trust_proxy"`
	} `yaml:"server"`

	// KeyStore: dónde vive la única clave HMAC del proceso.
	KeyStore struct {
		Driver string `yaml:"driver"` // memory | redis | postgres | fs
		Name   string `yaml:"name"`   // nombre lógico de la clave (default hmac_key)
		Path   string `yaml:"path"`   // sólo fs
	} `yaml:"keystore"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	Challenge struct {
		Validity        time.Duration `yaml:"validity"`
		ResponseBaseURL string        `yaml:"response_base_url"`
	} `yaml:"challenge"`

	Allowlist struct {
		Driver          string   `yaml:"driver"` // memory | redis
		InternalDomains []string `yaml:"internal_domains"`
		Emails          []string `yaml:"emails"`
	} `yaml:"allowlist"`

	Directory struct {
		Driver    string        `yaml:"driver"` // zerotier | memory
		BaseURL   string        `yaml:"base_url"`
		NetworkID string        `yaml:"network_id"`
		APIToken  string        `yaml:"api_token"`
		Timeout   time.Duration `yaml:"timeout"`
	} `yaml:"directory"`

	Reconcile struct {
		ProbeInterval   time.Duration `yaml:"probe_interval"`
		ProbeDeadline   time.Duration `yaml:"probe_deadline"`
		ProbeTimeout    time.Duration `yaml:"probe_timeout"`
		CleanupAttempts int           `yaml:"cleanup_attempts"`
		CleanupInterval time.Duration `yaml:"cleanup_interval"`
	} `yaml:"reconcile"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"`
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Email struct {
		Driver       string `yaml:"driver"` // smtp | log
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"email"`

	Rate struct {
		Enabled bool          `yaml:"enabled"`
		Driver  string        `yaml:"driver"` // memory | redis
		Limit   int           `yaml:"limit"`
		Window  time.Duration `yaml:"window"`
	} `yaml:"rate"`
}

// Load lee el YAML en path (si existe), aplica overrides de entorno y defaults.
// path vacío o inexistente no es error: se arranca sólo con env + defaults.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.Name == "" {
		c.App.Name = "holoauth"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.KeyStore.Driver == "" {
		c.KeyStore.Driver = "memory"
	}
	if c.KeyStore.Name == "" {
		c.KeyStore.Name = "hmac_key"
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "holoauth"
	}
	if c.Challenge.Validity == 0 {
		c.Challenge.Validity = 7 * 24 * time.Hour
	}
	if c.Allowlist.Driver == "" {
		c.Allowlist.Driver = "memory"
	}
	if len(c.Allowlist.InternalDomains) == 0 {
		c.Allowlist.InternalDomains = []string{"holo.host"}
	}
	if c.Directory.Driver == "" {
		c.Directory.Driver = "zerotier"
	}
	if c.Directory.BaseURL == "" {
		c.Directory.BaseURL = "https://my.zerotier.com/api"
	}
	if c.Directory.Timeout == 0 {
		c.Directory.Timeout = 15 * time.Second
	}
	if c.Reconcile.ProbeInterval == 0 {
		c.Reconcile.ProbeInterval = 5 * time.Second
	}
	if c.Reconcile.ProbeDeadline == 0 {
		c.Reconcile.ProbeDeadline = 30 * time.Minute
	}
	if c.Reconcile.ProbeTimeout == 0 {
		c.Reconcile.ProbeTimeout = 10 * time.Second
	}
	if c.Reconcile.CleanupAttempts == 0 {
		c.Reconcile.CleanupAttempts = 3
	}
	if c.Reconcile.CleanupInterval == 0 {
		c.Reconcile.CleanupInterval = 2 * time.Second
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.SMTP.TLS == "" {
		c.SMTP.TLS = "auto"
	}
	if c.SMTP.From == "" {
		c.SMTP.From = "Holo <no-reply@holo.host>"
	}
	if c.Email.Driver == "" {
		if c.SMTP.Host != "" {
			c.Email.Driver = "smtp"
		} else {
			c.Email.Driver = "log"
		}
	}
	if c.Rate.Driver == "" {
		c.Rate.Driver = "memory"
	}
	if c.Rate.Limit == 0 {
		c.Rate.Limit = 10
	}
	if c.Rate.Window == 0 {
		c.Rate.Window = time.Minute
	}
}

// applyEnv pisa valores del YAML con variables de entorno (prioridad env > yaml).
func (c *Config) applyEnv() {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	num := func(dst *int, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	flag := func(dst *bool, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str(&c.App.Env, "APP_ENV")
	str(&c.Log.Level, "LOG_LEVEL")
	str(&c.Server.Addr, "SERVER_ADDR")
	str(&c.Server.NotifyToken, "NOTIFY_TOKEN")
	flag(&c.Server.TrustProxy, "TRUST_PROXY")

	str(&c.KeyStore.Driver, "KEYSTORE_DRIVER")
	str(&c.KeyStore.Path, "KEYSTORE_PATH")

	str(&c.Redis.Addr, "REDIS_ADDR")
	str(&c.Redis.Password, "REDIS_PASSWORD")
	num(&c.Redis.DB, "REDIS_DB")
	str(&c.Postgres.DSN, "DATABASE_URL", "POSTGRES_DSN")

	dur(&c.Challenge.Validity, "CHALLENGE_VALIDITY")
	str(&c.Challenge.ResponseBaseURL, "RESPONSE_BASE_URL")

	str(&c.Directory.Driver, "DIRECTORY_DRIVER")
	str(&c.Directory.BaseURL, "ZEROTIER_API_URL")
	str(&c.Directory.NetworkID, "ZEROTIER_NETWORK_ID")
	str(&c.Directory.APIToken, "ZEROTIER_CENTRAL_API_TOKEN")

	dur(&c.Reconcile.ProbeInterval, "PROBE_INTERVAL")
	dur(&c.Reconcile.ProbeDeadline, "PROBE_DEADLINE")

	str(&c.SMTP.Host, "SMTP_HOST")
	num(&c.SMTP.Port, "SMTP_PORT")
	str(&c.SMTP.Username, "SMTP_USER")
	str(&c.SMTP.Password, "SMTP_PASS")
	str(&c.SMTP.From, "SMTP_FROM")
	str(&c.SMTP.TLS, "SMTP_TLS")
	str(&c.Email.Driver, "EMAIL_DRIVER")
	str(&c.Email.TemplatesDir, "EMAIL_TEMPLATES_DIR")

	flag(&c.Rate.Enabled, "RATE_ENABLED")
	str(&c.Rate.Driver, "RATE_DRIVER")
}

// Validate chequea combinaciones que harían fallar el arranque más tarde.
func (c *Config) Validate() error {
	switch c.KeyStore.Driver {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("config: keystore.driver=redis requiere redis.addr")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("config: keystore.driver=postgres requiere postgres.dsn")
		}
	case "fs":
		if c.KeyStore.Path == "" {
			return errors.New("config: keystore.driver=fs requiere keystore.path")
		}
	default:
		return fmt.Errorf("config: keystore.driver desconocido %q", c.KeyStore.Driver)
	}

	if c.Directory.Driver == "zerotier" {
		if c.Directory.NetworkID == "" || c.Directory.APIToken == "" {
			return errors.New("config: directory.driver=zerotier requiere network_id y api_token")
		}
	} else if c.Directory.Driver != "memory" {
		return fmt.Errorf("config: directory.driver desconocido %q", c.Directory.Driver)
	}

	if (c.Allowlist.Driver == "redis" || c.Rate.Driver == "redis") && c.Redis.Addr == "" {
		return errors.New("config: driver redis requiere redis.addr")
	}
	if c.Email.Driver == "smtp" && c.SMTP.Host == "" {
		return errors.New("config: email.driver=smtp requiere smtp.host")
	}
	if strings.EqualFold(c.App.Env, "prod") {
		if c.Challenge.ResponseBaseURL == "" {
			return errors.New("config: app.env=prod requiere challenge.response_base_url")
		}
		if c.Server.NotifyToken == "" {
			return errors.New("config: app.env=prod requiere server.notify_token")
		}
	}
	if c.Reconcile.ProbeInterval > c.Reconcile.ProbeDeadline {
		return errors.New("config: reconcile.probe_interval mayor que probe_deadline")
	}
	return nil
}
