// Package health contiene el service de readiness.
package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/holoauth/internal/http/dto/health"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/security/keystore"
	"github.com/dropDatabas3/holoauth/internal/security/signer"
)

type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
}

// KeySource es el key store visto desde health.
type KeySource interface {
	GetOrCreate(ctx context.Context) (keystore.Key, error)
}

// Deps: los checks nil se reportan como disabled.
type Deps struct {
	Version        string
	Keys           KeySource
	DirectoryCheck func(ctx context.Context) error
	RedisCheck     func(ctx context.Context) error
	DBCheck        func(ctx context.Context) error
	Inflight       func() int
	Timeout        time.Duration
}

type healthService struct {
	deps Deps
}

func NewHealthService(deps Deps) HealthService {
	if deps.Timeout <= 0 {
		deps.Timeout = 3 * time.Second
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

// Check: key store y directorio son críticos (sin ellos no se puede redimir
// ni reconciliar); redis y postgres degradan.
func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)
	ctx, cancel := context.WithTimeout(ctx, s.deps.Timeout)
	defer cancel()

	resp := dto.HealthResponse{
		Version:    s.deps.Version,
		Components: make(map[string]dto.HealthStatus),
		Timestamp:  time.Now().UTC(),
	}
	critical, degraded := false, false

	if s.deps.Keys == nil {
		resp.Components["keystore"] = dto.HealthStatus{Status: "error", Message: "not initialized"}
		critical = true
	} else if kid, err := s.checkKeystore(ctx); err != nil {
		resp.Components["keystore"] = dto.HealthStatus{Status: "error", Message: err.Error()}
		critical = true
		log.Error("keystore check failed", logger.Err(err))
	} else {
		resp.KeyID = kid
		resp.Components["keystore"] = dto.HealthStatus{Status: "ok"}
	}

	check := func(name string, fn func(context.Context) error, isCritical bool) {
		if fn == nil {
			resp.Components[name] = dto.HealthStatus{Status: "disabled"}
			return
		}
		if err := fn(ctx); err != nil {
			resp.Components[name] = dto.HealthStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
			log.Error(name+" unavailable", logger.Err(err))
			if isCritical {
				critical = true
			} else {
				degraded = true
			}
			return
		}
		resp.Components[name] = dto.HealthStatus{Status: "ok"}
	}
	check("directory", s.deps.DirectoryCheck, true)
	check("redis", s.deps.RedisCheck, false)
	check("postgres", s.deps.DBCheck, false)

	if s.deps.Inflight != nil {
		resp.Inflight = s.deps.Inflight()
	}

	switch {
	case critical:
		resp.Status = "unavailable"
	case degraded:
		resp.Status = "degraded"
	default:
		resp.Status = "ready"
	}
	return resp
}

// checkKeystore firma y verifica un payload con la clave vigente.
func (s *healthService) checkKeystore(ctx context.Context) (string, error) {
	key, err := s.deps.Keys.GetOrCreate(ctx)
	if err != nil {
		return "", err
	}
	codec, err := signer.New(key)
	if err != nil {
		return "", err
	}
	payload := []byte("selfcheck:" + time.Now().UTC().Format(time.RFC3339Nano))
	if !codec.Verify(codec.Sign(payload), payload) {
		return "", fmt.Errorf("self-signed payload did not verify")
	}
	return key.Fingerprint(), nil
}
