package challenge

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// ResponsePath es donde se redimen los challenges si no hay base URL configurada.
const ResponsePath = "/v1/response"

// Allowlist decide si un email puede pedir un challenge.
type Allowlist interface {
	Allowed(ctx context.Context, email string) (bool, error)
}

// Mailer entrega la URL de redención por fuera de banda.
type Mailer interface {
	SendChallenge(ctx context.Context, email string, model map[string]any) error
}

// Service es el flujo completo de POST /v1/challenge.
type Service struct {
	issuer  *Issuer
	allow   Allowlist
	mailer  Mailer
	baseURL string
}

// NewService crea el servicio. baseURL vacío => <origin>/v1/response por request.
func NewService(issuer *Issuer, allow Allowlist, mailer Mailer, baseURL string) *Service {
	return &Service{issuer: issuer, allow: allow, mailer: mailer, baseURL: strings.TrimSpace(baseURL)}
}

// RequestChallenge valida el email, emite la URL y la envía con el alias
// challenge. El modelo del mail es {fields..., response_url}.
func (s *Service) RequestChallenge(ctx context.Context, fields map[string]any, origin string) (string, error) {
	log := logger.From(ctx).With(logger.Component("challenge"), logger.Op("RequestChallenge"))

	email, _ := fields[claims.FieldEmail].(string)
	email = strings.TrimSpace(email)
	if email == "" {
		return "", ErrMissingEmail
	}

	ok, err := s.allow.Allowed(ctx, email)
	if err != nil {
		return "", fmt.Errorf("challenge: allowlist: %w", err)
	}
	if !ok {
		log.Info("challenge denied", logger.Email(email))
		return "", ErrNotAllowed
	}

	responseURL, err := s.issuer.Issue(ctx, fields, s.responseBase(origin))
	if err != nil {
		return "", err
	}

	model := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		model[k] = v
	}
	model["response_url"] = responseURL

	if err := s.mailer.SendChallenge(ctx, email, model); err != nil {
		log.Warn("challenge mail failed", logger.Email(email), logger.Err(err))
		return "", fmt.Errorf("challenge: send: %w", err)
	}
	log.Info("challenge sent", logger.Email(email))
	return responseURL, nil
}

func (s *Service) responseBase(origin string) string {
	if s.baseURL != "" {
		return s.baseURL
	}
	return strings.TrimRight(origin, "/") + ResponsePath
}
