// Package challenge contiene los controllers de emisión y redención de challenges.
package challenge

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	domain "github.com/dropDatabas3/holoauth/internal/challenge"
	dto "github.com/dropDatabas3/holoauth/internal/http/dto/challenge"
	"github.com/dropDatabas3/holoauth/internal/http/errors"
	"github.com/dropDatabas3/holoauth/internal/http/helpers"
	"github.com/dropDatabas3/holoauth/internal/metrics"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// Requester es el flujo de emisión (challenge.Service).
type Requester interface {
	RequestChallenge(ctx context.Context, fields map[string]any, origin string) (string, error)
}

type ChallengeController struct {
	service    Requester
	trustProxy bool
}

// NewChallengeController: trustProxy habilita X-Forwarded-* al armar el origin
// del link de respuesta. Sólo va detrás de un proxy que reescriba esos headers.
func NewChallengeController(s Requester, trustProxy bool) *ChallengeController {
	return &ChallengeController{service: s, trustProxy: trustProxy}
}

// Request maneja POST /v1/challenge. El body son los campos del claim.
func (c *ChallengeController) Request(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Component("challenge"))

	var fields map[string]any
	if !helpers.ReadJSON(w, r, &fields) {
		metrics.ChallengesTotal.WithLabelValues("invalid").Inc()
		return
	}
	if fields == nil {
		metrics.ChallengesTotal.WithLabelValues("invalid").Inc()
		errors.WriteError(w, errors.ErrInvalidJSON.WithDetail("body must be a JSON object"))
		return
	}

	if _, err := c.service.RequestChallenge(r.Context(), fields, helpers.Origin(r, c.trustProxy)); err != nil {
		switch {
		case stderrors.Is(err, domain.ErrNotAllowed):
			metrics.ChallengesTotal.WithLabelValues("not_allowed").Inc()
		case stderrors.Is(err, domain.ErrMissingEmail):
			metrics.ChallengesTotal.WithLabelValues("invalid").Inc()
		default:
			metrics.ChallengesTotal.WithLabelValues("failed").Inc()
			log.Error("request challenge failed", logger.Err(err))
		}
		errors.WriteError(w, err)
		return
	}

	metrics.ChallengesTotal.WithLabelValues("sent").Inc()
	email, _ := fields["email"].(string)
	helpers.WriteJSON(w, http.StatusOK, dto.RequestChallengeResponse{
		Status: "sent",
		Email:  strings.TrimSpace(email),
	})
}
