// Package notify contiene el controller que notifica resultados de registro
// reportados por el dispositivo.
package notify

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/holoauth/internal/http/dto/notify"
	"github.com/dropDatabas3/holoauth/internal/http/errors"
	"github.com/dropDatabas3/holoauth/internal/http/helpers"
	"github.com/dropDatabas3/holoauth/internal/notify"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

type OutcomeNotifier interface {
	NotifyOutcome(ctx context.Context, o reconcile.Outcome) error
	SendAlias(ctx context.Context, email, alias string, model map[string]any) error
}

type NotifyController struct {
	notifier OutcomeNotifier
	known    func(alias string) bool
	token    string
}

// NewNotifyController: known valida aliases explícitos (nil acepta todos);
// token vacío deja el endpoint sin auth.
func NewNotifyController(n OutcomeNotifier, known func(string) bool, token string) *NotifyController {
	return &NotifyController{notifier: n, known: known, token: token}
}

// Notify maneja POST /v1/notify con {email, success, data, alias?}.
func (c *NotifyController) Notify(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Component("notify"))

	if !c.authorized(r) {
		errors.WriteError(w, errors.ErrUnauthorized)
		return
	}

	var req dto.NotifyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		errors.WriteError(w, errors.ErrMissingFields.WithDetail("email"))
		return
	}

	o := reconcile.Outcome{Recipient: req.Email, Success: req.Success, Detail: req.Data}
	alias := o.Alias()

	var err error
	if req.Alias != "" {
		// challenge lleva un link firmado; sólo lo envía el flujo de emisión.
		if req.Alias == notify.AliasChallenge {
			errors.WriteError(w, errors.ErrBadRequest.WithDetail("alias not allowed"))
			return
		}
		if c.known != nil && !c.known(req.Alias) {
			errors.WriteError(w, errors.ErrBadRequest.WithDetail("unknown alias"))
			return
		}
		alias = req.Alias
		err = c.notifier.SendAlias(r.Context(), req.Email, alias, map[string]any{
			"email":   req.Email,
			"success": req.Success,
			"data":    req.Data,
		})
	} else {
		err = c.notifier.NotifyOutcome(r.Context(), o)
	}
	if err != nil {
		log.Error("notify failed", logger.Email(req.Email), logger.Alias(alias), logger.Err(err))
		errors.WriteError(w, err)
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.NotifyResponse{Status: "sent", Alias: alias})
}

func (c *NotifyController) authorized(r *http.Request) bool {
	if c.token == "" {
		return true
	}
	got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(c.token)) == 1
}
