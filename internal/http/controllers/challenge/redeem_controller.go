package challenge

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strings"

	domain "github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/claims"
	dto "github.com/dropDatabas3/holoauth/internal/http/dto/challenge"
	"github.com/dropDatabas3/holoauth/internal/http/errors"
	"github.com/dropDatabas3/holoauth/internal/http/helpers"
	"github.com/dropDatabas3/holoauth/internal/metrics"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// Verifier es la redención pura: firma, formato, expiración y dirección.
type Verifier interface {
	Verify(data, signature string) (claims.Claim, error)
}

// Submitter agenda la reconciliación de un claim verificado.
type Submitter interface {
	Submit(c claims.Claim) (string, error)
}

type RedeemController struct {
	verifier  Verifier
	submitter Submitter
}

func NewRedeemController(v Verifier, s Submitter) *RedeemController {
	return &RedeemController{verifier: v, submitter: s}
}

// Response maneja GET /v1/response?data=&signature=.
func (c *RedeemController) Response(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data, sig := q.Get(domain.ParamData), q.Get(domain.ParamSignature)
	if data == "" || sig == "" {
		metrics.RedemptionsTotal.WithLabelValues("malformed").Inc()
		errors.WriteError(w, errors.ErrMissingFields.WithDetail("data, signature"))
		return
	}
	c.redeem(w, r, data, sig)
}

// ZTRegistration maneja POST /v1/zt_registration con {data, signature}.
func (c *RedeemController) ZTRegistration(w http.ResponseWriter, r *http.Request) {
	var req dto.ZTRegistrationRequest
	if !helpers.ReadJSON(w, r, &req) {
		metrics.RedemptionsTotal.WithLabelValues("malformed").Inc()
		return
	}
	data, ok := signedData(req.Data)
	if !ok || strings.TrimSpace(req.Signature) == "" {
		metrics.RedemptionsTotal.WithLabelValues("malformed").Inc()
		errors.WriteError(w, errors.ErrMissingFields.WithDetail("data, signature"))
		return
	}
	c.redeem(w, r, data, req.Signature)
}

// signedData devuelve los bytes firmados: el contenido si data es un string
// JSON, o el objeto tal cual llegó.
func signedData(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return "", false
		}
		return s, true
	}
	return string(raw), true
}

func (c *RedeemController) redeem(w http.ResponseWriter, r *http.Request, data, sig string) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Component("redeem"))

	claim, err := c.verifier.Verify(data, sig)
	if err != nil {
		metrics.RedemptionsTotal.WithLabelValues(rejectLabel(err)).Inc()
		log.Info("redemption rejected", logger.Err(err))
		errors.WriteError(w, err)
		return
	}

	runID, err := c.submitter.Submit(claim)
	if err != nil {
		log.Error("submit reconciliation failed", logger.Err(err))
		errors.WriteError(w, err)
		return
	}

	metrics.RedemptionsTotal.WithLabelValues("accepted").Inc()
	log.Info("redemption accepted",
		logger.RunID(runID),
		logger.Email(claim.Email()),
		logger.Address(claim.Address()),
	)
	helpers.WriteJSON(w, http.StatusOK, dto.RedeemResponse{Status: "accepted", RunID: runID})
}

func rejectLabel(err error) string {
	switch {
	case stderrors.Is(err, domain.ErrBadSignature):
		return "bad_signature"
	case stderrors.Is(err, domain.ErrExpired):
		return "expired"
	default:
		return "malformed"
	}
}
