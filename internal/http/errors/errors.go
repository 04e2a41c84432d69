package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/directory"
	"github.com/dropDatabas3/holoauth/internal/notify"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// domainErrors traduce sentinels de dominio al catálogo HTTP.
var domainErrors = []struct {
	target error
	app    *AppError
}{
	{challenge.ErrBadSignature, ErrTokenInvalid},
	{challenge.ErrExpired, ErrTokenExpired},
	{challenge.ErrMalformedClaim, ErrMalformedClaim},
	{claims.ErrMalformed, ErrMalformedClaim},
	{challenge.ErrNotAllowed, ErrUnauthorized.WithDetail("email not allowed")},
	{challenge.ErrMissingEmail, ErrMissingFields.WithDetail("email")},
	{notify.ErrUnknownAlias, ErrBadRequest.WithDetail("unknown alias")},
	{reconcile.ErrShuttingDown, ErrServiceUnavailable},
	{notify.ErrUnavailable, ErrServiceUnavailable},
	{directory.ErrUnavailable, ErrServiceUnavailable},
}

// FromError convierte cualquier error en AppError. Los sentinels conocidos
// mantienen su status; el resto es 500 conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	for _, m := range domainErrors {
		if stderrors.Is(err, m.target) {
			return m.app.WithCause(err)
		}
	}
	var apiErr *directory.APIError
	if stderrors.As(err, &apiErr) {
		return ErrBadGateway.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// WriteError escribe el sobre JSON con el status del AppError.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}
