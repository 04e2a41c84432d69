// Package challenge emite URLs de redención firmadas y las verifica al volver.
//
// El servidor no guarda estado entre emisión y redención: todo viaja en la
// URL como ?data=<claim JSON>&signature=<base64 HMAC>.
package challenge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// Nombres de los query params de la URL de redención.
const (
	ParamData      = "data"
	ParamSignature = "signature"
)

// DefaultValidity es la ventana de validez de un challenge.
const DefaultValidity = 7 * 24 * time.Hour

// Codec es la parte del signer que usa este paquete.
type Codec interface {
	Sign(payload []byte) []byte
	Verify(signature, payload []byte) bool
}

// Option configura Issuer y Redeemer.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock reemplaza time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Issuer arma claims con vencimiento y los firma.
type Issuer struct {
	codec    Codec
	validity time.Duration
	now      func() time.Time
}

// NewIssuer crea un Issuer. validity <= 0 usa DefaultValidity.
func NewIssuer(codec Codec, validity time.Duration, opts ...Option) *Issuer {
	if validity <= 0 {
		validity = DefaultValidity
	}
	o := buildOptions(opts)
	return &Issuer{codec: codec, validity: validity, now: o.now}
}

// Validity devuelve la ventana configurada.
func (i *Issuer) Validity() time.Duration { return i.validity }

// Issue firma {fields..., valid_until} y devuelve baseURL con data y signature.
// Cualquier valid_until en fields se pisa.
func (i *Issuer) Issue(ctx context.Context, fields map[string]any, baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("challenge: parse base url: %w", err)
	}
	if !u.IsAbs() {
		return "", fmt.Errorf("challenge: base url %q is not absolute", baseURL)
	}

	c := claims.New(fields, i.now().Add(i.validity))
	data, err := c.Encode()
	if err != nil {
		return "", fmt.Errorf("challenge: encode claim: %w", err)
	}
	sig := i.codec.Sign(data)

	q := u.Query()
	q.Set(ParamData, string(data))
	q.Set(ParamSignature, base64.StdEncoding.EncodeToString(sig))
	u.RawQuery = q.Encode()

	logger.From(ctx).Debug("challenge issued",
		logger.Email(c.Email()),
		logger.String("valid_until", c.ValidUntil.UTC().Format(time.RFC3339)),
	)
	return u.String(), nil
}
