package challenge

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/holoauth/internal/claims"
)

// Redeemer valida tokens presentados. Es puro: no toca nada externo.
type Redeemer struct {
	codec Codec
	now   func() time.Time
}

func NewRedeemer(codec Codec, opts ...Option) *Redeemer {
	o := buildOptions(opts)
	return &Redeemer{codec: codec, now: o.now}
}

// Redeem verifica la firma sobre los bytes exactos de data, parsea el claim y
// chequea valid_until contra el reloj del servidor. La firma se verifica antes
// de mirar el contenido.
func (r *Redeemer) Redeem(data, signature string) (claims.Claim, error) {
	sig, err := decodeSignature(signature)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("%w: signature is not base64", ErrMalformedClaim)
	}
	if !r.codec.Verify(sig, []byte(data)) {
		return claims.Claim{}, ErrBadSignature
	}

	c, err := claims.Decode([]byte(data))
	if err != nil {
		if errors.Is(err, claims.ErrMalformed) {
			return claims.Claim{}, fmt.Errorf("%w: %v", ErrMalformedClaim, err)
		}
		return claims.Claim{}, err
	}
	if c.Expired(r.now()) {
		return claims.Claim{}, ErrExpired
	}
	return c, nil
}

// RedeemURL extrae data y signature de una URL de redención completa.
func (r *Redeemer) RedeemURL(raw string) (claims.Claim, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return claims.Claim{}, fmt.Errorf("%w: %v", ErrMalformedClaim, err)
	}
	q := u.Query()
	return r.Redeem(q.Get(ParamData), q.Get(ParamSignature))
}

// decodeSignature acepta base64 estándar; un '+' que llegó como espacio
// (query sin escapar) se restaura.
func decodeSignature(s string) ([]byte, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "+")
	if s == "" {
		return nil, errors.New("empty")
	}
	return base64.StdEncoding.DecodeString(s)
}
