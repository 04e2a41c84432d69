// Package signer firma y verifica payloads con HMAC-SHA-512.
//
// La firma no inspecciona el payload: garantiza integridad y posesión de la
// clave, no frescura. La vigencia (valid_until) la chequea quien redime.
package signer

import (
	"crypto/hmac"
	"crypto/sha512"
	"errors"

	"github.com/dropDatabas3/holoauth/internal/security/keystore"
)

// Size es el largo de una firma en bytes.
const Size = sha512.Size

// Codec firma con una clave fija inyectada al construirlo.
type Codec struct {
	key []byte
}

// New crea un Codec. La clave debe tener al menos 256 bits.
func New(key keystore.Key) (*Codec, error) {
	if len(key) < keystore.KeySize {
		return nil, errors.New("signer: key must be at least 32 bytes")
	}
	return &Codec{key: append([]byte(nil), key...)}, nil
}

// Sign devuelve HMAC-SHA-512(key, payload). Determinístico.
func (c *Codec) Sign(payload []byte) []byte {
	mac := hmac.New(sha512.New, c.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// Verify recalcula la firma y compara en tiempo constante.
func (c *Codec) Verify(signature, payload []byte) bool {
	return hmac.Equal(signature, c.Sign(payload))
}
