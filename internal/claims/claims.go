// Package claims modela el payload firmado: campos de identidad libres más
// valid_until (epoch en milisegundos) y su serialización canónica.
package claims

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Nombres de campos conocidos del payload.
const (
	FieldEmail           = "email"
	FieldDeviceID        = "holochain_agent_id"
	FieldAddress         = "zerotier_address"
	FieldReachabilityURL = "holoport_url"
	FieldValidUntil      = "valid_until"
)

// ErrMalformed indica un payload que no es un objeto JSON válido o sin valid_until entero.
var ErrMalformed = errors.New("claims: malformed payload")

// Claim es inmutable una vez firmado; Fields no incluye valid_until.
type Claim struct {
	Fields     map[string]any
	ValidUntil time.Time
}

// New arma un Claim a partir de campos de identidad. Un valid_until presente en
// fields se descarta: la vigencia la fija siempre quien firma.
func New(fields map[string]any, validUntil time.Time) Claim {
	f := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == FieldValidUntil {
			continue
		}
		f[k] = v
	}
	return Claim{Fields: f, ValidUntil: validUntil}
}

// Encode serializa el claim de forma canónica: objeto JSON con keys ordenadas
// (encoding/json ordena las keys de los maps), sin espacios. Dos claims con los
// mismos campos producen exactamente los mismos bytes.
func (c Claim) Encode() ([]byte, error) {
	m := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		m[k] = v
	}
	m[FieldValidUntil] = c.ValidUntil.UnixMilli()
	return json.Marshal(m)
}

// Decode parsea bytes producidos por Encode (o por otro emisor compatible).
func Decode(data []byte) (Claim, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m == nil {
		return Claim{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	if dec.More() {
		return Claim{}, fmt.Errorf("%w: trailing data", ErrMalformed)
	}

	raw, ok := m[FieldValidUntil].(json.Number)
	if !ok {
		return Claim{}, fmt.Errorf("%w: missing %s", ErrMalformed, FieldValidUntil)
	}
	ms, err := raw.Int64()
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %s is not an integer", ErrMalformed, FieldValidUntil)
	}
	delete(m, FieldValidUntil)

	return Claim{Fields: m, ValidUntil: time.UnixMilli(ms)}, nil
}

// Expired compara en milisegundos contra el reloj del servidor.
func (c Claim) Expired(now time.Time) bool {
	return c.ValidUntil.UnixMilli() < now.UnixMilli()
}

// String devuelve un campo como string ("" si no existe o no es string/número).
func (c Claim) String(name string) string {
	switch v := c.Fields[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

func (c Claim) Email() string           { return c.String(FieldEmail) }
func (c Claim) DeviceID() string        { return c.String(FieldDeviceID) }
func (c Claim) Address() string         { return c.String(FieldAddress) }
func (c Claim) ReachabilityURL() string { return c.String(FieldReachabilityURL) }
