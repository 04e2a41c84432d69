// Package challenge contiene los DTOs de emisión y redención de challenges.
package challenge

import "encoding/json"

// RequestChallengeResponse confirma el envío. La URL firmada sólo viaja por mail.
type RequestChallengeResponse struct {
	Status string `json:"status"`
	Email  string `json:"email"`
}

// RedeemResponse es la respuesta a una redención aceptada: la reconciliación
// sigue en background identificada por RunID.
type RedeemResponse struct {
	Status string `json:"status"`
	RunID  string `json:"run_id"`
}

// ZTRegistrationRequest: data puede venir como string JSON (bytes firmados
// exactos) o como objeto embebido.
type ZTRegistrationRequest struct {
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}
