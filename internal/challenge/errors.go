package challenge

import "errors"

// Rechazos de redención. Son terminales y no producen efectos.
var (
	ErrBadSignature   = errors.New("challenge: bad signature")
	ErrExpired        = errors.New("challenge: claim expired")
	ErrMalformedClaim = errors.New("challenge: malformed claim")
)

// Errores al pedir un challenge.
var (
	ErrMissingEmail = errors.New("challenge: email is required")
	ErrNotAllowed   = errors.New("challenge: email not allowed")
)
