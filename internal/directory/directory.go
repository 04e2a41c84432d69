// Package directory habla con el directorio de membresía de la red overlay.
//
// Las entradas se indexan por dirección del dispositivo; Name guarda la
// identidad del dispositivo y puede repetirse entre entradas viejas. Este
// paquete no reintenta: la política de reintentos vive en el reconciler.
package directory

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable envuelve fallas de transporte (DNS, conexión, timeout).
var ErrUnavailable = errors.New("directory: unavailable")

// Entry es una membresía en el directorio.
type Entry struct {
	Address     string
	Name        string
	Description string
	Authorized  bool
}

// Client es el contrato que consume el reconciler.
type Client interface {
	// List devuelve el estado actual; el orden no es significativo.
	List(ctx context.Context) ([]Entry, error)
	// Authorize crea o actualiza la entrada en address con authorized=true.
	Authorize(ctx context.Context, address, name, description string) error
	// Deauthorize pone authorized=false. Una entrada inexistente no es error.
	Deauthorize(ctx context.Context, address string) error
}

// APIError es una respuesta no-2xx del directorio. Body se conserva tal cual:
// el texto upstream se clasifica después para elegir la notificación.
type APIError struct {
	Op     string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("directory: %s: status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("directory: %s: status %d: %s", e.Op, e.Status, e.Body)
}

// StaleFor filtra entradas de la misma identidad que no son keep.
func StaleFor(entries []Entry, name, keep string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Name == name && e.Address != keep {
			out = append(out, e)
		}
	}
	return out
}
