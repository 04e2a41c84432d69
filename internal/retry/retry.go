// Package retry implementa reintentos acotados con intervalo constante.
//
// Una Policy define (Interval, Deadline, MaxAttempts). No hay backoff: entre
// intentos sólo se espera Interval. El loop termina con el primer éxito, al
// agotar intentos, al vencer el deadline (ErrTimeout) o al cancelarse ctx.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout se devuelve cuando vence el Deadline sin un intento exitoso.
var ErrTimeout = errors.New("retry: deadline exceeded")

// Policy parametriza Do.
type Policy struct {
	// Interval entre el fin de un intento y el comienzo del siguiente.
	Interval time.Duration
	// Deadline total medido desde el primer intento. 0 = sin deadline.
	Deadline time.Duration
	// MaxAttempts limita la cantidad de intentos. 0 = sin límite.
	MaxAttempts int
	// Clock; nil usa RealClock.
	Clock Clock
	// OnRetry se llama después de cada intento fallido que será reintentado.
	OnRetry func(attempt int, err error)
}

// Constant es la policy de "N intentos separados por interval".
func Constant(attempts int, interval time.Duration) Policy {
	return Policy{Interval: interval, MaxAttempts: attempts}
}

// Poll es la policy de "probar cada interval hasta deadline".
func Poll(interval, deadline time.Duration) Policy {
	return Policy{Interval: interval, Deadline: deadline}
}

// Do ejecuta fn hasta que devuelva nil.
//
// Al agotar MaxAttempts devuelve el último error de fn. Al vencer Deadline
// devuelve un error que cumple errors.Is(err, ErrTimeout) y envuelve el
// último error. Cancelación de ctx devuelve ctx.Err().
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	clk := p.Clock
	if clk == nil {
		clk = RealClock
	}
	if p.Interval <= 0 && p.MaxAttempts <= 0 && p.Deadline <= 0 {
		p.MaxAttempts = 1
	}

	start := clk.Now()
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(ctx); last == nil {
			return nil
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return last
		}

		wait := p.Interval
		if p.Deadline > 0 {
			remaining := p.Deadline - clk.Now().Sub(start)
			if remaining <= 0 {
				return fmt.Errorf("%w after %d attempts: %v", ErrTimeout, attempt, last)
			}
			if wait > remaining {
				wait = remaining
			}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, last)
		}

		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(wait):
			}
		}
	}
}
