package reconcile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// ErrShuttingDown lo devuelve Submit después de Shutdown.
var ErrShuttingDown = errors.New("reconcile: dispatcher shutting down")

// defaultUnitSlack se suma al deadline del probe para acotar cada unidad.
const defaultUnitSlack = 5 * time.Minute

// Dispatcher corre reconciliaciones en background: el borde HTTP verifica el
// token, responde 200 y la unidad sigue sola. Cada unidad tiene su propio
// contexto derivado del base (cancelado en Shutdown) y acotado en tiempo.
type Dispatcher struct {
	rec    *Reconciler
	slack  time.Duration
	onDone func(runID string, res Result)

	base   context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	wg       sync.WaitGroup
	inflight atomic.Int64
}

type DispatcherOption func(*Dispatcher)

// WithUnitSlack cambia el margen sobre el deadline del probe.
func WithUnitSlack(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d >= 0 {
			x.slack = d
		}
	}
}

// WithOnDone registra un callback al terminar cada unidad.
func WithOnDone(fn func(runID string, res Result)) DispatcherOption {
	return func(x *Dispatcher) { x.onDone = fn }
}

func NewDispatcher(rec *Reconciler, opts ...DispatcherOption) *Dispatcher {
	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{rec: rec, slack: defaultUnitSlack, base: base, cancel: cancel}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Submit encola la reconciliación de un claim ya verificado y devuelve el run id.
func (d *Dispatcher) Submit(c claims.Claim) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrShuttingDown
	}
	d.wg.Add(1)
	d.inflight.Add(1)
	d.mu.Unlock()

	runID := uuid.NewString()
	go d.run(runID, c)
	return runID, nil
}

func (d *Dispatcher) run(runID string, c claims.Claim) {
	defer d.wg.Done()
	defer d.inflight.Add(-1)

	ctx, cancel := context.WithTimeout(d.base, d.rec.ProbeDeadline()+d.slack)
	defer cancel()
	ctx = logger.ToContext(ctx, logger.L().With(logger.RunID(runID)))

	defer func() {
		if p := recover(); p != nil {
			logger.From(ctx).Error("reconcile panic", logger.Any("panic", p))
		}
	}()

	res := d.rec.Reconcile(ctx, c)
	if d.onDone != nil {
		d.onDone(runID, res)
	}
}

// Inflight devuelve cuántas unidades siguen corriendo.
func (d *Dispatcher) Inflight() int { return int(d.inflight.Load()) }

// Shutdown deja de aceptar unidades y espera las que están en curso. Si ctx
// vence antes, cancela las unidades, espera a que salgan y devuelve ctx.Err().
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
