// Package reconcile lleva un claim verificado hasta el estado final del
// directorio: una sola entrada autorizada por identidad de dispositivo.
//
// Estados: verifying → clearing_stale → authorizing → waiting_for_reachability
// → notifying → done, con aborted(reason) alcanzable desde cualquiera.
// Ninguna mutación del directorio ocurre sin un claim verificado.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/holoauth/internal/challenge"
	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/directory"
	"github.com/dropDatabas3/holoauth/internal/metrics"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/retry"
)

type State string

const (
	StateVerifying   State = "verifying"
	StateClearing    State = "clearing_stale"
	StateAuthorizing State = "authorizing"
	StateWaiting     State = "waiting_for_reachability"
	StateNotifying   State = "notifying"
	StateDone        State = "done"
	StateAborted     State = "aborted"
)

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonUnauthorized   Reason = "unauthorized"
	ReasonDirectoryError Reason = "directory-error"
	ReasonTimeout        Reason = "timeout"
	ReasonCanceled       Reason = "canceled"
)

// outcomeGrace acota el envío del outcome cuando el contexto de la corrida venció.
const outcomeGrace = 30 * time.Second

// Redeemer verifica firma y vigencia.
type Redeemer interface {
	Redeem(data, signature string) (claims.Claim, error)
}

// Notifier recibe el outcome final. Sus fallas no se reintentan.
type Notifier interface {
	NotifyOutcome(ctx context.Context, o Outcome) error
}

// Config parametriza esperas y reintentos.
type Config struct {
	ProbeInterval   time.Duration
	ProbeDeadline   time.Duration
	CleanupAttempts int
	CleanupInterval time.Duration
	// CleanupConcurrency limita el fan-out de deautorizaciones. 0 = 8.
	CleanupConcurrency int
	Clock              retry.Clock
}

func (c Config) withDefaults() Config {
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 5 * time.Second
	}
	if c.ProbeDeadline <= 0 {
		c.ProbeDeadline = 30 * time.Minute
	}
	if c.CleanupAttempts <= 0 {
		c.CleanupAttempts = 3
	}
	if c.CleanupInterval < 0 {
		c.CleanupInterval = 0
	}
	if c.CleanupConcurrency <= 0 {
		c.CleanupConcurrency = 8
	}
	if c.Clock == nil {
		c.Clock = retry.RealClock
	}
	return c
}

// Result describe cómo terminó una corrida.
type Result struct {
	State  State
	Reason Reason
	// Err es la causa de un aborto (nil en done).
	Err error

	Claim   claims.Claim
	Outcome *Outcome

	StaleCleared  []string
	StaleFailures []string

	Notified  bool
	NotifyErr error
}

// Aborted es true si la corrida no llegó a done.
func (r Result) Aborted() bool { return r.State == StateAborted }

// Reconciler ejecuta la máquina de estados. Es seguro para uso concurrente:
// no guarda estado mutable entre corridas.
type Reconciler struct {
	redeemer Redeemer
	dir      directory.Client
	prober   Prober
	notifier Notifier
	cfg      Config
}

// New crea un Reconciler. prober y notifier pueden ser nil.
func New(redeemer Redeemer, dir directory.Client, prober Prober, notifier Notifier, cfg Config) *Reconciler {
	return &Reconciler{
		redeemer: redeemer,
		dir:      dir,
		prober:   prober,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
	}
}

// ProbeDeadline expone el deadline efectivo (lo usa el dispatcher para acotar unidades).
func (r *Reconciler) ProbeDeadline() time.Duration { return r.cfg.ProbeDeadline }

// Verify es el estado verifying: firma, vigencia y campos mínimos para operar
// el directorio. No hace llamadas externas.
func (r *Reconciler) Verify(data, signature string) (claims.Claim, error) {
	c, err := r.redeemer.Redeem(data, signature)
	if err != nil {
		return claims.Claim{}, err
	}
	if c.Address() == "" {
		return claims.Claim{}, fmt.Errorf("%w: missing %s", challenge.ErrMalformedClaim, claims.FieldAddress)
	}
	if identity(c) == "" {
		return claims.Claim{}, fmt.Errorf("%w: missing %s", challenge.ErrMalformedClaim, claims.FieldDeviceID)
	}
	return c, nil
}

// Run ejecuta la corrida completa desde verifying.
func (r *Reconciler) Run(ctx context.Context, data, signature string) Result {
	c, err := r.Verify(data, signature)
	if err != nil {
		logger.From(ctx).Info("reconcile rejected",
			logger.State(string(StateVerifying)),
			logger.Err(err),
		)
		metrics.ObserveReconcile(string(StateAborted), string(ReasonUnauthorized), 0)
		return Result{State: StateAborted, Reason: ReasonUnauthorized, Err: err}
	}
	return r.Reconcile(ctx, c)
}

// Reconcile continúa desde clearing_stale con un claim ya verificado.
func (r *Reconciler) Reconcile(ctx context.Context, c claims.Claim) Result {
	start := time.Now()
	id, addr, email := identity(c), c.Address(), c.Email()
	log := logger.From(ctx).With(
		logger.Component("reconcile"),
		logger.DeviceID(id),
		logger.Address(addr),
		logger.Email(email),
	)
	ctx = logger.ToContext(ctx, log)

	metrics.ReconcileInflight.Inc()
	defer metrics.ReconcileInflight.Dec()

	res := Result{Claim: c}
	finish := func() Result {
		metrics.ObserveReconcile(string(res.State), string(res.Reason), time.Since(start))
		log.Info("reconcile finished",
			logger.State(string(res.State)),
			logger.String("reason", string(res.Reason)),
			logger.Int("stale_cleared", len(res.StaleCleared)),
			logger.Int("stale_failures", len(res.StaleFailures)),
			logger.Duration(time.Since(start)),
		)
		return res
	}
	abort := func(reason Reason, err error) {
		res.State, res.Reason, res.Err = StateAborted, reason, err
	}

	// clearing_stale
	log.Debug("state", logger.State(string(StateClearing)))
	res.StaleCleared, res.StaleFailures = r.clearStale(ctx, id, addr)
	if err := ctx.Err(); err != nil {
		r.abortOnContext(ctx, &res, email, err)
		return finish()
	}

	// authorizing
	log.Debug("state", logger.State(string(StateAuthorizing)))
	if err := r.dir.Authorize(ctx, addr, id, email); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.abortOnContext(ctx, &res, email, ctxErr)
			return finish()
		}
		log.Warn("authorize failed", logger.Err(err))
		abort(ReasonDirectoryError, err)
		r.notify(ctx, &res, Outcome{Recipient: email, Success: false, Detail: upstreamDetail(err)})
		return finish()
	}

	// waiting_for_reachability
	detail := addr
	if target := c.ReachabilityURL(); target != "" && r.prober != nil {
		log.Debug("state", logger.State(string(StateWaiting)), logger.String("target", target))
		if err := r.waitReachable(ctx, target); err != nil {
			switch {
			case errors.Is(err, retry.ErrTimeout):
				log.Warn("device not reachable before deadline", logger.String("target", target))
				abort(ReasonTimeout, err)
				r.notify(ctx, &res, Outcome{Recipient: email, Success: false, Detail: DetailTimeout})
			default:
				r.abortOnContext(ctx, &res, email, err)
			}
			return finish()
		}
		detail = target
	}

	// notifying
	r.notify(ctx, &res, Outcome{Recipient: email, Success: true, Detail: detail})
	res.State = StateDone
	return finish()
}

// clearStale deautoriza en paralelo las entradas autorizadas de la misma
// identidad con otra dirección. Es best-effort: cada deautorización se
// reintenta hasta CleanupAttempts y las que fallan quedan en failures.
func (r *Reconciler) clearStale(ctx context.Context, id, keep string) (cleared, failures []string) {
	log := logger.From(ctx)

	entries, err := r.dir.List(ctx)
	if err != nil {
		log.Warn("list failed, skipping stale cleanup", logger.Err(err))
		return nil, nil
	}

	var stale []directory.Entry
	for _, e := range directory.StaleFor(entries, id, keep) {
		if e.Authorized {
			stale = append(stale, e)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(r.cfg.CleanupConcurrency)
	for _, e := range stale {
		addr := e.Address
		g.Go(func() error {
			policy := retry.Constant(r.cfg.CleanupAttempts, r.cfg.CleanupInterval)
			policy.Clock = r.cfg.Clock
			policy.OnRetry = func(attempt int, err error) {
				log.Debug("deauthorize retry", logger.Address(addr), logger.Int("attempt", attempt), logger.Err(err))
			}
			err := retry.Do(ctx, policy, func(ctx context.Context) error {
				return r.dir.Deauthorize(ctx, addr)
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("stale deauthorize failed", logger.Address(addr), logger.Err(err))
				metrics.StaleDeauthorizeTotal.WithLabelValues("failed").Inc()
				failures = append(failures, addr)
				return nil
			}
			metrics.StaleDeauthorizeTotal.WithLabelValues("ok").Inc()
			cleared = append(cleared, addr)
			return nil
		})
	}
	_ = g.Wait()
	return cleared, failures
}

func (r *Reconciler) waitReachable(ctx context.Context, target string) error {
	policy := retry.Poll(r.cfg.ProbeInterval, r.cfg.ProbeDeadline)
	policy.Clock = r.cfg.Clock
	return retry.Do(ctx, policy, func(ctx context.Context) error {
		metrics.ProbeAttemptsTotal.Inc()
		return r.prober.Probe(ctx, target)
	})
}

func (r *Reconciler) notify(ctx context.Context, res *Result, o Outcome) {
	res.Outcome = &o
	if r.notifier == nil {
		return
	}
	log := logger.From(ctx).With(logger.State(string(StateNotifying)), logger.Alias(o.Alias()))
	if err := r.notifier.NotifyOutcome(ctx, o); err != nil {
		log.Warn("notify failed", logger.Err(err))
		res.NotifyErr = err
		return
	}
	res.Notified = true
	log.Debug("notified")
}

// identity es la identidad del dispositivo; sin holochain_agent_id cae al email.
func identity(c claims.Claim) string {
	if id := c.DeviceID(); id != "" {
		return id
	}
	return c.Email()
}

// upstreamDetail prefiere el body crudo del directorio: es lo que se clasifica.
func upstreamDetail(err error) string {
	var apiErr *directory.APIError
	if errors.As(err, &apiErr) && apiErr.Body != "" {
		return apiErr.Body
	}
	return err.Error()
}

// abortOnContext cierra una corrida cortada por su contexto. Un deadline vencido
// es un timeout y se notifica igual que el del poll; una cancelación no notifica.
// La notificación usa un contexto desligado: el de la corrida ya expiró.
func (r *Reconciler) abortOnContext(ctx context.Context, res *Result, email string, err error) {
	res.State, res.Reason, res.Err = StateAborted, ctxReason(err), err
	if res.Reason != ReasonTimeout {
		return
	}
	logger.From(ctx).Warn("reconcile deadline exceeded", logger.Err(err))
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeGrace)
	defer cancel()
	r.notify(nctx, res, Outcome{Recipient: email, Success: false, Detail: DetailTimeout})
}

func ctxReason(err error) Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonCanceled
}
