package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas de dominio. Viven en un paquete aparte para que reconcile y http
// las usen sin importarse entre sí.

var (
	RedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holoauth_redemptions_total",
		Help: "Redenciones de challenges por resultado",
	}, []string{"result"}) // accepted|bad_signature|expired|malformed

	ChallengesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holoauth_challenges_total",
		Help: "Challenges pedidos por resultado",
	}, []string{"result"}) // sent|not_allowed|failed

	ReconciliationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holoauth_reconciliations_total",
		Help: "Reconciliaciones terminadas por estado final y razón",
	}, []string{"state", "reason"})

	ReconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "holoauth_reconcile_duration_seconds",
		Help:    "Duración total de una reconciliación",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
	})

	StaleDeauthorizeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holoauth_stale_deauthorize_total",
		Help: "Deautorizaciones de entradas viejas por resultado",
	}, []string{"result"}) // ok|failed

	ProbeAttemptsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "holoauth_probe_attempts_total",
		Help: "Intentos de probe de alcanzabilidad",
	})

	NotificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "holoauth_notifications_total",
		Help: "Notificaciones enviadas por alias y resultado",
	}, []string{"alias", "result"}) // result: sent|failed

	ReconcileInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "holoauth_reconcile_inflight",
		Help: "Reconciliaciones en curso",
	})
)

// Register registra las métricas de dominio en reg (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		RedemptionsTotal,
		ChallengesTotal,
		ReconciliationsTotal,
		ReconcileDuration,
		StaleDeauthorizeTotal,
		ProbeAttemptsTotal,
		NotificationsTotal,
		ReconcileInflight,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

func ObserveReconcile(state, reason string, d time.Duration) {
	ReconciliationsTotal.WithLabelValues(state, reason).Inc()
	ReconcileDuration.Observe(d.Seconds())
}
