package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/holoauth/internal/claims"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

func observe(t *testing.T) *observer.ObservedLogs {
	core, logs := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestLog_NamedAndMasked(t *testing.T) {
	logs := observe(t)

	Log(context.Background(), EventAllowlistAdd, Email("alice@example.com"))

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	require.Equal(t, "audit", e.LoggerName)
	require.Equal(t, EventAllowlistAdd, e.Message)
	fields := e.ContextMap()
	require.Equal(t, EventAllowlistAdd, fields["event"])
	require.Equal(t, "a…@e….com", fields["email"])
}

func TestReconciliation(t *testing.T) {
	logs := observe(t)

	r := reconcile.Result{
		State:        reconcile.StateAborted,
		Reason:       reconcile.ReasonTimeout,
		Err:          errors.New("deadline"),
		Claim:        claims.New(map[string]any{"email": "bob@holo.host", "address": "aa11"}, time.Now()),
		StaleCleared: []string{"x", "y"},
	}
	Reconciliation(context.Background(), "run-1", r)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "run-1", fields["run_id"])
	require.Equal(t, string(reconcile.StateAborted), fields["state"])
	require.Equal(t, "b…@h….host", fields["email"])
	require.Equal(t, int64(2), fields["count"])
	require.Equal(t, "deadline", fields["error"])
}
