// Package audit registra eventos relevantes (claves, allowlist, reconciliaciones)
// en un logger dedicado "audit", separado del log operativo.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
	"github.com/dropDatabas3/holoauth/internal/util"
)

const (
	EventKeyInit           = "key.init"
	EventAllowlistAdd      = "allowlist.add"
	EventAllowlistRemove   = "allowlist.remove"
	EventReconcileFinished = "reconcile.finished"
)

// Log escribe un evento de auditoría. Si ctx trae logger (request_id, etc.)
// se usa ese como base.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	logger.From(ctx).Named("audit").Info(event, append([]zap.Field{zap.String("event", event)}, fields...)...)
}

// Email enmascara el email antes de loguearlo.
func Email(email string) zap.Field {
	return logger.Email(util.MaskEmail(email))
}

// Reconciliation audita el resultado final de una corrida.
func Reconciliation(ctx context.Context, runID string, r reconcile.Result) {
	fields := []zap.Field{
		logger.RunID(runID),
		logger.State(string(r.State)),
		Email(r.Claim.Email()),
		logger.Address(r.Claim.Address()),
		logger.Count(len(r.StaleCleared)),
		logger.Bool("notified", r.Notified),
	}
	if r.Reason != "" {
		fields = append(fields, logger.String("reason", string(r.Reason)))
	}
	if r.Outcome != nil {
		fields = append(fields, logger.Alias(r.Outcome.Alias()))
	}
	if r.Err != nil {
		fields = append(fields, logger.Err(r.Err))
	}
	Log(ctx, EventReconcileFinished, fields...)
}
