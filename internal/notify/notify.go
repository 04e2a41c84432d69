// Package notify entrega mails con contrato de alias de plantilla: el llamador
// elige un alias (challenge, success, error-*) y un modelo; el Sender decide
// cómo renderizar y enviar.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropDatabas3/holoauth/internal/metrics"
	"github.com/dropDatabas3/holoauth/internal/observability/logger"
	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

// Alias fuera del set de outcomes.
const (
	AliasChallenge      = "challenge"
	AliasNotWhitelisted = "not-whitelisted"
)

// ErrUnavailable envuelve fallas temporales de entrega (conexión, timeout, throttling).
var ErrUnavailable = errors.New("notify: unavailable")

// ErrUnknownAlias se devuelve cuando no hay plantilla para el alias pedido.
var ErrUnknownAlias = errors.New("notify: unknown template alias")

// Message es lo que recibe un Sender.
type Message struct {
	To    string
	Alias string
	// Tag agrupa envíos para reportes: "Internal"/"External" y, en outcomes, el alias.
	Tag   string
	Model map[string]any
}

// Sender entrega un Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier arma los mensajes de dominio sobre un Sender.
type Notifier struct {
	sender     Sender
	isInternal func(email string) bool
}

// New crea un Notifier. isInternal nil trata a todos como External.
func New(sender Sender, isInternal func(email string) bool) *Notifier {
	if isInternal == nil {
		isInternal = func(string) bool { return false }
	}
	return &Notifier{sender: sender, isInternal: isInternal}
}

// Group devuelve "Internal" o "External" según el dominio del destinatario.
func (n *Notifier) Group(email string) string {
	if n.isInternal(email) {
		return "Internal"
	}
	return "External"
}

// SendChallenge envía el mail con la URL de redención.
func (n *Notifier) SendChallenge(ctx context.Context, email string, model map[string]any) error {
	return n.send(ctx, Message{
		To:    email,
		Alias: AliasChallenge,
		Tag:   n.Group(email),
		Model: model,
	})
}

// NotifyOutcome envía el resultado de una reconciliación.
// Modelo: {email, success, data, alias}.
func (n *Notifier) NotifyOutcome(ctx context.Context, o reconcile.Outcome) error {
	return n.SendAlias(ctx, o.Recipient, o.Alias(), map[string]any{
		"email":   o.Recipient,
		"success": o.Success,
		"data":    o.Detail,
	})
}

// SendAlias envía una plantilla arbitraria etiquetada como outcome.
func (n *Notifier) SendAlias(ctx context.Context, email, alias string, model map[string]any) error {
	m := make(map[string]any, len(model)+1)
	for k, v := range model {
		m[k] = v
	}
	m["alias"] = alias
	return n.send(ctx, Message{
		To:    email,
		Alias: alias,
		Tag:   n.Group(email) + " " + alias,
		Model: m,
	})
}

func (n *Notifier) send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("notify: %s: empty recipient", msg.Alias)
	}
	err := n.sender.Send(ctx, msg)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(msg.Alias, "failed").Inc()
		logger.From(ctx).Warn("notification failed",
			logger.Component("notify"),
			logger.Alias(msg.Alias),
			logger.Email(msg.To),
			logger.Err(err),
		)
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(msg.Alias, "sent").Inc()
	return nil
}
