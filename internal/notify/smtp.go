package notify

import (
	"context"
	"crypto/tls"
	"fmt"

	mail "github.com/go-mail/mail"

	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

// SMTPSender renderiza la plantilla del alias y la envía por SMTP.
type SMTPSender struct {
	Host               string
	Port               int
	From               string
	User               string
	Pass               string
	TLSMode            string // "auto" | "starttls" | "ssl" | "none"
	InsecureSkipVerify bool

	templates *Templates
	dial      func(m *mail.Message) error
}

// NewSMTPSender crea un SMTPSender con TLS auto.
func NewSMTPSender(host string, port int, from, user, pass string, templates *Templates) *SMTPSender {
	s := &SMTPSender{
		Host:      host,
		Port:      port,
		From:      from,
		User:      user,
		Pass:      pass,
		TLSMode:   "auto",
		templates: templates,
	}
	s.dial = s.dialAndSend
	return s
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	log := logger.From(ctx).With(
		logger.Component("SMTPSender"),
		logger.String("host", s.Host),
		logger.Int("port", s.Port),
		logger.String("to", msg.To),
		logger.Alias(msg.Alias),
	)

	r, err := s.templates.Render(msg.Alias, msg.Model)
	if err != nil {
		return err
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", r.Subject)
	if msg.Tag != "" {
		m.SetHeader("X-Tag", msg.Tag)
	}

	// multipart/alternative (txt + html)
	if r.Text != "" {
		m.SetBody("text/plain", r.Text)
	}
	if r.HTML != "" {
		if r.Text == "" {
			m.SetBody("text/html", r.HTML)
		} else {
			m.AddAlternative("text/html", r.HTML)
		}
	}

	if err := s.dial(m); err != nil {
		d := DiagnoseSMTP(err)
		log.Error("smtp send failed", logger.String("diag", d.Code), logger.Err(err))
		if d.Temporary {
			return fmt.Errorf("%w: smtp %s: %v", ErrUnavailable, d.Code, err)
		}
		return fmt.Errorf("smtp send: %w", err)
	}

	log.Info("email sent", logger.String("tag", msg.Tag))
	return nil
}

func (s *SMTPSender) dialAndSend(m *mail.Message) error {
	d := mail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{
		ServerName:         s.Host,
		InsecureSkipVerify: s.InsecureSkipVerify, // solo dev
	}

	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.TLSConfig = &tls.Config{InsecureSkipVerify: s.InsecureSkipVerify}
		d.StartTLSPolicy = mail.NoStartTLS
	default:
		// "auto"/"starttls": go-mail negocia STARTTLS si corresponde
	}
	return d.DialAndSend(m)
}
