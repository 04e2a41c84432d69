package notify

import (
	"net"
	"strings"
)

// SMTPDiag resume un error SMTP.
type SMTPDiag struct {
	Code      string // auth|tls|dial|timeout|rate_limited|invalid_recipient|rejected|network|unknown
	Temporary bool
}

// DiagnoseSMTP clasifica un error de envío por su texto y tipo.
func DiagnoseSMTP(err error) SMTPDiag {
	if err == nil {
		return SMTPDiag{Code: "unknown"}
	}
	s := strings.ToLower(err.Error())
	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(s, sub) {
				return true
			}
		}
		return false
	}

	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return SMTPDiag{Code: "timeout", Temporary: true}
	}
	switch {
	case has("timeout"):
		return SMTPDiag{Code: "timeout", Temporary: true}
	case has("connection refused", "connectex:", "no such host", "dial tcp"):
		return SMTPDiag{Code: "dial", Temporary: true}
	case has("x509:") || has("tls") && has("handshake", "certificate"):
		return SMTPDiag{Code: "tls"}
	case has("5.7.8", "535", "username and password not accepted", "authentication failed"):
		return SMTPDiag{Code: "auth"}
	case has("4.7.0", "rate limit", "try again later", "temporarily unavailable", "451", "421"):
		return SMTPDiag{Code: "rate_limited", Temporary: true}
	case has("5.1.1", "user unknown", "mailbox not found"):
		return SMTPDiag{Code: "invalid_recipient"}
	case has("5.7.1", "message rejected", "dmarc", "spf"):
		return SMTPDiag{Code: "rejected"}
	}
	if _, ok := err.(net.Error); ok {
		return SMTPDiag{Code: "network", Temporary: true}
	}
	return SMTPDiag{Code: "unknown"}
}
