package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	mail "github.com/go-mail/mail"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/holoauth/internal/reconcile"
)

type captureSender struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, m Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func isHolo(email string) bool { return strings.HasSuffix(email, "@holo.host") }

func TestNotifier_SendChallenge(t *testing.T) {
	s := &captureSender{}
	n := New(s, isHolo)

	require.NoError(t, n.SendChallenge(context.Background(), "dev@holo.host", map[string]any{"response_url": "https://x"}))
	require.NoError(t, n.SendChallenge(context.Background(), "a@x.com", map[string]any{"response_url": "https://y"}))

	require.Equal(t, Message{To: "dev@holo.host", Alias: "challenge", Tag: "Internal", Model: map[string]any{"response_url": "https://x"}}, s.msgs[0])
	require.Equal(t, "External", s.msgs[1].Tag)
}

func TestNotifier_NotifyOutcome(t *testing.T) {
	s := &captureSender{}
	n := New(s, isHolo)

	err := n.NotifyOutcome(context.Background(), reconcile.Outcome{Recipient: "a@x.com", Success: false, Detail: "Invalid registration code"})
	require.NoError(t, err)
	require.Equal(t, Message{
		To:    "a@x.com",
		Alias: "error-invalid-rc",
		Tag:   "External error-invalid-rc",
		Model: map[string]any{"email": "a@x.com", "success": false, "data": "Invalid registration code", "alias": "error-invalid-rc"},
	}, s.msgs[0])

	require.NoError(t, n.NotifyOutcome(context.Background(), reconcile.Outcome{Recipient: "dev@holo.host", Success: true, Detail: "agent.holohost.net"}))
	require.Equal(t, "Internal success", s.msgs[1].Tag)
}

func TestNotifier_Errors(t *testing.T) {
	boom := errors.New("boom")
	n := New(&captureSender{err: boom}, nil)
	require.ErrorIs(t, n.SendChallenge(context.Background(), "a@x.com", nil), boom)
	require.Error(t, n.SendChallenge(context.Background(), " ", nil))
	require.Equal(t, "External", n.Group("dev@holo.host"))
}

func TestTemplates_EveryAliasRenders(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	aliases := []string{
		AliasChallenge, AliasNotWhitelisted,
		reconcile.AliasSuccess, reconcile.AliasInvalidRC, reconcile.AliasDeletedRC,
		reconcile.AliasInvalidConfig, reconcile.AliasMemProofGeneration, reconcile.AliasGeneric,
	}
	for _, a := range aliases {
		r, err := tpl.Render(a, map[string]any{"data": "agent.holohost.net", "response_url": "https://auth/v1/response?data=x"})
		require.NoError(t, err, a)
		require.NotEmpty(t, r.Subject, a)
		require.NotEmpty(t, r.HTML, a)
		require.NotEmpty(t, r.Text, a)
	}

	r, err := tpl.Render(AliasChallenge, map[string]any{"response_url": "https://auth/v1/response?data=x&signature=y"})
	require.NoError(t, err)
	require.Contains(t, r.Text, "https://auth/v1/response?data=x&signature=y")
	require.Contains(t, r.HTML, "https://auth/v1/response?data=x&amp;signature=y")

	_, err = tpl.Render("nope", nil)
	require.ErrorIs(t, err, ErrUnknownAlias)
}

func TestTemplates_DirOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "success.txt"), []byte("custom {{.email}}"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.html"), []byte("<b>{{.email}}</b>"), 0o600))

	tpl, err := LoadTemplates(dir)
	require.NoError(t, err)

	r, err := tpl.Render("success", map[string]any{"email": "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, "custom a@x.com", r.Text)
	require.NotEmpty(t, r.HTML, "embedded html stays")

	require.True(t, tpl.Has("extra"))
	r, err = tpl.Render("extra", map[string]any{"email": "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, defaultSubject, r.Subject)
}

func TestSMTPSender_BuildsMessage(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)

	s := NewSMTPSender("smtp.example", 587, "Holo <no-reply@holo.host>", "u", "p", tpl)
	var got *mail.Message
	s.dial = func(m *mail.Message) error { got = m; return nil }

	require.NoError(t, s.Send(context.Background(), Message{To: "a@x.com", Alias: "success", Tag: "External success", Model: map[string]any{"data": "x"}}))
	require.NotNil(t, got)
	require.Equal(t, []string{"a@x.com"}, got.GetHeader("To"))
	require.Equal(t, []string{subjects["success"]}, got.GetHeader("Subject"))
	require.Equal(t, []string{"External success"}, got.GetHeader("X-Tag"))
}

func TestSMTPSender_TemporaryFailureIsUnavailable(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)
	s := NewSMTPSender("smtp.example", 587, "f@x", "", "", tpl)

	s.dial = func(*mail.Message) error { return errors.New("dial tcp 10.0.0.1:587: connection refused") }
	require.ErrorIs(t, s.Send(context.Background(), Message{To: "a@x.com", Alias: "success"}), ErrUnavailable)

	s.dial = func(*mail.Message) error { return errors.New("535 5.7.8 authentication failed") }
	err = s.Send(context.Background(), Message{To: "a@x.com", Alias: "success"})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnavailable)

	require.ErrorIs(t, s.Send(context.Background(), Message{To: "a@x.com", Alias: "nope"}), ErrUnknownAlias)
}

func TestLogSender(t *testing.T) {
	tpl, err := LoadTemplates("")
	require.NoError(t, err)
	require.NoError(t, NewLogSender(tpl).Send(context.Background(), Message{To: "a@x.com", Alias: "challenge"}))
}

func TestDiagnoseSMTP(t *testing.T) {
	cases := map[string]SMTPDiag{
		"i/o timeout":                {Code: "timeout", Temporary: true},
		"dial tcp: no such host":     {Code: "dial", Temporary: true},
		"x509: certificate expired":  {Code: "tls"},
		"535 authentication failed":  {Code: "auth"},
		"421 try again later":        {Code: "rate_limited", Temporary: true},
		"550 5.1.1 user unknown":     {Code: "invalid_recipient"},
		"550 5.7.1 message rejected": {Code: "rejected"},
		"something else entirely":    {Code: "unknown"},
	}
	for in, want := range cases {
		require.Equal(t, want, DiagnoseSMTP(errors.New(in)), in)
	}
	require.Equal(t, SMTPDiag{Code: "unknown"}, DiagnoseSMTP(nil))
}
