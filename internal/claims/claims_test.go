package claims

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncode_CanonicalAcrossInsertionOrder(t *testing.T) {
	vu := time.UnixMilli(1700000000000)

	a := New(map[string]any{"email": "a@x.com", "zerotier_address": "abcdef0123", "holochain_agent_id": "agent"}, vu)
	b := New(map[string]any{"holochain_agent_id": "agent", "zerotier_address": "abcdef0123", "email": "a@x.com"}, vu)

	ab, err := a.Encode()
	require.NoError(t, err)
	bb, err := b.Encode()
	require.NoError(t, err)

	require.Equal(t, ab, bb)
	require.Equal(t, `{"email":"a@x.com","holochain_agent_id":"agent","valid_until":1700000000000,"zerotier_address":"abcdef0123"}`, string(ab))
}

func TestNew_DropsCallerValidUntil(t *testing.T) {
	vu := time.UnixMilli(42)
	c := New(map[string]any{"email": "a@x.com", "valid_until": 9999999999999}, vu)

	_, present := c.Fields[FieldValidUntil]
	require.False(t, present)

	b, err := c.Encode()
	require.NoError(t, err)
	require.Contains(t, string(b), `"valid_until":42`)
}

func TestDecode_Accessors(t *testing.T) {
	c, err := Decode([]byte(`{"email":" a@x.com ","holochain_agent_id":"agent","zerotier_address":"abcdef0123","holoport_url":"https://agent.holohost.net","valid_until":1700000000000}`))
	require.NoError(t, err)

	require.Equal(t, "a@x.com", c.Email())
	require.Equal(t, "agent", c.DeviceID())
	require.Equal(t, "abcdef0123", c.Address())
	require.Equal(t, "https://agent.holohost.net", c.ReachabilityURL())
	require.Equal(t, int64(1700000000000), c.ValidUntil.UnixMilli())
	require.Equal(t, "", c.String("missing"))
}

func TestDecode_Malformed(t *testing.T) {
	cases := []string{
		``,
		`null`,
		`[]`,
		`"text"`,
		`{"email":"a@x.com"}`,
		`{"valid_until":"soon"}`,
		`{"valid_until":1.5}`,
		`{"valid_until":1} {"x":2}`,
		`{"valid_until":`,
	}
	for _, in := range cases {
		_, err := Decode([]byte(in))
		require.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestExpired(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	require.False(t, Claim{ValidUntil: time.UnixMilli(1_000_000)}.Expired(now))
	require.False(t, Claim{ValidUntil: time.UnixMilli(1_000_001)}.Expired(now))
	require.True(t, Claim{ValidUntil: time.UnixMilli(999_999)}.Expired(now))
}
