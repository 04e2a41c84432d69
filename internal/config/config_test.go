package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsWithMemoryDirectory(t *testing.T) {
	t.Setenv("DIRECTORY_DRIVER", "memory")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "memory", c.KeyStore.Driver)
	require.Equal(t, "hmac_key", c.KeyStore.Name)
	require.Equal(t, 7*24*time.Hour, c.Challenge.Validity)
	require.Equal(t, 5*time.Second, c.Reconcile.ProbeInterval)
	require.Equal(t, 30*time.Minute, c.Reconcile.ProbeDeadline)
	require.Equal(t, "log", c.Email.Driver)
	require.Equal(t, []string{"holo.host"}, c.Allowlist.InternalDomains)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	p := writeYAML(t, `
server:
  addr: ":9000"
directory:
  driver: zerotier
  network_id: "yaml-net"
  api_token: "yaml-token"
reconcile:
  probe_interval: 2s
`)
	t.Setenv("ZEROTIER_NETWORK_ID", "env-net")
	t.Setenv("PROBE_INTERVAL", "7s")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Server.Addr)
	require.Equal(t, "env-net", c.Directory.NetworkID)
	require.Equal(t, "yaml-token", c.Directory.APIToken)
	require.Equal(t, 7*time.Second, c.Reconcile.ProbeInterval)
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]string{
		"zerotier sin token": `
directory:
  driver: zerotier
  network_id: abc
`,
		"keystore redis sin addr": `
directory: {driver: memory}
keystore: {driver: redis}
`,
		"keystore desconocido": `
directory: {driver: memory}
keystore: {driver: vault}
`,
		"smtp sin host": `
directory: {driver: memory}
email: {driver: smtp}
`,
		"prod sin response_base_url": `
app: {app_env: prod}
directory: {driver: memory}
server: {notify_token: s3cret}
`,
		"prod sin notify_token": `
app: {app_env: prod}
directory: {driver: memory}
challenge: {response_base_url: "https://auth.holo.host/v1/response"}
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeYAML(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoad_ProdWithPinnedBaseURL(t *testing.T) {
	c, err := Load(writeYAML(t, `
app: {app_env: prod}
directory: {driver: memory}
server: {notify_token: s3cret, trust_proxy: true}
challenge: {response_base_url: "https://auth.holo.host/v1/response"}
`))
	require.NoError(t, err)
	require.True(t, c.Server.TrustProxy)
	require.Equal(t, "https://auth.holo.host/v1/response", c.Challenge.ResponseBaseURL)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeYAML(t, "server: [unclosed"))
	require.Error(t, err)
}
