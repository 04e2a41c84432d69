package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("DIRECTORY_DRIVER", "memory")
	t.Setenv("KEYSTORE_DRIVER", "fs")
	t.Setenv("KEYSTORE_PATH", t.TempDir())
	return filepath.Join(t.TempDir(), "missing.yaml")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestKeyInit_IsStable(t *testing.T) {
	cfg := setupEnv(t)
	first, err := run(t, "--config", cfg, "--out", "json", "key", "init")
	require.NoError(t, err)
	second, err := run(t, "--config", cfg, "--out", "json", "key", "init")
	require.NoError(t, err)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal([]byte(first), &a))
	require.NoError(t, json.Unmarshal([]byte(second), &b))
	require.Equal(t, "fs", a["driver"])
	require.NotEmpty(t, a["fingerprint"])
	require.Equal(t, a["fingerprint"], b["fingerprint"])
}

func TestIssueThenVerify(t *testing.T) {
	cfg := setupEnv(t)
	url, err := run(t, "--config", cfg, "issue",
		"--email", "a@x.com",
		"--address", "8056c2e21c",
		"--field", "role=host",
		"--base-url", "https://auth.holo.host/v1/response",
	)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://auth.holo.host/v1/response?"))

	out, err := run(t, "--config", cfg, "--out", "json", "verify", url)
	require.NoError(t, err)
	var claim map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &claim))
	require.Equal(t, "a@x.com", claim["email"])
	require.Equal(t, "8056c2e21c", claim["zerotier_address"])
	require.Equal(t, "host", claim["role"])

	tampered := strings.Replace(url, "8056c2e21c", "deadbeef00", 1)
	_, err = run(t, "--config", cfg, "verify", tampered)
	require.Error(t, err)
}

func TestIssue_RequiresEmailAndBase(t *testing.T) {
	cfg := setupEnv(t)
	_, err := run(t, "--config", cfg, "issue", "--base-url", "https://x/v1/response")
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "issue", "--email", "a@x.com")
	require.Error(t, err)
	_, err = run(t, "--config", cfg, "issue", "--email", "a@x.com", "--field", "novalue", "--base-url", "https://x/")
	require.Error(t, err)
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "Error:", "registration", "code", "deleted")
	require.NoError(t, err)
	require.Equal(t, "error-deleted-rc", out)

	out, err = run(t, "classify", "something else")
	require.NoError(t, err)
	require.Equal(t, "error-generic", out)
}

func TestAllowlistCheck(t *testing.T) {
	cfg := setupEnv(t)
	out, err := run(t, "--config", cfg, "allowlist", "check", "ops@holo.host")
	require.NoError(t, err)
	require.Contains(t, out, "allowed=true")
	require.Contains(t, out, "internal=true")

	out, err = run(t, "--config", cfg, "allowlist", "check", "e@evil.com")
	require.NoError(t, err)
	require.Contains(t, out, "allowed=false")
}
