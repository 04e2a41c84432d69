package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/holoauth/internal/config"
	"github.com/dropDatabas3/holoauth/internal/directory"
	"github.com/dropDatabas3/holoauth/internal/notify"
	"github.com/dropDatabas3/holoauth/internal/rate"
)

func memoryConfig() *config.Config {
	c := &config.Config{}
	c.KeyStore.Driver = "memory"
	c.KeyStore.Name = "hmac_key"
	c.Allowlist.Driver = "memory"
	c.Allowlist.InternalDomains = []string{"holo.host"}
	c.Allowlist.Emails = []string{"a@x.com"}
	c.Directory.Driver = "memory"
	c.Email.Driver = "log"
	c.Rate.Driver = "memory"
	c.Rate.Limit = 1
	c.Rate.Window = time.Minute
	c.Redis.Prefix = "holoauth"
	return c
}

func TestOpen_MemoryStack(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	res, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer res.Close()
	require.Nil(t, res.Redis)
	require.Nil(t, res.RedisCheck())
	require.Nil(t, res.DBCheck())

	ks, err := res.KeyStore(ctx)
	require.NoError(t, err)
	codec, key, err := Codec(ctx, ks)
	require.NoError(t, err)
	require.True(t, codec.Verify(codec.Sign([]byte("x")), []byte("x")))
	require.NotEmpty(t, key.Fingerprint())

	list, err := res.Allowlist(ctx)
	require.NoError(t, err)
	ok, err := list.Allowed(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)

	_, isMemory := res.Directory().(*directory.Memory)
	require.True(t, isMemory)

	n, tpl, err := res.Notifier(list.IsInternal)
	require.NoError(t, err)
	require.NotNil(t, n)
	require.True(t, tpl.Has(notify.AliasChallenge))

	require.Nil(t, res.RateLimiter())
	cfg.Rate.Enabled = true
	_, isMem := res.RateLimiter().(*rate.MemoryLimiter)
	require.True(t, isMem)
}

func TestOpen_RedisStack(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := memoryConfig()
	cfg.Redis.Addr = mr.Addr()
	cfg.KeyStore.Driver = "redis"
	cfg.Allowlist.Driver = "redis"
	cfg.Rate.Enabled = true
	cfg.Rate.Driver = "redis"

	res, err := Open(ctx, cfg)
	require.NoError(t, err)
	defer res.Close()
	require.NotNil(t, res.Redis)
	require.NoError(t, res.RedisCheck()(ctx))

	ks, err := res.KeyStore(ctx)
	require.NoError(t, err)
	_, key, err := Codec(ctx, ks)
	require.NoError(t, err)

	raw, err := mr.Get("holoauth:hmac_key")
	require.NoError(t, err)
	require.Equal(t, string(key), raw)

	_, err = res.Allowlist(ctx)
	require.NoError(t, err)
	members, err := mr.Members("holoauth:allowlist")
	require.NoError(t, err)
	require.Contains(t, members, "a@x.com")

	lim := res.RateLimiter()
	first, err := lim.Allow(ctx, "k")
	require.NoError(t, err)
	require.True(t, first.Allowed)
	second, err := lim.Allow(ctx, "k")
	require.NoError(t, err)
	require.False(t, second.Allowed)
}

func TestOpen_RedisUnreachable(t *testing.T) {
	cfg := memoryConfig()
	cfg.KeyStore.Driver = "redis"
	cfg.Redis.Addr = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, cfg)
	require.Error(t, err)
}
