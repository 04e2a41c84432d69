package allowlist

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestList_InternalDomain(t *testing.T) {
	l := New([]string{"@holo.host", " Example.org "}, nil)

	require.True(t, l.IsInternal("dev@holo.host"))
	require.True(t, l.IsInternal(" Dev@HOLO.host "))
	require.True(t, l.IsInternal("ops@example.org"))
	require.False(t, l.IsInternal("dev@notholo.host"))
	require.False(t, l.IsInternal("dev@holo.host.evil.com"))

	ok, err := l.Allowed(context.Background(), "someone@gmail.com")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = l.Allowed(context.Background(), "")
	require.NoError(t, err)
	require.False(t, ok)
}

func testStore(t *testing.T, s Store) {
	ctx := context.Background()
	l := New([]string{"holo.host"}, s)

	ok, err := l.Allowed(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Add(ctx, "A@X.com", ""))
	ok, err = l.Allowed(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Remove(ctx, "a@x.com"))
	ok, err = l.Allowed(ctx, "a@x.com")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
	ok, err := NewMemory("seed@x.com").Contains(context.Background(), "SEED@x.com")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	testStore(t, NewRedis(client, "holoauth"))

	require.NoError(t, NewRedis(client, "holoauth").Add(context.Background(), "b@x.com"))
	members, err := mr.Members("holoauth:allowlist")
	require.NoError(t, err)
	require.Contains(t, members, "b@x.com")
}
