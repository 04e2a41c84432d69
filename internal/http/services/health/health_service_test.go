package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/holoauth/internal/security/keystore"
)

func TestCheck_Ready(t *testing.T) {
	svc := NewHealthService(Deps{
		Version:        "1.2.3",
		Keys:           keystore.New(keystore.NewMemory()),
		DirectoryCheck: func(context.Context) error { return nil },
		Inflight:       func() int { return 2 },
	})
	resp := svc.Check(context.Background())

	require.Equal(t, "ready", resp.Status)
	require.Equal(t, "ok", resp.Components["keystore"].Status)
	require.Equal(t, "ok", resp.Components["directory"].Status)
	require.Equal(t, "disabled", resp.Components["redis"].Status)
	require.NotEmpty(t, resp.KeyID)
	require.Equal(t, 2, resp.Inflight)
}

func TestCheck_DegradedOnRedis(t *testing.T) {
	svc := NewHealthService(Deps{
		Keys:           keystore.New(keystore.NewMemory()),
		DirectoryCheck: func(context.Context) error { return nil },
		RedisCheck:     func(context.Context) error { return errors.New("dial tcp") },
	})
	resp := svc.Check(context.Background())
	require.Equal(t, "degraded", resp.Status)
	require.Equal(t, "error", resp.Components["redis"].Status)
}

func TestCheck_UnavailableOnDirectoryOrKeystore(t *testing.T) {
	svc := NewHealthService(Deps{
		Keys:           keystore.New(keystore.NewMemory()),
		DirectoryCheck: func(context.Context) error { return errors.New("401 unauthorized") },
	})
	require.Equal(t, "unavailable", svc.Check(context.Background()).Status)

	svc = NewHealthService(Deps{DirectoryCheck: func(context.Context) error { return nil }})
	resp := svc.Check(context.Background())
	require.Equal(t, "unavailable", resp.Status)
	require.Equal(t, "error", resp.Components["keystore"].Status)
}
