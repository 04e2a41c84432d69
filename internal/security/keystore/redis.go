package keystore

import (
	"context"
	"errors"

	rdb "github.com/redis/go-redis/v9"
)

// Redis persiste la clave con SETNX (create-if-absent atómico en el servidor).
type Redis struct {
	client *rdb.Client
	prefix string
}

// NewRedis crea un backend sobre un cliente go-redis ya configurado.
func NewRedis(client *rdb.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + ":" + name
}

func (r *Redis) Get(ctx context.Context, name string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.key(name)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Redis) PutIfAbsent(ctx context.Context, name string, value []byte) (bool, error) {
	return r.client.SetNX(ctx, r.key(name), value, 0).Result()
}
