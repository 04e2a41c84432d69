// Package allowlist decide quién puede pedir un challenge: direcciones de un
// dominio interno o emails dados de alta explícitamente.
package allowlist

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Store guarda los emails permitidos fuera de los dominios internos.
type Store interface {
	Contains(ctx context.Context, email string) (bool, error)
	Add(ctx context.Context, emails ...string) error
	Remove(ctx context.Context, email string) error
}

// List combina dominios internos y un Store.
type List struct {
	domains []string
	store   Store
}

// New crea una List. store puede ser nil (sólo dominios internos).
func New(internalDomains []string, store Store) *List {
	ds := make([]string, 0, len(internalDomains))
	for _, d := range internalDomains {
		d = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(d), "@"))
		if d != "" {
			ds = append(ds, d)
		}
	}
	return &List{domains: ds, store: store}
}

// IsInternal reporta si el email pertenece a un dominio interno.
func (l *List) IsInternal(email string) bool {
	e := normalize(email)
	for _, d := range l.domains {
		if strings.HasSuffix(e, "@"+d) {
			return true
		}
	}
	return false
}

// Allowed: interno o presente en el Store.
func (l *List) Allowed(ctx context.Context, email string) (bool, error) {
	if normalize(email) == "" {
		return false, nil
	}
	if l.IsInternal(email) {
		return true, nil
	}
	if l.store == nil {
		return false, nil
	}
	return l.store.Contains(ctx, normalize(email))
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ─── memory ───

// Memory es un Store en proceso respaldado por go-cache (sin expiración).
type Memory struct {
	c *cache.Cache
}

func NewMemory(emails ...string) *Memory {
	m := &Memory{c: cache.New(cache.NoExpiration, 0)}
	_ = m.Add(context.Background(), emails...)
	return m
}

func (m *Memory) Contains(_ context.Context, email string) (bool, error) {
	_, ok := m.c.Get(normalize(email))
	return ok, nil
}

func (m *Memory) Add(_ context.Context, emails ...string) error {
	for _, e := range emails {
		if e = normalize(e); e != "" {
			m.c.Set(e, struct{}{}, cache.NoExpiration)
		}
	}
	return nil
}

func (m *Memory) Remove(_ context.Context, email string) error {
	m.c.Delete(normalize(email))
	return nil
}

// ─── redis ───

// Redis guarda la lista en un SET compartido entre instancias.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis usa el SET <prefix>:allowlist.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	key := "allowlist"
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &Redis{client: client, key: key}
}

func (r *Redis) Contains(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.client.SIsMember(ctx, r.key, normalize(email)).Result()
}

func (r *Redis) Add(ctx context.Context, emails ...string) error {
	members := make([]any, 0, len(emails))
	for _, e := range emails {
		if e = normalize(e); e != "" {
			members = append(members, e)
		}
	}
	if len(members) == 0 {
		return nil
	}
	return r.client.SAdd(ctx, r.key, members...).Err()
}

func (r *Redis) Remove(ctx context.Context, email string) error {
	return r.client.SRem(ctx, r.key, normalize(email)).Err()
}
