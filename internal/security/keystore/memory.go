package keystore

import (
	"context"

	gocache "github.com/patrickmn/go-cache"
)

// Memory guarda la clave en un go-cache sin expiración. Sólo dev/tests:
// la clave muere con el proceso.
type Memory struct{ c *gocache.Cache }

// NewMemory crea un backend en memoria.
func NewMemory() *Memory {
	return &Memory{c: gocache.New(gocache.NoExpiration, 0)}
}

func (m *Memory) Get(_ context.Context, name string) ([]byte, error) {
	v, ok := m.c.Get(name)
	if !ok {
		return nil, ErrNotFound
	}
	b, _ := v.([]byte)
	return append([]byte(nil), b...), nil
}

// PutIfAbsent usa Cache.Add, que falla si la key ya existe (atómico bajo el lock de go-cache).
func (m *Memory) PutIfAbsent(_ context.Context, name string, value []byte) (bool, error) {
	if err := m.c.Add(name, append([]byte(nil), value...), gocache.NoExpiration); err != nil {
		return false, nil
	}
	return true, nil
}
