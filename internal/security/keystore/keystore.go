// Package keystore materializa y persiste la única clave HMAC del proceso.
//
// La clave se crea una sola vez (primer acceso) si no existe y desde ahí es
// de sólo lectura. Todos los backends implementan PutIfAbsent con semántica
// create-if-absent atómica: si dos procesos compiten en el primer arranque,
// ambos terminan usando la clave que quedó persistida.
package keystore

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dropDatabas3/holoauth/internal/observability/logger"
)

const (
	// KeySize es el largo de la clave generada (256 bits).
	KeySize = 32
	// DefaultName es el nombre lógico con el que se persiste la clave.
	DefaultName = "hmac_key"
)

var (
	// ErrNotFound lo devuelve Backend.Get cuando la clave no existe todavía.
	ErrNotFound = errors.New("keystore: key not found")
	// ErrInvalidKey indica material persistido con largo insuficiente.
	ErrInvalidKey = errors.New("keystore: stored key is too short")
)

// Key es material simétrico opaco.
type Key []byte

// Fingerprint devuelve un identificador corto y no reversible de la clave
// (primeros 8 bytes de SHA-256, hex). Útil para logs y health.
func (k Key) Fingerprint() string {
	sum := sha256.Sum256(k)
	return hex.EncodeToString(sum[:8])
}

// String nunca expone el material.
func (k Key) String() string { return "key:" + k.Fingerprint() }

// Backend es la persistencia durable de la clave.
type Backend interface {
	// Get devuelve la clave guardada bajo name o ErrNotFound.
	Get(ctx context.Context, name string) ([]byte, error)

	// PutIfAbsent guarda value sólo si name no existe. created=false significa
	// que otro escritor llegó antes; el llamador debe releer con Get.
	PutIfAbsent(ctx context.Context, name string, value []byte) (created bool, err error)
}

// Store resuelve la clave de registro sobre un Backend.
// Se construye una vez al arrancar y se inyecta en el signer.
type Store struct {
	backend Backend
	name    string
	rand    io.Reader

	mu  sync.Mutex
	key Key
}

// Option configura un Store.
type Option func(*Store)

// WithName cambia el nombre lógico de la clave.
func WithName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.name = name
		}
	}
}

// WithRandom reemplaza la fuente de aleatoriedad (tests).
func WithRandom(r io.Reader) Option {
	return func(s *Store) { s.rand = r }
}

// New crea un Store sobre backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend, name: DefaultName, rand: rand.Reader}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetOrCreate devuelve la clave de registro, creándola si no existe.
// El resultado se cachea en memoria tras el primer éxito; los llamadores
// concurrentes del mismo proceso se serializan en el mutex.
func (s *Store) GetOrCreate(ctx context.Context) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	log := logger.From(ctx).With(logger.Component("keystore"), logger.Key(s.name))

	raw, err := s.backend.Get(ctx, s.name)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		fresh := make([]byte, KeySize)
		if _, err := io.ReadFull(s.rand, fresh); err != nil {
			return nil, fmt.Errorf("keystore: generate: %w", err)
		}
		created, err := s.backend.PutIfAbsent(ctx, s.name, fresh)
		if err != nil {
			return nil, fmt.Errorf("keystore: persist: %w", err)
		}
		if !created {
			log.Info("key created concurrently by another writer, using stored value")
		}
		// Releer siempre: la clave de registro es la persistida, no la generada.
		raw, err = s.backend.Get(ctx, s.name)
		if err != nil {
			return nil, fmt.Errorf("keystore: reread: %w", err)
		}
	default:
		return nil, fmt.Errorf("keystore: read: %w", err)
	}

	if len(raw) < KeySize {
		return nil, ErrInvalidKey
	}

	s.key = Key(append([]byte(nil), raw...))
	log.Info("signing key ready", logger.String("fingerprint", s.key.Fingerprint()))
	return s.key, nil
}
