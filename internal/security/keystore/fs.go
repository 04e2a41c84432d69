package keystore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FS guarda la clave como archivo (0600) dentro de dir.
//
// PutIfAbsent escribe a un temporal, fsync, y publica con os.Link: link(2)
// falla con EEXIST si el destino ya existe, así que sólo un escritor gana.
type FS struct {
	dir string
}

// NewFS crea el backend; dir se crea si no existe.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("keystore: mkdir %s: %w", dir, err)
	}
	return &FS{dir: dir}, nil
}

func (f *FS) path(name string) string { return filepath.Join(f.dir, name) }

func (f *FS) Get(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(f.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}

func (f *FS) PutIfAbsent(_ context.Context, name string, value []byte) (bool, error) {
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return false, fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := tmp.Chmod(0o600); err != nil {
		return false, fmt.Errorf("chmod temp: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		return false, fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return false, fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp: %w", err)
	}

	if err := os.Link(tmpPath, f.path(name)); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("link: %w", err)
	}
	return true, nil
}
