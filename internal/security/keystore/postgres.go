package keystore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/dropDatabas3/holoauth/migrations/postgres"
)

// Postgres persiste la clave en la tabla holoauth_settings.
// INSERT ... ON CONFLICT DO NOTHING da la semántica create-if-absent.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres crea el backend y asegura el schema.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	stmts, err := migrations.Ordered()
	if err != nil {
		return nil, fmt.Errorf("keystore: load schema: %w", err)
	}
	for _, ddl := range stmts {
		if _, err := pool.Exec(ctx, ddl); err != nil {
			return nil, fmt.Errorf("keystore: ensure schema: %w", err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, name string) ([]byte, error) {
	const q = `SELECT value FROM holoauth_settings WHERE name = $1`
	var v []byte
	if err := p.pool.QueryRow(ctx, q, name).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (p *Postgres) PutIfAbsent(ctx context.Context, name string, value []byte) (bool, error) {
	const q = `INSERT INTO holoauth_settings (name, value) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`
	tag, err := p.pool.Exec(ctx, q, name, value)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
