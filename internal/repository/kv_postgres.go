package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgKVStore implementa KVStore sobre una tabla clave-valor en Postgres.
type PgKVStore struct {
	pool *pgxpool.Pool
}

func NewPgKVStore(pool *pgxpool.Pool) *PgKVStore {
	return &PgKVStore{pool: pool}
}

// Init crea la tabla si no existe.
func (s *PgKVStore) Init(ctx context.Context) error {
	const query = `
		CREATE TABLE IF NOT EXISTS client_state (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`
	_, err := s.pool.Exec(ctx, query)
	return err
}

func (s *PgKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `
		SELECT value
		FROM client_state
		WHERE key = $1
	`
	var value string
	err := s.pool.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *PgKVStore) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO client_state (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
	_, err := s.pool.Exec(ctx, query, key, value)
	return err
}

func (s *PgKVStore) Delete(ctx context.Context, key string) error {
	const query = `
		DELETE FROM client_state
		WHERE key = $1
	`
	_, err := s.pool.Exec(ctx, query, key)
	return err
}
