package save

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps slots in a Postgres table, for hosts that share saves
// between machines.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the schema.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	_, err = pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS save_slots (
		slot     TEXT PRIMARY KEY,
		data     JSONB NOT NULL,
		saved_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Put(ctx context.Context, slot string, data []byte) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
	INSERT INTO save_slots (slot, data, saved_at) VALUES ($1, $2::jsonb, now())
	ON CONFLICT (slot) DO UPDATE SET data = EXCLUDED.data, saved_at = EXCLUDED.saved_at`,
		slot, string(data))
	if err != nil {
		return fmt.Errorf("writing slot %q: %w", slot, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, slot string) ([]byte, error) {
	var data string
	err := p.pool.QueryRow(ctx, `SELECT data::text FROM save_slots WHERE slot = $1`, slot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slot %q: %w", slot, err)
	}
	return []byte(data), nil
}

func (p *PostgresStore) Slots(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT slot FROM save_slots ORDER BY slot`)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	slots, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	return slots, nil
}

func (p *PostgresStore) Delete(ctx context.Context, slot string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM save_slots WHERE slot = $1`, slot)
	if err != nil {
		return fmt.Errorf("deleting slot %q: %w", slot, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%q: %w", slot, ErrSlotNotFound)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
