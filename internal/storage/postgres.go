package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/hilayankonsky/movemix/internal/telemetry/tracing"
	"github.com/hilayankonsky/movemix/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS movemix_document
(
    key        VARCHAR PRIMARY KEY,
    body       BYTEA       NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Postgres keeps one row per key in the movemix_document table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the document table when it does not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, key string) (_ []byte, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	var body []byte
	err = p.db.QueryRow(
		ctx,
		`SELECT body FROM movemix_document WHERE key = $1`,
		key,
	).Scan(&body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if pkg.IsUndefinedTableError(err) {
			log.Warnln("postgres: document table missing, treating as first run")
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document %s: %w", key, err)
	}
	return body, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.set")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	tag, err := p.db.Exec(
		ctx,
		`INSERT INTO movemix_document (key, body, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", key, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("upsert document %s: no rows affected", key)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, key string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "postgres.remove")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("key", key))

	if _, err := p.db.Exec(ctx, `DELETE FROM movemix_document WHERE key = $1`, key); err != nil {
		if pkg.IsUndefinedTableError(err) {
			return nil
		}
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	return nil
}
