package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/models"
)

const resourcesSchema = `
CREATE TABLE IF NOT EXISTS resources (
	service_name TEXT NOT NULL,
	service_type TEXT NOT NULL,
	org_id       TEXT NOT NULL,
	name         TEXT NOT NULL,
	properties   JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_by   TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (service_name, service_type, org_id, name)
)`

// PostgresStore is a ResourceStore backed by a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	poolConfig.MaxConns = 5

	connectCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if _, err := pool.Exec(ctx, "SELECT 1"); err != nil {
		pool.Close()
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if _, err := pool.Exec(ctx, resourcesSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring resources schema: %w", err)
	}

	logrus.Info("Database connection established")

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Create(ctx context.Context, resource models.Resource) error {
	properties, err := marshalProperties(resource.Properties)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, `
		INSERT INTO resources (service_name, service_type, org_id, name, properties, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`,
		resource.Service, resource.Type, resource.Org, resource.Name, properties, resource.CreatedBy)
	if err != nil {
		return fmt.Errorf("inserting resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, key models.ResourceKey) (models.Resource, error) {
	resource := models.Resource{ResourceKey: key}

	var properties []byte
	err := p.pool.QueryRow(ctx, `
		SELECT properties, created_by FROM resources
		WHERE service_name = $1 AND service_type = $2 AND org_id = $3 AND name = $4`,
		key.Service, key.Type, key.Org, key.Name).Scan(&properties, &resource.CreatedBy)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Resource{}, ErrNotFound
	}
	if err != nil {
		return models.Resource{}, fmt.Errorf("querying resource: %w", err)
	}

	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &resource.Properties); err != nil {
			return models.Resource{}, fmt.Errorf("decoding resource properties: %w", err)
		}
	}
	return resource, nil
}

func (p *PostgresStore) Update(ctx context.Context, resource models.Resource) error {
	properties, err := marshalProperties(resource.Properties)
	if err != nil {
		return err
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE resources SET properties = $5, updated_at = now()
		WHERE service_name = $1 AND service_type = $2 AND org_id = $3 AND name = $4`,
		resource.Service, resource.Type, resource.Org, resource.Name, properties)
	if err != nil {
		return fmt.Errorf("updating resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, key models.ResourceKey) error {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM resources
		WHERE service_name = $1 AND service_type = $2 AND org_id = $3 AND name = $4`,
		key.Service, key.Type, key.Org, key.Name)
	if err != nil {
		return fmt.Errorf("deleting resource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Close() {
	p.pool.Close()
}

func marshalProperties(properties map[string]any) ([]byte, error) {
	if properties == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("encoding resource properties: %w", err)
	}
	return data, nil
}
