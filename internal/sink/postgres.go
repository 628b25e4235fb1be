package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/autopeer-io/fleetsim/internal/device"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres inserts one row per report into a jsonb-backed table.
type Postgres struct {
	db     execer
	pool   *pgxpool.Pool
	insert string
}

var _ device.Sink = (*Postgres)(nil)

func NewPostgres(ctx context.Context, opts *options.PostgresOptions) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}

	// Avoid "prepared statement already exists" behind connection poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	poolConfig.MaxConns = opts.MaxConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	p := newPostgres(pool, opts.Table)
	p.pool = pool

	if opts.CreateTable {
		if err := p.CreateTable(ctx, opts.Table); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return p, nil
}

func newPostgres(db execer, table string) *Postgres {
	return &Postgres{
		db: db,
		insert: fmt.Sprintf(
			`INSERT INTO %s (device_id, device_type, reported_at, data) VALUES ($1, $2, $3, $4)`, table),
	}
}

// CreateTable creates the telemetry table if it is missing. table must already be validated.
func (p *Postgres) CreateTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT        NOT NULL,
		device_type TEXT        NOT NULL,
		reported_at TIMESTAMPTZ NOT NULL,
		data        JSONB       NOT NULL
	)`, table)

	if _, err := p.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

func (p *Postgres) Publish(ctx context.Context, r *device.Report) error {
	data, err := json.Marshal(r.Data)
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, p.insert, r.DeviceID, r.DeviceType, time.UnixMilli(r.Timestamp).UTC(), string(data))
	if err != nil {
		return fmt.Errorf("postgres insert: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
