package options

import (
	"fmt"
	"regexp"

	"github.com/spf13/pflag"
)

var _ IOptions = (*PostgresOptions)(nil)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresOptions configures the Postgres telemetry sink. An empty DSN disables it.
type PostgresOptions struct {
	DSN      string `json:"dsn" mapstructure:"dsn"`
	Table    string `json:"table" mapstructure:"table"`
	MaxConns int32  `json:"max-conns" mapstructure:"max-conns"`
	// CreateTable issues CREATE TABLE IF NOT EXISTS on startup.
	CreateTable bool `json:"create-table" mapstructure:"create-table"`
}

func NewPostgresOptions() *PostgresOptions {
	return &PostgresOptions{
		Table:       "device_telemetry",
		MaxConns:    10,
		CreateTable: true,
	}
}

func (o *PostgresOptions) Enabled() bool {
	return o != nil && o.DSN != ""
}

func (o *PostgresOptions) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	errors := []error{}

	if !tableName.MatchString(o.Table) {
		errors = append(errors, fmt.Errorf("--postgres.table %q is not a valid table name", o.Table))
	}
	if o.MaxConns <= 0 {
		errors = append(errors, fmt.Errorf("--postgres.max-conns must be positive"))
	}

	return errors
}

func (o *PostgresOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.DSN, "postgres.dsn", o.DSN, "Postgres connection string. Empty disables the Postgres sink.")
	fs.StringVar(&o.Table, "postgres.table", o.Table, "Table receiving telemetry rows.")
	fs.Int32Var(&o.MaxConns, "postgres.max-conns", o.MaxConns, "Maximum size of the connection pool.")
	fs.BoolVar(&o.CreateTable, "postgres.create-table", o.CreateTable, "Create the telemetry table if it does not exist.")
}
