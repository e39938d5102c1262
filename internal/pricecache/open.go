package pricecache

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendCSV      = "csv"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Options selects and configures a Store backend.
type Options struct {
	Backend     string
	CSVPath     string
	SQLitePath  string
	PostgresDSN string
}

// Open returns the Store named by opts.Backend. An empty backend means CSV.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendCSV:
		if opts.CSVPath == "" {
			return nil, fmt.Errorf("csv cache: path is required")
		}
		return NewCSVStore(opts.CSVPath), nil
	case BackendSQLite:
		if opts.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite cache: path is required")
		}
		return NewSQLiteStore(opts.SQLitePath)
	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres cache: dsn is required")
		}
		return NewPostgresStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
