package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationName is reported to the server for every pooled connection.
const ApplicationName = "kakaoad-bridge"

var errEmptyMigration = errors.New("migration file is empty")

type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.ConnConfig.RuntimeParams["application_name"] == "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	logger = logger.With("component", "postgres", "database", cfg.ConnConfig.Database)
	logger.Debug("pool created", "max_conns", cfg.MaxConns)
	return &DB{Pool: pool, logger: logger}, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Ready pings the pool; used by the readiness endpoint.
func (db *DB) Ready(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// RunMigration applies the conversion_events schema from a single SQL file.
// Statements must be idempotent since it runs on every start.
func (db *DB) RunMigration(ctx context.Context, path string) error {
	stmt, err := readMigration(path)
	if err != nil {
		return err
	}
	if _, err := db.Pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("exec migration %s: %w", path, err)
	}
	db.logger.Info("migration applied", "path", path, "bytes", len(stmt))
	return nil
}

func readMigration(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read migration: %w", err)
	}
	stmt := strings.TrimSpace(string(b))
	if stmt == "" {
		return "", fmt.Errorf("%s: %w", path, errEmptyMigration)
	}
	return stmt, nil
}
