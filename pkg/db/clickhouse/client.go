package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/domos-network/domosx/pkg/retry"
	"github.com/domos-network/domosx/pkg/utils"
)

// Client wraps a ClickHouse connection for the archival store.
type Client struct {
	Logger *zap.Logger
	Db     driver.Conn
	Name   string // target database
}

const (
	MergeTree          = "MergeTree"
	ReplacingMergeTree = "ReplacingMergeTree"
)

// New connects to ClickHouse using CLICKHOUSE_ADDR and ensures the target
// database exists. Connection setup retries with backoff: the archive store
// being briefly unavailable at boot must not kill the validator.
func New(ctx context.Context, logger *zap.Logger, dbName string) (*Client, error) {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	client := &Client{Logger: logger, Name: SanitizeName(dbName)}

	addr := utils.Env("CLICKHOUSE_ADDR", "localhost:9000")
	username := utils.Env("CLICKHOUSE_USER", "default")
	password := utils.Env("CLICKHOUSE_PASSWORD", "")

	options := &clickhouse.Options{
		Addr: strings.Split(addr, ","),
		Auth: clickhouse.Auth{
			Database: "default",
			Username: username,
			Password: password,
		},
		DialTimeout:     30 * time.Second,
		MaxOpenConns:    utils.EnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    utils.EnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: utils.EnvDuration("CLICKHOUSE_CONN_MAX_LIFETIME", time.Hour),
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}

	err := retry.WithBackoff(connCtx, retry.DefaultConfig(), logger, "clickhouse_connection", func() error {
		conn, err := clickhouse.Open(options)
		if err != nil {
			return fmt.Errorf("open clickhouse connection: %w", err)
		}
		client.Db = conn
		if err := conn.Ping(connCtx); err != nil {
			return fmt.Errorf("ping clickhouse: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := client.Db.Exec(ctx, fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS "%s"`, client.Name)); err != nil {
		return nil, fmt.Errorf("create database %s: %w", client.Name, err)
	}

	logger.Info("Connected to ClickHouse",
		zap.String("addr", addr),
		zap.String("database", client.Name))
	return client, nil
}

// Exec runs a statement against the connection.
func (c *Client) Exec(ctx context.Context, query string, args ...any) error {
	return c.Db.Exec(ctx, query, args...)
}

// PrepareBatch prepares a batch insert.
func (c *Client) PrepareBatch(ctx context.Context, query string) (driver.Batch, error) {
	return c.Db.PrepareBatch(ctx, query)
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.Db.Close()
}

// Health pings the connection.
func (c *Client) Health(ctx context.Context) error {
	return c.Db.Ping(ctx)
}

// SanitizeName sanitizes a database name to be compatible with ClickHouse.
func SanitizeName(id string) string {
	s := strings.ToLower(id)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, ".", "_")
	return s
}
