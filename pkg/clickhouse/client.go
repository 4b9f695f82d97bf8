package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
)

// Endpoint identifies the server and the account the pool logs in with.
type Endpoint struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

func (e Endpoint) addr() string {
	port := e.Port
	if port == 0 {
		port = 9000
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

type pool struct {
	maxOpen  int
	maxIdle  int
	lifetime time.Duration
}

// Option adjusts the driver options or the pool before the client connects.
type Option func(*ch.Options, *pool)

// WithPool bounds the connection pool.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(_ *ch.Options, p *pool) {
		p.maxOpen, p.maxIdle, p.lifetime = maxOpen, maxIdle, lifetime
	}
}

// WithHTTP switches from the native protocol to HTTP.
func WithHTTP(enabled bool) Option {
	return func(o *ch.Options, _ *pool) {
		if enabled {
			o.Protocol = ch.HTTP
		}
	}
}

// WithTimeouts sets dial and read timeouts. Zero keeps the default.
func WithTimeouts(dial, read time.Duration) Option {
	return func(o *ch.Options, _ *pool) {
		if dial > 0 {
			o.DialTimeout = dial
		}
		if read > 0 {
			o.ReadTimeout = read
		}
	}
}

// WithAsyncInsert lets the server buffer inserts. With wait the insert
// returns only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) Option {
	return func(o *ch.Options, _ *pool) {
		if !enabled {
			return
		}
		o.Settings["async_insert"] = 1
		if wait {
			o.Settings["wait_for_async_insert"] = 1
		}
	}
}

// WithMaxExecutionTime caps each query on the server. Sub-second values are
// ignored since the setting is in whole seconds.
func WithMaxExecutionTime(d time.Duration) Option {
	return func(o *ch.Options, _ *pool) {
		if secs := int(d / time.Second); secs > 0 {
			o.Settings["max_execution_time"] = secs
		}
	}
}

// Client is a database/sql pool on the ClickHouse driver.
type Client struct {
	db       *sql.DB
	database string
}

func buildOptions(ep Endpoint, opts []Option) (*ch.Options, pool) {
	database := ep.Database
	if database == "" {
		database = "default"
	}
	o := &ch.Options{
		Addr: []string{ep.addr()},
		Auth: ch.Auth{
			Database: database,
			Username: ep.User,
			Password: ep.Password,
		},
		DialTimeout: 5 * time.Second,
		ReadTimeout: 30 * time.Second,
		Settings:    ch.Settings{},
	}
	p := pool{maxOpen: 4, maxIdle: 2, lifetime: 10 * time.Minute}
	for _, opt := range opts {
		opt(o, &p)
	}
	return o, p
}

// NewClient opens the pool and pings the server within the dial timeout.
func NewClient(ctx context.Context, ep Endpoint, opts ...Option) (*Client, error) {
	if ep.Host == "" {
		return nil, errors.New("clickhouse: host is required")
	}
	o, p := buildOptions(ep, opts)

	db := ch.OpenDB(o)
	db.SetMaxOpenConns(p.maxOpen)
	db.SetMaxIdleConns(p.maxIdle)
	db.SetConnMaxLifetime(p.lifetime)

	pingCtx, cancel := context.WithTimeout(ctx, o.DialTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping %s: %w", o.Addr[0], err)
	}
	return &Client{db: db, database: o.Auth.Database}, nil
}

func (c *Client) DB() *sql.DB { return c.db }

// Database is the database the pool authenticates against.
func (c *Client) Database() string { return c.database }

func (c *Client) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// InitSchema runs idempotent DDL statements in order and stops at the first
// failure.
func (c *Client) InitSchema(ctx context.Context, stmts []string) error {
	for i, stmt := range stmts {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
