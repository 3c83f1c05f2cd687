package redis

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Config holds the connection parameters of the backing Redis.
// URL wins over Host/Port/DB when set.
type Config struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	DB       int
	Password string

	// MaxRetries bounds consecutive failed connection attempts before giving up for good.
	MaxRetries int
	// RetryBase is multiplied by the attempt number to get the next delay.
	RetryBase time.Duration
	// RetryCeiling caps the delay between two attempts.
	RetryCeiling time.Duration
	// HealthInterval is how often a live connection is probed.
	HealthInterval time.Duration
	// PingTimeout bounds a single probe.
	PingTimeout time.Duration
}

const (
	DefaultHost           = "localhost"
	DefaultPort           = 6379
	DefaultMaxRetries     = 10
	DefaultRetryBase      = 50 * time.Millisecond
	DefaultRetryCeiling   = 2 * time.Second
	DefaultHealthInterval = 5 * time.Second
	DefaultPingTimeout    = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	if c.RetryCeiling <= 0 {
		c.RetryCeiling = DefaultRetryCeiling
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = DefaultHealthInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	return c
}

// Options converts the configuration into go-redis client options.
func (c Config) Options() (*backend.Options, error) {
	if c.URL != "" {
		opts, err := backend.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if opts.Password == "" {
			opts.Password = c.Password
		}
		return opts, nil
	}

	c = c.withDefaults()
	return &backend.Options{
		Addr:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

// Backoff returns the delay before the given retry attempt (1-based).
// It grows linearly with the attempt and is capped at RetryCeiling.
func (c Config) Backoff(attempt int) time.Duration {
	c = c.withDefaults()
	delay := time.Duration(attempt) * c.RetryBase
	if delay > c.RetryCeiling || delay <= 0 {
		return c.RetryCeiling
	}
	return delay
}

// Connector owns the lifecycle of the single shared Redis client.
// Connection problems never escape it: they are logged and reflected in IsReady.
// Safe for concurrent use.
type Connector struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	client *backend.Client
	cancel context.CancelFunc
	done   chan struct{}

	ready  atomic.Bool
	gaveUp atomic.Bool
	closed atomic.Bool
}

// ConnectorOption configures a Connector.
type ConnectorOption func(*Connector)

// WithLogger configures the connector logger.
func WithLogger(logger *slog.Logger) ConnectorOption {
	return func(c *Connector) {
		c.logger = logger
	}
}

// NewConnector creates a connector. Nothing is dialed until Initialize.
func NewConnector(cfg Config, opts ...ConnectorOption) *Connector {
	c := &Connector{
		cfg:    cfg.withDefaults(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize dials Redis, retrying with backoff. When the master switch is off,
// or when every attempt fails, the connector stays not ready for the rest of
// the process lifetime; the caller keeps running without persistence.
func (c *Connector) Initialize(ctx context.Context) {
	if !c.cfg.Enabled {
		c.logger.Info("session persistence disabled by configuration")
		return
	}

	opts, err := c.cfg.Options()
	if err != nil {
		c.logger.Error("invalid redis configuration, session persistence disabled", "err", err)
		return
	}

	c.mu.Lock()
	if c.client != nil || c.closed.Load() {
		c.mu.Unlock()
		return
	}
	client := backend.NewClient(opts)
	c.client = client
	c.mu.Unlock()

	if err := c.connect(ctx, client); err != nil {
		c.gaveUp.Store(true)
		c.logger.Error("could not connect to redis, session persistence disabled",
			"addr", opts.Addr,
			"err", err,
		)
		return
	}
	c.logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)

	superCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.supervise(superCtx, client, done)
}

// IsReady is true only when persistence is enabled and the connection is live.
// It stays false for good once Shutdown has started.
func (c *Connector) IsReady() bool {
	return c.cfg.Enabled && !c.closed.Load() && c.ready.Load()
}

// GaveUp reports whether the retry budget was exhausted.
// Once true, the connector never becomes ready again.
func (c *Connector) GaveUp() bool {
	return c.gaveUp.Load()
}

// Client returns the shared go-redis client, or nil before Initialize / after Shutdown.
func (c *Connector) Client() *backend.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// Shutdown stops supervision and closes the client. It waits for the
// supervisor at most until ctx is done; close errors are logged.
// A shut down connector cannot be initialized again.
func (c *Connector) Shutdown(ctx context.Context) {
	c.closed.Store(true)
	c.ready.Store(false)

	c.mu.Lock()
	client, cancel, done := c.client, c.cancel, c.done
	c.client, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			c.logger.Warn("redis supervisor still running at shutdown deadline", "err", ctx.Err())
		}
	}

	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		c.logger.Warn("error closing redis connection", "err", err)
		return
	}
	c.logger.Debug("redis connection closed")
}

// connect pings until success or until MaxRetries consecutive failures.
func (c *Connector) connect(ctx context.Context, client *backend.Client) error {
	err := c.ping(ctx, client)
	for attempt := 1; err != nil; attempt++ {
		if attempt > c.cfg.MaxRetries {
			return fmt.Errorf("%w: %d retries exhausted: %v", domain.ErrConnection, c.cfg.MaxRetries, err)
		}

		delay := c.cfg.Backoff(attempt)
		c.logger.Warn("redis unavailable, retrying",
			"attempt", attempt,
			"delay", delay,
			"err", err,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = c.ping(ctx, client)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

func (c *Connector) ping(ctx context.Context, client *backend.Client) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.PingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

// supervise probes the connection and runs the reconnect policy on failure.
func (c *Connector) supervise(ctx context.Context, client *backend.Client, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.cfg.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		err := c.ping(ctx, client)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		c.ready.Store(false)
		c.logger.Warn("lost connection to redis", "err", err)

		if err := c.connect(ctx, client); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.gaveUp.Store(true)
			c.logger.Error("giving up on redis, session persistence disabled", "err", err)
			return
		}
		c.logger.Info("reconnected to redis")
	}
}
