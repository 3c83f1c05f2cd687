package sticky

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/sticky/internal/logging"
	"github.com/aretw0/sticky/pkg/adapters/redis"
	"github.com/aretw0/sticky/pkg/domain"
	"github.com/aretw0/sticky/pkg/persistence"
	"github.com/aretw0/sticky/pkg/persistence/middleware"
	"github.com/aretw0/sticky/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// Version is overridden at build time with
// -ldflags "-X github.com/aretw0/sticky.Version=v1.2.3".
var Version = "dev"

// DefaultOpTimeout bounds a single store round-trip.
const DefaultOpTimeout = 2 * time.Second

// DefaultLockTTL is the lease of the cross-replica per-user lock.
const DefaultLockTTL = 10 * time.Second

// Client is a ready-to-use persistence service backed by Redis.
// The embedded Service methods never fail; see persistence.Service.
type Client struct {
	*persistence.Service

	connector *redis.Connector
	namespace string
	logger    *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	registerer  prometheus.Registerer
	namespace   string
	ttl         time.Duration
	opTimeout   time.Duration
	middlewares []middleware.Middleware
}

// WithLogger sets the logger shared by the connector and the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegisterer registers persistence metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithNamespace overrides the key namespace.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithTTL overrides the sliding expiry window.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithOpTimeout bounds each store round-trip. Zero disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(o *options) {
		o.opTimeout = d
	}
}

// WithMiddleware wraps the store. Middlewares run inside the timeout.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// Open connects to Redis and returns the service. It never fails: when
// persistence is disabled or Redis stays unreachable, the returned client
// simply reports IsEnabled() == false and every operation degrades.
func Open(ctx context.Context, cfg redis.Config, opts ...Option) *Client {
	o := options{
		logger:    logging.NewNop(),
		opTimeout: DefaultOpTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}

	connector := redis.NewConnector(cfg, redis.WithLogger(o.logger))
	connector.Initialize(ctx)

	mws := append([]middleware.Middleware{middleware.NewTimeoutMiddleware(o.opTimeout)}, o.middlewares...)
	backend := middleware.Chain(redis.NewStore(connector), mws...)

	svcOpts := []persistence.Option{
		persistence.WithLogger(o.logger),
		persistence.WithMetrics(persistence.NewMetrics(o.registerer)),
	}
	if o.namespace != "" {
		svcOpts = append(svcOpts, persistence.WithNamespace(o.namespace))
	}
	if o.ttl > 0 {
		svcOpts = append(svcOpts, persistence.WithTTL(o.ttl))
	}

	namespace := o.namespace
	if namespace == "" {
		namespace = domain.DefaultNamespace
	}

	return &Client{
		Service:   persistence.New(backend, svcOpts...),
		connector: connector,
		namespace: namespace,
		logger:    o.logger,
	}
}

// Connector exposes the underlying connection supervisor.
func (c *Client) Connector() *redis.Connector {
	return c.connector
}

// NewSessionManager returns a lifecycle owner that restores on Create and
// saves on Release, serialized per user across replicas through Redis.
func (c *Client) NewSessionManager(opts ...session.Option) *session.Manager {
	locker := redis.NewLocker(c.connector, lockPrefix(c.namespace))
	opts = append([]session.Option{
		session.WithLocker(locker, DefaultLockTTL),
		session.WithLogger(c.logger),
	}, opts...)
	return session.NewManager(c.Service, opts...)
}

// lockPrefix keeps lock keys out of the "<namespace>:" scan range:
// they share the namespace but diverge right after it.
func lockPrefix(namespace string) string {
	return namespace + "."
}

// Close stops connection supervision and closes the Redis client.
// It returns once done or when ctx expires, whichever comes first.
func (c *Client) Close(ctx context.Context) {
	c.connector.Shutdown(ctx)
}
