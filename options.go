package mypermobil

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCacheTTL sets how long successful fetches are reused
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// WithErrorTTL sets how long failed fetches are replayed
func WithErrorTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.errorTTL = ttl
	}
}

// WithStore sets the store behind the endpoint coordinator
func WithStore(store Store[string, interface{}]) Option {
	return func(c *Client) {
		c.store = store
	}
}

// WithLRUCache bounds the endpoint coordinator to size entries
func WithLRUCache(size int) Option {
	return func(c *Client) {
		store, err := NewLRUStore[string, interface{}](size)
		if err != nil {
			c.optionErrs = append(c.optionErrs, fmt.Errorf("lru cache: %w", err))
			return
		}
		c.store = store
	}
}

// WithClock replaces time.Now for TTLs and expiration checks
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithMetrics enables Prometheus metrics collection
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsRegistry enables metrics on a custom registerer
func WithMetricsRegistry(registry prometheus.Registerer) Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollectorWithRegistry(registry)
	}
}

// WithMetricsCollector sets a custom metrics collector
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithDebug enables debug logging with default configuration
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
	}
}

// WithDebugConfig sets custom debug configuration
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithLogger sets a custom logger for debug output
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSimpleLogger enables debug logging with an hclog console logger
func WithSimpleLogger() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		c.logger = NewSimpleLogger()
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// WithMiddleware adds middleware to the request chain
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *Client) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithRateLimit caps outgoing network calls to r per second with the given burst
func WithRateLimit(r float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(r), burst)
	}
}

// WithRegionsURL overrides the region listing URL
func WithRegionsURL(url string) Option {
	return func(c *Client) {
		c.regionsURL = url
	}
}

// WithEndpointTable replaces the table used to resolve items
func WithEndpointTable(table *EndpointTable) Option {
	return func(c *Client) {
		c.table = table
	}
}

func seed(field string, set func(*Client) error) Option {
	return func(c *Client) {
		if err := set(c); err != nil {
			c.optionErrs = append(c.optionErrs, fmt.Errorf("%s: %w", field, err))
		}
	}
}

// WithEmail seeds the session email
func WithEmail(email string) Option {
	return seed("email", func(c *Client) error { return c.SetEmail(email) })
}

// WithRegion seeds the session region base URL
func WithRegion(region string) Option {
	return seed("region", func(c *Client) error { return c.SetRegion(region) })
}

// WithCode seeds the one-time code
func WithCode(code string) Option {
	return seed("code", func(c *Client) error { return c.SetCode(code) })
}

// WithToken seeds the bearer token
func WithToken(token string) Option {
	return seed("token", func(c *Client) error { return c.SetToken(token) })
}

// WithExpirationDate seeds the token expiration date
func WithExpirationDate(date string) Option {
	return seed("expiration date", func(c *Client) error { return c.SetExpirationDate(date) })
}

// WithProductID seeds the product id
func WithProductID(id string) Option {
	return seed("product id", func(c *Client) error { return c.SetProductID(id) })
}

// ValidateConfiguration validates the client configuration and returns an
// error listing every problem found.
func (c *Client) ValidateConfiguration() error {
	var result *multierror.Error

	result = multierror.Append(result, c.optionErrs...)
	result = multierror.Append(result, c.validateTransportConfig()...)
	result = multierror.Append(result, c.validateCacheConfig()...)
	result = multierror.Append(result, c.validateDebugConfig()...)
	result = multierror.Append(result, c.validateMiddlewareConfig()...)

	if err := result.ErrorOrNil(); err != nil {
		return &Error{
			Type:      ErrorTypeClient,
			Message:   "configuration validation failed",
			Cause:     err,
			Timestamp: time.Now(),
		}
	}

	return nil
}

func (c *Client) validateTransportConfig() []error {
	var errs []error

	if c.httpClient == nil {
		errs = append(errs, fmt.Errorf("HTTP client cannot be nil"))
	}
	if c.timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if c.timeout > 10*time.Minute {
		errs = append(errs, fmt.Errorf("timeout > 10m may cause requests to hang for too long"))
	}
	if c.limiter != nil {
		if c.limiter.Limit() <= 0 {
			errs = append(errs, fmt.Errorf("rate limit must be positive"))
		}
		if c.limiter.Burst() <= 0 {
			errs = append(errs, fmt.Errorf("rate burst must be positive"))
		}
	}
	if c.regionsURL == "" {
		errs = append(errs, fmt.Errorf("regions URL cannot be empty"))
	}
	if c.table == nil {
		errs = append(errs, fmt.Errorf("endpoint table cannot be nil"))
	}

	return errs
}

func (c *Client) validateCacheConfig() []error {
	var errs []error

	if c.cacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("cacheTTL must be positive"))
	}
	if c.errorTTL <= 0 {
		errs = append(errs, fmt.Errorf("errorTTL must be positive"))
	}
	if c.errorTTL > c.cacheTTL {
		errs = append(errs, fmt.Errorf("errorTTL must not exceed cacheTTL"))
	}
	if c.now == nil {
		errs = append(errs, fmt.Errorf("clock cannot be nil"))
	}

	return errs
}

func (c *Client) validateDebugConfig() []error {
	var errs []error

	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			errs = append(errs, fmt.Errorf("debug RequestIDGen must be set when debug is enabled"))
		}
		if c.logger == nil {
			errs = append(errs, fmt.Errorf("logger must be set when debug is enabled"))
		}
	}

	return errs
}

func (c *Client) validateMiddlewareConfig() []error {
	var errs []error

	for i, middleware := range c.middleware {
		if middleware == nil {
			errs = append(errs, fmt.Errorf("middleware[%d] cannot be nil", i))
		}
	}

	return errs
}
