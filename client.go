package mypermobil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds every backend request.
	DefaultTimeout = 10 * time.Second

	maxResponseSize = 10 << 20
)

// Client is a MyPermobil session: a credential bundle guarded by the
// authentication state machine, a transport, and coordinators in front of
// every cacheable backend read. It is safe for concurrent use.
type Client struct {
	*Credentials

	httpClient *http.Client
	timeout    time.Duration
	middleware []Middleware
	limiter    *rate.Limiter
	regionsURL string
	table      *EndpointTable

	cacheTTL  time.Duration
	errorTTL  time.Duration
	store     Store[string, interface{}]
	endpoints *Coordinator[string, interface{}]
	regions   *Coordinator[string, map[string]Region]
	now       func() time.Time

	metrics *MetricsCollector
	debug   *DebugConfig
	logger  Logger

	closedMu sync.Mutex
	closed   bool

	optionErrs      []error
	validationError error
}

// New constructs a session for application using the provided functional
// options. A best effort validation is performed; call IsValid /
// ValidationError for errors.
func New(application string, options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		middleware: []Middleware{},
		regionsURL: GetRegionsURL,
		table:      DefaultEndpoints,
		cacheTTL:   DefaultCacheTTL,
		errorTTL:   DefaultErrorTTL,
		now:        time.Now,
		debug:      DefaultDebugConfig(),
	}
	client.Credentials = newCredentials(application, func() time.Time { return client.now() })

	for _, option := range options {
		option(client)
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}
	if client.now == nil {
		client.now = time.Now
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{}
	}

	var coordLogger Logger
	if client.debug != nil && client.debug.Enabled && client.debug.LogCache {
		coordLogger = client.logger
	}
	client.endpoints = NewCoordinator[string, interface{}](client.store, CoordinatorConfig{
		Name:     "endpoints",
		TTL:      client.cacheTTL,
		ErrorTTL: client.errorTTL,
		Now:      client.now,
		Metrics:  client.metrics,
		Logger:   coordLogger,
	})
	client.regions = NewCoordinator[string, map[string]Region](nil, CoordinatorConfig{
		Name:     "regions",
		TTL:      client.cacheTTL,
		ErrorTTL: client.errorTTL,
		Now:      client.now,
		Metrics:  client.metrics,
		Logger:   coordLogger,
	})

	return client
}

// Request sends one request to the backend and reads the whole response.
// A non-nil body is sent as JSON. When header is nil and the session is
// authenticated, the Authorization header is added.
//
// Transport failures come back as Connection errors wrapping ErrTimeout,
// ErrConnectionFailed or ErrProtocol; the response status is not inspected.
func (c *Client) Request(ctx context.Context, method, rawURL string, body interface{}, header http.Header) (*Response, error) {
	switch method {
	case MethodGet, MethodPost, MethodPut, MethodDelete:
	default:
		return nil, clientError("invalid request type %q", method)
	}
	if c.isClosed() {
		return nil, clientError("session is closed")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Type: ErrorTypeClient, Message: "invalid request body", Cause: err, Method: method, URL: rawURL, Timestamp: time.Now()}
		}
		reader = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, &Error{Type: ErrorTypeClient, Message: "invalid request", Cause: err, Method: method, URL: rawURL, Timestamp: time.Now()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if header == nil {
		if auth, err := c.AuthHeader(); err == nil {
			req.Header.Set("Authorization", auth)
		}
	} else {
		for k, values := range header {
			for _, v := range values {
				req.Header.Add(k, v)
			}
		}
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	start := time.Now()
	endpoint := getEndpointFromRequest(req)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Starting request", "requestID", requestID, "method", req.Method, "url", req.URL.String(), "endpoint", endpoint)
	}

	c.metrics.RecordRequestStart(req.Method, endpoint)
	defer c.metrics.RecordRequestEnd(req.Method, endpoint)

	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			// Wait refuses up front when the deadline cannot be met.
			if req.Context().Err() == nil {
				err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
			}
			c.metrics.RecordRequest(req.Method, endpoint, 0, time.Since(start))
			return nil, c.transportError(req, requestID, err)
		}
	}

	resp, err := c.executeMiddleware(req)
	if err != nil {
		c.metrics.RecordRequest(req.Method, endpoint, 0, time.Since(start))
		return nil, c.transportError(req, requestID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordRequest(req.Method, endpoint, resp.StatusCode, time.Since(start))
		return nil, c.transportError(req, requestID, err)
	}

	duration := time.Since(start)
	c.metrics.RecordRequest(req.Method, endpoint, resp.StatusCode, duration)

	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("Request finished", "requestID", requestID, "status", resp.StatusCode, "duration", duration, "endpoint", endpoint)
	}

	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (c *Client) executeMiddleware(req *http.Request) (*http.Response, error) {
	if len(c.middleware) == 0 {
		return c.httpClient.Do(req)
	}

	current := RoundTripperFunc(c.httpClient.Do)

	for i := len(c.middleware) - 1; i >= 0; i-- {
		middleware := c.middleware[i]
		next := current
		current = RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return middleware(r, next)
		})
	}

	return current.RoundTrip(req)
}

// transportError classifies a failure to complete the exchange.
func (c *Client) transportError(req *http.Request, requestID string, err error) *Error {
	e := &Error{
		Type:      ErrorTypeConnection,
		Method:    req.Method,
		URL:       req.URL.String(),
		Timestamp: time.Now(),
	}

	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		e.Message = "connection timeout"
		e.Cause = fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial"):
		e.Message = "connection error"
		e.Cause = fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	case errors.Is(err, context.Canceled) || errors.As(err, &urlErr):
		e.Message = "client error"
		e.Cause = fmt.Errorf("%w: %w", ErrProtocol, err)
	default:
		e.Type = ErrorTypeAPI
		e.Message = "unknown error"
		e.Cause = err
	}

	c.metrics.RecordError(e.Type, req.Method, getEndpointFromRequest(req))
	if c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Warn("Request failed", "requestID", requestID, "method", req.Method, "url", e.URL, "error", err.Error())
	}
	return e
}

// RequestEndpoint fetches endpoint for the current session and returns the
// decoded response tree. Concurrent calls for the same endpoint and
// credentials share one backend request, and the outcome is reused until it
// expires: successes for the cache TTL, failures for the shorter error TTL.
// Every caller gets its own copy of the tree.
func (c *Client) RequestEndpoint(ctx context.Context, endpoint string) (interface{}, error) {
	auth, err := c.AuthHeader()
	if err != nil {
		return nil, err
	}
	target := c.Region() + expandEndpoint(endpoint, c.ProductID())
	key := Key("request_endpoint", target, auth)

	tree, err := c.endpoints.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return c.fetchEndpoint(ctx, endpoint, target, auth)
	})
	if err != nil {
		return nil, c.waitError(ctx, endpoint, target, err)
	}
	return cloneTree(tree), nil
}

// waitError turns the context error of a caller that stopped waiting for a
// shared fetch into a connection error. Outcomes of the fetch pass through.
func (c *Client) waitError(ctx context.Context, endpoint, target string, err error) error {
	var e *Error
	if errors.As(err, &e) || ctx.Err() == nil || !errors.Is(err, ctx.Err()) {
		return err
	}
	sentinel, message := ErrProtocol, "client error"
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel, message = ErrTimeout, "connection timeout"
	}
	c.metrics.RecordError(ErrorTypeConnection, MethodGet, endpoint)
	return &Error{
		Type:      ErrorTypeConnection,
		Message:   message,
		Cause:     fmt.Errorf("%w: %w", sentinel, err),
		Method:    MethodGet,
		URL:       target,
		Timestamp: time.Now(),
	}
}

func (c *Client) fetchEndpoint(ctx context.Context, endpoint, target, auth string) (interface{}, error) {
	resp, err := c.Request(ctx, MethodGet, target, nil, http.Header{"Authorization": {auth}})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if tree, err := resp.JSON(); err == nil {
			return tree, nil
		}
	}

	message := backendMessage(resp)
	e := apiError(resp.StatusCode, message)
	e.Method, e.URL = MethodGet, target
	c.metrics.RecordError(e.Type, MethodGet, endpoint)
	return nil, e
}

// Endpoints returns the endpoint table used to resolve items.
func (c *Client) Endpoints() *EndpointTable {
	return c.table
}

// PurgeCache drops every memoized endpoint and region outcome.
func (c *Client) PurgeCache() {
	c.endpoints.Purge()
	c.regions.Purge()
}

// Close releases idle connections. Further requests fail.
func (c *Client) Close() error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	if c.closed {
		return clientError("session does not exist")
	}
	c.closed = true
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) isClosed() bool {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()
	return c.closed
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

func getEndpointFromRequest(req *http.Request) string {
	if req.URL == nil {
		return "unknown"
	}

	host := req.URL.Host
	path := req.URL.Path

	var builder strings.Builder
	builder.WriteString(host)

	if path != "" && path != "/" {
		builder.WriteString(path)
	} else {
		builder.WriteByte('/')
	}

	return builder.String()
}
