package mypermobil

import (
	"strings"
	"sync"
	"time"
)

const (
	testApplication = "test-app"
	testEmail       = "user@example.com"
	testExpiration  = "2027-06-01"
	testProductID   = "0123456789abcdef01234567"
)

var testToken = strings.Repeat("a", 256)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// newAuthenticatedClient returns a session pointed at region that already
// passed Authenticate.
func newAuthenticatedClient(region string, clock *fakeClock, options ...Option) *Client {
	opts := []Option{
		WithClock(clock.Now),
		WithEmail(testEmail),
		WithRegion(region),
		WithToken(testToken),
		WithExpirationDate(testExpiration),
		WithProductID(testProductID),
	}
	client := New(testApplication, append(opts, options...)...)
	if err := client.Authenticate(); err != nil {
		panic(err)
	}
	return client
}
