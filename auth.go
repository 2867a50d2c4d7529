package mypermobil

import (
	"fmt"
	"sync"
	"time"
)

// Credentials is the credential bundle of one session and the guard around
// it. Until Authenticate succeeds every field may be set; afterwards only the
// product id may change and privileged calls may use AuthHeader.
//
// A successful Deauthenticate call does not flip the authenticated flag.
// Once the backend acknowledged it, the caller returns the session to the
// unauthenticated state with Reset and may then link it again.
type Credentials struct {
	mu sync.RWMutex

	application    string
	email          string
	region         string
	code           string
	token          string
	expirationDate string
	productID      string
	authenticated  bool

	now func() time.Time
}

func newCredentials(application string, now func() time.Time) *Credentials {
	return &Credentials{application: application, now: now}
}

func (c *Credentials) set(field string, dst *string, value string, validate func(string) (string, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return clientError("cannot change %s after authentication", field)
	}
	if validate != nil {
		v, err := validate(value)
		if err != nil {
			return err
		}
		value = v
	}
	*dst = value
	return nil
}

// SetApplication sets the application name used when linking to the backend.
func (c *Credentials) SetApplication(application string) error {
	return c.set("application", &c.application, application, nil)
}

// SetEmail validates and sets the account email.
func (c *Credentials) SetEmail(email string) error {
	return c.set("email", &c.email, email, ValidateEmail)
}

// SetRegion validates and sets the region base URL.
func (c *Credentials) SetRegion(region string) error {
	return c.set("region", &c.region, region, ValidateRegion)
}

// SetCode validates and sets the one-time code sent by email.
func (c *Credentials) SetCode(code string) error {
	return c.set("code", &c.code, code, ValidateCode)
}

// SetToken validates and sets the bearer token.
func (c *Credentials) SetToken(token string) error {
	return c.set("token", &c.token, token, ValidateToken)
}

// SetExpirationDate validates and sets the token expiration date.
func (c *Credentials) SetExpirationDate(date string) error {
	return c.set("expiration date", &c.expirationDate, date, func(s string) (string, error) {
		return validateExpirationDateAt(s, c.now())
	})
}

// SetProductID validates and sets the product id. It stays settable after
// authentication.
func (c *Credentials) SetProductID(id string) error {
	v, err := ValidateProductID(id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.productID = v
	c.mu.Unlock()
	return nil
}

// Application returns the application name.
func (c *Credentials) Application() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.application }

// Email returns the account email.
func (c *Credentials) Email() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.email }

// Region returns the region base URL.
func (c *Credentials) Region() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.region }

// Code returns the one-time code.
func (c *Credentials) Code() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.code }

// Token returns the bearer token. Use String for anything that gets logged.
func (c *Credentials) Token() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.token }

// ExpirationDate returns the token expiration date in DateLayout.
func (c *Credentials) ExpirationDate() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expirationDate
}

// ProductID returns the id of the product the endpoints are expanded with.
func (c *Credentials) ProductID() string { c.mu.RLock(); defer c.mu.RUnlock(); return c.productID }

// Authenticated reports whether Authenticate has succeeded.
func (c *Credentials) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

// Authenticate marks the session authenticated once application, region,
// email, token and expiration date are all present and valid. Nothing is
// changed when it fails.
func (c *Credentials) Authenticate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return clientError("already authenticated")
	}
	if c.application == "" {
		return clientError("missing application name")
	}
	if _, err := ValidateRegion(c.region); err != nil {
		return err
	}
	if _, err := ValidateEmail(c.email); err != nil {
		return err
	}
	if _, err := ValidateToken(c.token); err != nil {
		return err
	}
	if _, err := validateExpirationDateAt(c.expirationDate, c.now()); err != nil {
		return err
	}
	c.authenticated = true
	return nil
}

// Reauthenticate clears token, expiration date and code so a new token can
// be requested. It only applies to an unauthenticated session.
func (c *Credentials) Reauthenticate() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authenticated {
		return clientError("already authenticated")
	}
	if c.application == "" {
		return clientError("missing application name")
	}
	c.token = ""
	c.expirationDate = ""
	c.code = ""
	c.authenticated = false
	return nil
}

// Reset leaves the authenticated state after the link was deleted: token,
// expiration date and code are cleared and the credential setters work again.
// Application, email, region and product id are kept.
func (c *Credentials) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.authenticated {
		return clientError("not authenticated")
	}
	c.token = ""
	c.expirationDate = ""
	c.code = ""
	c.authenticated = false
	return nil
}

// AuthHeader returns the Authorization header value for privileged calls.
func (c *Credentials) AuthHeader() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.authenticated {
		return "", clientError("not authenticated")
	}
	return "Bearer " + c.token, nil
}

// String renders the bundle with the token redacted.
func (c *Credentials) String() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	token := ""
	if c.token != "" {
		token = "<redacted>"
	}
	return fmt.Sprintf("MyPermobil(%s, %s, %s, %s, %s, %s)",
		c.application, c.email, c.region, c.code, token, c.expirationDate)
}
