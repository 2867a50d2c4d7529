package mypermobil

import (
	"context"
	"net/http"
	"time"
)

// TokenLifetime is the default validity requested for a new token.
const TokenLifetime = 365 * 24 * time.Hour

// LinkOption overrides a session value for a single link call.
type LinkOption func(*linkParams)

type linkParams struct {
	application string
	email       string
	region      string
	code        string
}

// LinkApplication uses application instead of the session's application name.
func LinkApplication(application string) LinkOption {
	return func(p *linkParams) { p.application = application }
}

// LinkEmail uses email instead of the session's email.
func LinkEmail(email string) LinkOption {
	return func(p *linkParams) { p.email = email }
}

// LinkRegion uses region instead of the session's region.
func LinkRegion(region string) LinkOption {
	return func(p *linkParams) { p.region = region }
}

// LinkCode uses code instead of the session's code.
func LinkCode(code string) LinkOption {
	return func(p *linkParams) { p.code = code }
}

func (c *Client) linkParams(options []LinkOption) linkParams {
	p := linkParams{
		application: c.Application(),
		email:       c.Email(),
		region:      c.Region(),
		code:        c.Code(),
	}
	for _, option := range options {
		option(&p)
	}
	return p
}

// RequestApplicationCode asks the backend to email a one-time code to the
// session's email address for the session's region. Options override the
// session values for this call only.
func (c *Client) RequestApplicationCode(ctx context.Context, options ...LinkOption) error {
	p := c.linkParams(options)
	if c.Authenticated() {
		return clientError("already authenticated")
	}
	application := p.application
	if application == "" {
		return clientError("missing application name")
	}
	email, err := ValidateEmail(p.email)
	if err != nil {
		return err
	}
	region, err := ValidateRegion(p.region)
	if err != nil {
		return err
	}

	target := region + EndpointApplicationLinks
	body := map[string]string{"username": email, "application": application}
	resp, err := c.Request(ctx, MethodPost, target, body, http.Header{})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, resp.Text()))
	}
	return nil
}

// RequestApplicationToken exchanges the session's code for a bearer token.
// An empty expirationDate requests a token valid for TokenLifetime. It
// returns the token and the expiration date that was requested; neither is
// stored on the session. Options override the session values for this call
// only.
func (c *Client) RequestApplicationToken(ctx context.Context, expirationDate string, options ...LinkOption) (string, string, error) {
	p := c.linkParams(options)
	if expirationDate == "" {
		expirationDate = c.now().Add(TokenLifetime).Format(DateLayout)
	}
	if c.Authenticated() {
		return "", "", clientError("already authenticated")
	}
	email, err := ValidateEmail(p.email)
	if err != nil {
		return "", "", err
	}
	region, err := ValidateRegion(p.region)
	if err != nil {
		return "", "", err
	}
	code, err := ValidateCode(p.code)
	if err != nil {
		return "", "", err
	}
	expirationDate, err = validateExpirationDateAt(expirationDate, c.now())
	if err != nil {
		return "", "", err
	}

	target := region + EndpointApplicationAuthentications
	body := map[string]string{
		"username":       email,
		"code":           code,
		"application":    p.application,
		"expirationDate": expirationDate,
	}
	resp, err := c.Request(ctx, MethodPost, target, body, http.Header{})
	if err != nil {
		return "", "", err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(resp.Body, &payload); err != nil {
			return "", "", c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, "invalid response"))
		}
		return payload.Token, expirationDate, nil
	case http.StatusUnauthorized:
		return "", "", c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, "email not registered for region"))
	case http.StatusForbidden:
		return "", "", c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, "incorrect code"))
	case 430:
		return "", "", c.linkError(resp, MethodPost, target, &Error{
			Type:       ErrorTypeEula,
			Message:    "please accept the EULA",
			StatusCode: resp.StatusCode,
			Timestamp:  time.Now(),
		})
	case http.StatusBadRequest, http.StatusInternalServerError:
		return "", "", c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, backendMessage(resp)))
	default:
		return "", "", c.linkError(resp, MethodPost, target, apiError(resp.StatusCode, resp.Text()))
	}
}

// Deauthenticate deletes the application link of an authenticated session.
// The session stays authenticated locally until Reset is called. Options
// override the session's application, email and region for this call only.
func (c *Client) Deauthenticate(ctx context.Context, options ...LinkOption) error {
	auth, err := c.AuthHeader()
	if err != nil {
		return err
	}
	p := c.linkParams(options)
	application := p.application
	if application == "" {
		return clientError("missing application name")
	}
	if _, err := ValidateEmail(p.email); err != nil {
		return err
	}
	region, err := ValidateRegion(p.region)
	if err != nil {
		return err
	}

	target := region + EndpointApplicationLinks
	body := map[string]string{"application": application}
	resp, err := c.Request(ctx, MethodDelete, target, body, http.Header{"Authorization": {auth}})
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusNoContent {
		return c.linkError(resp, MethodDelete, target, apiError(resp.StatusCode, resp.Text()))
	}
	return nil
}

// backendMessage prefers the "error" field of a JSON body over the raw text.
func backendMessage(resp *Response) string {
	tree, err := resp.JSON()
	if err != nil {
		return resp.Text()
	}
	if obj, ok := tree.(map[string]interface{}); ok {
		if msg, ok := obj["error"].(string); ok {
			return msg
		}
	}
	return resp.Text()
}

func (c *Client) linkError(resp *Response, method, target string, e *Error) *Error {
	e.Method, e.URL = method, target
	c.metrics.RecordError(e.Type, method, target)
	if c.debug != nil && c.debug.Enabled && c.logger != nil {
		c.logger.Warn("Link request rejected", "method", method, "status", resp.StatusCode, "error", e.Message)
	}
	return e
}
