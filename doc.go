// Package mypermobil is a client for the MyPermobil wheelchair backend.
//
// A Client is one session. It holds a credential bundle behind a small
// authentication state machine and coordinates every cacheable read:
//
//   - Concurrent callers asking for the same endpoint share one network call
//   - Successful responses are reused for the cache TTL (5m by default)
//   - Failures are replayed for a shorter error TTL (10s) instead of re-hitting the backend
//   - Items such as RecordsDistance are resolved to the endpoint serving them
//     and extracted from the decoded response tree
//   - Region discovery, application linking and token issuance
//   - Prometheus metrics, hclog debug logging and an optional rate limit
//
// Typical usage:
//
//	client := mypermobil.New("my-app",
//	    mypermobil.WithEmail("user@example.com"),
//	    mypermobil.WithRegion("https://region.example.com"),
//	    mypermobil.WithToken(token),
//	    mypermobil.WithExpirationDate("2027-01-01"),
//	)
//	if err := client.Authenticate(); err != nil {
//	    return err
//	}
//	distance, err := client.RequestItem(ctx, mypermobil.RecordsDistance)
//
// Errors are *Error values; use IsClientError, IsAPIError, IsConnectionError
// and IsEulaError (or errors.Is with ErrClient and friends) to tell caller
// misuse from backend refusals and unreachable backends.
package mypermobil
