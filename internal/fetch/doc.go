// Package fetch retrieves page bodies for slotwatch.
//
// This package is internal to slotwatch and wraps a retrying HTTP client.
// Every request is a GET with browser-like headers, redirects are followed,
// and transient failures are retried according to a [Policy] modelled on the
// urllib3 Retry contract (bounded retries, exponential backoff, a fixed list
// of retryable status codes).
//
// The main components are:
//
//   - [Client]: retrying HTTP client with connection pooling and a body limit
//   - [Policy]: retry bounds, backoff factor and retryable statuses
//   - [Response]: result of fetching a single page
//
// Users of the slotwatch library should not need to interact with this
// package directly. Retry settings are configured through slotwatch options.
package fetch
