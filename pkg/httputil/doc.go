// Package httputil provides the HTTP plumbing used by REST-backed providers.
//
// # Overview
//
//   - [Client]: JSON requests with default headers, status mapping, retries
//     and HTTP observability hooks
//   - [Retry]: retry with exponential backoff for [RetryableError]s
//
// # Retry
//
// Only errors wrapped in [RetryableError] are retried. [Client] wraps
// network failures, 429 and 5xx responses; everything else fails fast:
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return client.PostJSON(ctx, url, body, &out)
//	})
package httputil
