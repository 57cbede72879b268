// Package fetcher downloads remote archives to local files.
//
// A fetch follows redirects explicitly, aborts transfers that stop receiving
// data for longer than the inactivity window, reports progress and retries the
// whole download according to a RetryPolicy. A failed attempt never leaves a
// partial file behind.
package fetcher
