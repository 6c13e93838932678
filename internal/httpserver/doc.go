// Package httpserver wraps net/http.Server for the admin endpoints: the
// listen address is validated up front, timeouts come from configuration
// and shutdown is graceful and bounded.
package httpserver
