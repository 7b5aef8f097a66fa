// Package transport moves form submissions over HTTP. HTTP implements
// form.Transport on the client side; Handler is the matching server that
// re-validates a submitted payload against the same form spec and answers
// with a verdict the client can decode.
package transport
