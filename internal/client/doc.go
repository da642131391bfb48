// Package client is the HTTP client the pickstore CLI uses to read and
// patch the document held by a running server.
package client
