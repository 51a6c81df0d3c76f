// Package api implements the gateway's HTTP surface: request handlers
// that orchestrate downstream calls through the response cache, the
// fault translator that maps downstream failures to client-facing
// status codes, and the router wiring it all together.
package api
