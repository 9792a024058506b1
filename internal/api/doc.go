// Package api implements the console's HTTP API.
//
// # Overview
//
// Every route drives a [console.Console]. Mutating routes return an Outcome
// (`{kind, severity, message}`) whose kind picks the status code:
//
//   - success, duplicate, removed, info: 200
//   - invalid: 400
//   - unconfirmed: 409
//
// # Middleware
//
//	HTTP Request → body limit → rate limit → i18n → access log → Mux
//
// The rate limit protects the admin API itself, keyed by client IP. It is
// unrelated to the WAF rate-limit settings the console edits.
//
// # Live updates
//
// GET /api/ws upgrades to a websocket. Clients send
// `{"action":"subscribe","topics":["stats","logs"]}` and receive
// `{"topic":..., "data":...}` frames fed from the console's event hub.
package api
