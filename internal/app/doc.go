// Package app wires the selector server together: configuration, logging,
// telemetry, the dataset, sessions, the websocket hub, services and the
// chi router.
//
// # Initialization Flow
//
//	1. Load configuration (defaults, config.yaml, .env, environment)
//	2. Initialize logging and OpenTelemetry
//	3. Load the dataset from a file or Google Sheets
//	4. Build the session store, websocket hub and services
//	5. Mount middleware and handlers
//
// # Middleware Order
//
//	RequestID → RealIP → StripSlashes → OTel → StructuredLogger →
//	Recoverer → SecurityHeaders → CORS → Session →
//	(RateLimiter → Timeout → Compress)
//
// The websocket and /metrics routes sit outside the rate limiter and the
// request timeout.
//
// # Graceful Shutdown
//
// Serve supervises the HTTP server, the hub and the session janitor with an
// errgroup. When the context ends the server drains within
// ShutdownTimeout, the hub closes every client and telemetry is flushed.
// Run adds SIGINT and SIGTERM handling. Nothing here calls os.Exit.
package app
