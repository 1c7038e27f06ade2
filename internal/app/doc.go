// Package app wires the issue dashboard together: configuration, logging,
// OpenTelemetry, the session store, the dashboard and health services, the
// live hub, and the chi router.
//
// # Initialization Flow
//
//  1. Load configuration from defaults, an optional YAML file and the environment
//  2. Initialize logging and observability
//  3. Resolve and create the data, logs and exports directories
//  4. Create the session store and services
//  5. Set up middleware, handlers and the HTTP server
//
// # Lifecycle
//
// Serve runs the HTTP server, the live hub and the session sweeper in one
// errgroup. Cancelling the context (cmd/web does so on SIGINT and SIGTERM)
// shuts the server down, disconnects live clients and flushes telemetry.
//
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
