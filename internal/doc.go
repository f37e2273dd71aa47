// Package internal contains the implementation packages for cargo-docserver.
//
// # Package Organization
//
//   - docpath: request path to on-disk path resolution
//   - mimetype: content type inference by file extension
//   - metadata: doc root lookup via cargo metadata or Cargo.toml, with caching
//   - server: HTTP front end, routing and the documentation handler
//   - rebuild: rebuild trigger, command runner and signal sources
//   - watcher: file system monitoring with debouncing
//   - livereload: websocket notifications to open pages after a rebuild
//   - config: configuration loading and validation
//   - logging: structured logging
//   - errors: typed errors, HTTP status mapping and user-facing suggestions
//   - validation: command, argument, origin and URL checks
//   - version: build information
//
// # Request Flow
//
// A request reaches the server router, the documentation handler asks the
// metadata provider for the current doc root, docpath resolves the request
// path below it and the file is returned with the inferred content type.
// The rebuild trigger runs alongside; each finished build invalidates the
// metadata cache and, with live reload on, tells open pages to refresh.
//
// # Concurrency
//
//   - Builds are serialized by a single trigger goroutine
//   - Rebuild signals queued during a build collapse into one further build
//   - The metadata cache and the live reload client set are mutex protected
//   - The documentation tree itself is read without locking
package internal
