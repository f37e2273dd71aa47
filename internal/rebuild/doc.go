// Package rebuild regenerates the documentation tree on demand.
//
// A Trigger consumes Signals from a single channel fed by one or more
// Sources (stdin lines, file watcher batches). Builds never overlap: while a
// build is running, further signals wait in the channel, and once the build
// finishes all waiting signals are collapsed into a single follow-up build.
// A failed spawn or a non-zero exit is logged and the trigger returns to
// Idle; neither stops the server.
package rebuild
