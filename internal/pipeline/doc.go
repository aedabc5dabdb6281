// Package pipeline wires the scanner and the metadata, destination and mover
// stages into one run.
//
// Each stage runs in its own goroutine and hands records downstream through a
// bounded queue. The first fatal error cancels the run; a cancelled parent
// context lets the stages drain for the configured grace period before Run
// gives up with ErrShutdownTimeout. Non-dry runs hold an flock in the
// destination directory so two runs cannot race on the same library.
package pipeline
