// Package app wires the sentiment pipeline, result cache, and history
// store into the service the HTTP layer talks to.
package app
