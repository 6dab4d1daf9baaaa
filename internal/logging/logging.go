// Package logging provides the process-wide log helpers. Call sites tag
// messages with a [COMPONENT] prefix, e.g. logging.Logf("[STORAGE] ...").
package logging

import "log"

// Logf writes a formatted message to the standard logger.
func Logf(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// Fatalf logs a formatted message and exits. Reserved for startup failures.
func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}
