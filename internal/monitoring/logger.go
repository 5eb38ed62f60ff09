// Package monitoring holds the diagnostic logger shared by the analysis
// stages.
package monitoring

import (
	"fmt"
	"log"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf
// and may be replaced with SetLogger so tests can capture or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Stagef logs one line tagged with the pipeline stage and condition, e.g.
// "[filter slow] excluded 3 of 120 trials".
func Stagef(stage, condition, format string, v ...interface{}) {
	Logf("[%s %s] %s", stage, condition, fmt.Sprintf(format, v...))
}

// Warnf logs a recoverable data-quality anomaly.
func Warnf(stage, condition, format string, v ...interface{}) {
	Logf("WARNING: [%s %s] %s", stage, condition, fmt.Sprintf(format, v...))
}
