// Package logger provides leveled, colorized console output.
package logger

import (
	"github.com/fatih/color"
)

// Info prints informational messages in green.
var Info = color.New(color.FgGreen).PrintfFunc()

// Warn prints warning messages in yellow.
var Warn = color.New(color.FgYellow).PrintfFunc()

// Error prints error messages in red.
var Error = color.New(color.FgRed).PrintfFunc()

// Debug prints diagnostic messages in cyan when enabled via Init, and is a
// no-op otherwise.
var Debug func(format string, a ...any) = func(format string, a ...any) {}

// Init enables or disables debug output.
func Init(enableDebug bool) {
	if enableDebug {
		Debug = color.New(color.FgCyan).PrintfFunc()
	} else {
		Debug = func(format string, a ...any) {}
	}
}
