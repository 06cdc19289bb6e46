// Package debug provides global debug logging flags
package debug

import "fmt"

// Enabled controls whether debug logging is active
var Enabled bool

// Metering controls whether per-frame metering logs are shown.
// Use --debug-metering to enable these very verbose logs
var Metering bool

// Focus controls whether per-frame autofocus and bake logs are shown.
var Focus bool

// Log prints a message only if debug mode is enabled
func Log(format string, args ...interface{}) {
	if Enabled {
		fmt.Printf(format, args...)
	}
}

// Logln prints a message with newline only if debug mode is enabled
func Logln(msg string) {
	if Enabled {
		fmt.Println(msg)
	}
}

// MeterLog prints a message only if metering debug mode is enabled
func MeterLog(format string, args ...interface{}) {
	if Metering {
		fmt.Printf(format, args...)
	}
}

// FocusLog prints a message only if focus debug mode is enabled
func FocusLog(format string, args ...interface{}) {
	if Focus {
		fmt.Printf(format, args...)
	}
}
