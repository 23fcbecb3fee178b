package audio

import "log"

// EnableDebug turns on per-frame engine logging. Off by default; the update
// tick is hot.
var EnableDebug = false

// Debug logs a message if debug mode is enabled. Under GopherJS the stdlib
// logger writes to the browser console.
func Debug(args ...interface{}) {
	if EnableDebug {
		log.Println(args...)
	}
}

// Warn logs an isolated failure. Warnings are always emitted: a module being
// disabled is something the session owner should see once.
func Warn(args ...interface{}) {
	log.Println(append([]interface{}{"audio:"}, args...)...)
}
