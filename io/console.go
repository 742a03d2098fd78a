// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package io provides the console devices of the LC-3 system.
// A console is a keyboard (polled through the KBSR/KBDR registers, or read
// blocking by the GETC and IN traps) plus a character display.
//
// Tape adapts any io.Reader and io.Writer pair, and is used for pipes and
// tests. Terminal drives an interactive tty in raw mode.
package io

import (
	"io"
)

// Keyboard is the input half of a console.
type Keyboard interface {
	// Poll returns a pending key without blocking.
	// ok is false if no key is available.
	Poll() (key byte, ok bool)
	// Key blocks until a key is available.
	Key() (key byte, err error)
}

// Console is a keyboard with a display.
type Console interface {
	Keyboard
	io.Writer
}
