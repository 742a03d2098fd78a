// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"
	"io"
)

// Tape is a console over an io.Reader for keys and an io.Writer for the
// display. Every byte of Input is a key press; a Poll succeeds while Input
// has bytes left, so a Tape never reports an idle keyboard before its end.
type Tape struct {
	Input  io.Reader
	Output io.Writer

	pending []byte
}

var _ Console = (*Tape)(nil)

// Press queues keys ahead of the remaining Input.
func (tc *Tape) Press(keys ...byte) {
	tc.pending = append(tc.pending, keys...)
}

// Poll returns the next key, if any.
func (tc *Tape) Poll() (key byte, ok bool) {
	key, err := tc.Key()
	ok = err == nil
	return
}

// Key returns the next key, or ErrInputClosed at the end of Input.
func (tc *Tape) Key() (key byte, err error) {
	if len(tc.pending) > 0 {
		key = tc.pending[0]
		tc.pending = tc.pending[1:]
		return
	}

	if tc.Input == nil {
		err = ErrNoInput
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = tc.Input.Read(one[:])
		if n == 1 {
			key = one[0]
			err = nil
			return
		}
		if errors.Is(err, io.EOF) {
			err = ErrInputClosed
			return
		}
		if err != nil {
			return
		}
	}
}

// Write sends display output. Output is discarded if no writer is attached.
func (tc *Tape) Write(data []byte) (n int, err error) {
	if tc.Output == nil {
		n = len(data)
		return
	}

	return tc.Output.Write(data)
}
