// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"
	"io"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is a console on a tty.
// RawMode turns off line buffering and echo, so that keys are seen by the
// program as they are pressed. Restore must be called before exit.
type Terminal struct {
	Input  *os.File
	Output *os.File

	original unix.Termios
	raw      bool
}

var _ Console = (*Terminal)(nil)

// NewTerminal creates a terminal console on a pair of files.
func NewTerminal(input, output *os.File) (tc *Terminal) {
	tc = &Terminal{
		Input:  input,
		Output: output,
	}

	return
}

// IsTerminal returns true if the input is an interactive terminal.
func (tc *Terminal) IsTerminal() bool {
	return term.IsTerminal(int(tc.Input.Fd()))
}

// RawMode disables canonical input and echo.
func (tc *Terminal) RawMode() (err error) {
	if !tc.IsTerminal() {
		err = ErrNoTerminal
		return
	}

	fd := tc.Input.Fd()
	err = termios.Tcgetattr(fd, &tc.original)
	if err != nil {
		return
	}

	raw := tc.original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	err = termios.Tcsetattr(fd, termios.TCSANOW, &raw)
	if err != nil {
		return
	}

	tc.raw = true
	return
}

// Restore puts the terminal back the way RawMode found it.
func (tc *Terminal) Restore() (err error) {
	if !tc.raw {
		return
	}

	err = termios.Tcsetattr(tc.Input.Fd(), termios.TCSANOW, &tc.original)
	if err == nil {
		tc.raw = false
	}

	return
}

// Poll checks for a pending key without blocking.
func (tc *Terminal) Poll() (key byte, ok bool) {
	fds := []unix.PollFd{
		{Fd: int32(tc.Input.Fd()), Events: unix.POLLIN},
	}

	n, err := unix.Poll(fds, 0)
	if err != nil || n == 0 {
		return
	}

	if (fds[0].Revents & unix.POLLIN) == 0 {
		return
	}

	key, err = tc.Key()
	ok = err == nil
	return
}

// Key blocks until a key is pressed.
func (tc *Terminal) Key() (key byte, err error) {
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
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return
		}
	}
}

// Write sends output to the display.
func (tc *Terminal) Write(data []byte) (n int, err error) {
	return tc.Output.Write(data)
}
