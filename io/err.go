// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Console errors
	ErrNoInput     = errors.New(f("no input attached"))
	ErrNoTerminal  = errors.New(f("not a terminal"))
	ErrInputClosed = errors.New(f("input closed"))
)
