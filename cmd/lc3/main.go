// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ezrec/lc3/emulator"
	"github.com/ezrec/lc3/io"
	"github.com/ezrec/lc3/translate"
)

const (
	EXIT_USAGE     = 2   // Exit code for command line errors.
	EXIT_INTERRUPT = 130 // Exit code when interrupted by a signal.
)

func usage() {
	out := flag.CommandLine.Output()
	translate.Fprintf(out, "Usage: %v [options] image.obj...\n", os.Args[0])
	fmt.Fprintln(out)
	flag.PrintDefaults()
}

// assemble a source file, optionally saving the image.
func assemble(emu *emulator.Emulator, source string, object string) (err error) {
	inf, err := os.Open(source)
	if err != nil {
		return
	}
	defer inf.Close()

	prog, err := emu.Assemble(inf)
	if err != nil {
		return
	}

	if len(object) == 0 {
		return
	}

	ouf, err := os.Create(object)
	if err != nil {
		return
	}

	_, err = prog.Image().WriteTo(ouf)
	if err != nil {
		ouf.Close()
		return
	}

	return ouf.Close()
}

func main() {
	var source string
	var object string
	var save bool
	var verbose bool

	flag.StringVar(&source, "a", "", ".asm file to assemble and load")
	flag.StringVar(&object, "o", "", ".obj file to save the assembled image to")
	flag.BoolVar(&save, "s", false, "Save the assembled image, do not execute")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.Usage = usage

	flag.Parse()

	if (flag.NArg() == 0 && len(source) == 0) || (save && len(source) == 0) {
		flag.Usage()
		os.Exit(EXIT_USAGE)
	}

	terminal := io.NewTerminal(os.Stdin, os.Stdout)

	emu := emulator.NewEmulator(terminal)
	emu.Verbose = verbose

	// The assembled source, if any, is loaded first and sets the PC.
	if len(source) != 0 {
		err := assemble(emu, source, object)
		if err != nil {
			log.Fatalf("%v: %v", source, err)
		}
	}

	if save {
		return
	}

	for _, path := range flag.Args() {
		_, err := emu.LoadFile(path)
		if err != nil {
			log.Fatal(err)
		}
	}

	if terminal.IsTerminal() {
		err := terminal.RawMode()
		if err != nil {
			log.Fatalf("%v: %v", os.Stdin.Name(), err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A trap may be blocked on a key; exit from the signal directly.
	abort := context.AfterFunc(ctx, func() {
		terminal.Restore()
		os.Exit(EXIT_INTERRUPT)
	})

	err := emu.Run(ctx)
	if ctx.Err() != nil {
		terminal.Restore()
		os.Exit(EXIT_INTERRUPT)
	}

	abort()
	stop()
	terminal.Restore()

	if err != nil {
		log.Fatal(err)
	}
}
