// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
	lc3io "github.com/ezrec/lc3/io"
)

func main() {
	var compile string
	var output string
	var save bool
	var entry string
	var raw bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&output, "o", "", ".obj file to write the compiled image to")
	flag.BoolVar(&save, "s", false, "Compile only, do not execute")
	flag.StringVar(&entry, "pc", "", "Entry point (default: origin of the last image)")
	flag.BoolVar(&raw, "raw", true, "Use raw terminal input")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Program = nil

	// Compile a new instruction stream.
	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := emu.Assembler()
		emu.Program, err = asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		if len(output) != 0 {
			ouf, err := os.Create(output)
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
			err = lc3io.WriteImage(ouf, emu.Program.Origin, emu.Program.Image())
			if err == nil {
				err = ouf.Close()
			}
			if err != nil {
				log.Fatalf("%v: %v", output, err)
			}
		}
	} else if flag.NArg() == 0 {
		log.Fatalf("%v: no program; use -c FILE.asm or give FILE.obj images", os.Args[0])
	}

	if save {
		return
	}

	emu.Reset()

	// Load object images, in order.
	for _, name := range flag.Args() {
		inf, err := os.Open(name)
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
		err = emu.Load(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", name, err)
		}
	}

	if len(entry) != 0 {
		pc, err := strconv.ParseUint(entry, 0, 16)
		if err != nil {
			log.Fatalf("-pc %v: %v", entry, err)
		}
		emu.Cpu.Register.Set(cpu.REG_PC, uint16(pc))
	}

	stdout := bufio.NewWriter(os.Stdout)

	emu.Console.Input = bufio.NewReader(os.Stdin)
	emu.Console.Output = stdout

	var tearDown func()
	if raw {
		var err error
		tearDown, err = setRawIO()
		if err != nil {
			log.Fatalf("raw terminal: %v", err)
		}
		if tearDown != nil {
			emu.Console.Input = rawInput{Reader: os.Stdin}
			emu.Console.Output = rawOutput{w: stdout}
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	err := emu.Run(ctx)
	if errors.Is(err, io.EOF) {
		err = nil
	}

	stdout.Flush()
	if tearDown != nil {
		tearDown()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		if verbose {
			fmt.Fprint(os.Stderr, emu.Cpu.String())
		}
		os.Exit(1)
	}
}
