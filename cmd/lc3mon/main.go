// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/lc3/emulator"
)

func main() {
	var compile string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	emu := emulator.NewEmulator()
	emu.Program = nil

	if len(compile) != 0 {
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		emu.Program, err = emu.Assembler().Parse(inf)
		inf.Close()
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
	} else if flag.NArg() == 0 {
		log.Fatalf("%v: no program; use -c FILE.asm or give FILE.obj images", os.Args[0])
	}

	emu.Reset()

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

	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		log.Panicln("Couldn't create gui!")
	}
	defer g.Close()

	g.Cursor = true
	g.SetManagerFunc(layout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kb := newKeyboard()
	defer kb.Close()

	mon := &monitor{}
	mon.snapshot(emu)

	emu.Console.Input = kb
	emu.Console.Output = &viewWriter{g: g, name: "console"}

	quit := func(g *gocui.Gui, v *gocui.View) error {
		cancel()
		return gocui.ErrQuit
	}

	if err := g.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit); err != nil {
		log.Panicln(err)
	}

	// start emulation
	g.Update(func(g *gocui.Gui) error {
		console, err := g.View("console")
		if err != nil {
			return err
		}
		console.Editable = true
		console.Editor = kb.Editor()
		if _, err := g.SetCurrentView("console"); err != nil {
			return err
		}

		status, err := g.View("status")
		if err != nil {
			return err
		}
		fmt.Fprintf(status, "Starting LC-3 at x%04X..\n", emu.Pc())

		go runEmulator(ctx, g, emu, mon, verbose)
		updateRegisters(ctx, g, mon)

		return nil
	})

	if err := g.MainLoop(); err != nil && err != gocui.ErrQuit {
		log.Panicln(err)
	}
}

// runEmulator runs the emulator to completion, reporting the outcome in the
// status view.
func runEmulator(ctx context.Context, g *gocui.Gui, emu *emulator.Emulator, mon *monitor, verbose bool) {
	var msg string

	emu.Verbose = verbose

	for {
		if err := ctx.Err(); err != nil {
			return
		}

		done, err := emu.Tick()
		mon.snapshot(emu)
		if err != nil {
			msg = fmt.Sprintf("Error: %v\n", err)
			break
		}
		if done {
			msg = fmt.Sprintf("Halted after %d instructions.\n", emu.Ticks())
			break
		}
	}

	g.Update(func(g *gocui.Gui) error {
		v, err := g.View("status")
		if err != nil {
			return err
		}
		fmt.Fprint(v, msg)
		return nil
	})
}

// update registers display
// has to be run in go routine -> gocui allows updating the view only through Update function
func updateRegisters(ctx context.Context, g *gocui.Gui, mon *monitor) {
	ticker := time.NewTicker(time.Second * 1)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			text := mon.String()
			g.Update(func(g *gocui.Gui) error {
				v, err := g.View("registers")
				if err != nil {
					return err
				}
				v.Clear()
				fmt.Fprint(v, text)
				return nil
			})
		}
	}()
}

// gocui layout
func layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	// up -> console
	if v, err := g.SetView("console", 0, 0, maxX-1, maxY-12); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Console"
		v.Wrap = true
		v.Autoscroll = true
	}

	// middle -> register values
	if v, err := g.SetView("registers", 0, maxY-11, maxX-1, maxY-8); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Registers"
	}
	// down -> status
	if v, err := g.SetView("status", 0, maxY-7, maxX-1, maxY-1); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Title = "Status"
		v.Autoscroll = true
	}
	return nil
}
