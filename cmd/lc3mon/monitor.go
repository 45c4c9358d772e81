package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jroimartin/gocui"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/emulator"
)

// monitor holds a copy of the CPU registers for display, so the view never
// reads the running CPU.
type monitor struct {
	mu    sync.Mutex
	regs  cpu.RegisterFile
	state cpu.CpuState
	ticks int
}

func (mon *monitor) snapshot(emu *emulator.Emulator) {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	mon.regs = emu.Cpu.Register
	mon.state = emu.Cpu.State
	mon.ticks = emu.Ticks()
}

func (mon *monitor) String() string {
	mon.mu.Lock()
	defer mon.mu.Unlock()

	var text strings.Builder
	for reg := cpu.REG_R0; reg <= cpu.REG_R7; reg++ {
		fmt.Fprintf(&text, " %v:x%04X", reg, mon.regs.Get(reg))
	}
	fmt.Fprintf(&text, "\n pc:x%04X cond:%v", mon.regs.Pc(), mon.regs.Flags())
	fmt.Fprintf(&text, " <%v, %d instructions>", mon.state, mon.ticks)

	return text.String()
}

// keyboard feeds keystrokes from the console view to the guest.
type keyboard struct {
	keys chan byte
	once sync.Once
}

func newKeyboard() *keyboard {
	return &keyboard{keys: make(chan byte, 64)}
}

// Read blocks until a key is available.
func (kb *keyboard) Read(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}

	ch, ok := <-kb.keys
	if !ok {
		return 0, io.EOF
	}

	p[0] = ch
	return 1, nil
}

func (kb *keyboard) Close() error {
	kb.once.Do(func() { close(kb.keys) })
	return nil
}

// Editor returns a view editor that sends keys to the guest instead of
// editing the view. Keys are dropped when the guest is not reading.
func (kb *keyboard) Editor() gocui.Editor {
	return gocui.EditorFunc(func(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) {
		switch {
		case ch != 0 && ch < 0x80:
		case key == gocui.KeySpace:
			ch = ' '
		case key == gocui.KeyEnter:
			ch = '\n'
		case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
			ch = '\b'
		default:
			return
		}

		select {
		case kb.keys <- byte(ch):
		default:
		}
	})
}

// viewWriter writes guest output to a view from outside the gui goroutine.
type viewWriter struct {
	g    *gocui.Gui
	name string
}

func (vw *viewWriter) Write(p []byte) (n int, err error) {
	text := string(p)
	vw.g.Update(func(g *gocui.Gui) error {
		v, err := g.View(vw.name)
		if err != nil {
			return err
		}
		fmt.Fprint(v, text)
		return nil
	})

	return len(p), nil
}
