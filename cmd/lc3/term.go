package main

import (
	"bytes"
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

var errInterrupt = errors.New("interrupt")

// setRawIO switches stdin to raw mode, so GETC sees single keystrokes.
func setRawIO() (tearDown func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return
	}

	state, err := term.MakeRaw(fd)
	if err != nil {
		return
	}

	tearDown = func() {
		term.Restore(fd, state)
	}
	return
}

// rawInput handles the control keys the tty no longer does in raw mode.
type rawInput struct {
	io.Reader
}

func (in rawInput) Read(p []byte) (n int, err error) {
	n, err = in.Reader.Read(p)
	for _, ch := range p[:n] {
		switch ch {
		case 3: // ^C
			return 0, errInterrupt
		case 4: // ^D
			return 0, io.EOF
		}
	}
	return
}

// rawOutput expands newlines to CR-LF, as the tty no longer does in raw mode.
type rawOutput struct {
	w interface {
		io.Writer
		Flush() error
	}
}

func (out rawOutput) Write(p []byte) (n int, err error) {
	_, err = out.w.Write(bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\r', '\n'}))
	if err != nil {
		return
	}
	n = len(p)
	return
}

func (out rawOutput) Flush() error {
	return out.w.Flush()
}
