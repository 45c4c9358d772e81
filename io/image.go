package io

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/ezrec/lc3/cpu"
)

// ReadImage reads an LC-3 object image: big-endian words, the first of which
// is the load origin.
func ReadImage(r io.Reader) (origin uint16, words []uint16, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, errors.Wrap(err, "ReadImage")
	}

	switch {
	case len(data) < 2:
		return 0, nil, errors.WithStack(ErrImageShort)
	case len(data)%2 != 0:
		return 0, nil, errors.WithStack(ErrImageOdd)
	case len(data)/2-1 > cpu.MEMORY_SIZE:
		return 0, nil, errors.WithStack(ErrImageLarge)
	}

	all := make([]uint16, len(data)/2)
	err = binary.Read(bytes.NewReader(data), binary.BigEndian, all)
	if err != nil {
		return 0, nil, errors.Wrap(err, "ReadImage")
	}

	return all[0], all[1:], nil
}

// LoadImage reads an object image into memory, returning its origin.
func LoadImage(mem *cpu.Memory, r io.Reader) (origin uint16, err error) {
	origin, words, err := ReadImage(r)
	if err != nil {
		return
	}

	mem.Load(origin, words)

	return
}

// WriteImage writes words as an object image loading at origin.
func WriteImage(w io.Writer, origin uint16, words []uint16) error {
	err := binary.Write(w, binary.BigEndian, origin)
	if err != nil {
		return errors.Wrap(err, "WriteImage")
	}

	err = binary.Write(w, binary.BigEndian, words)
	if err != nil {
		return errors.Wrap(err, "WriteImage")
	}

	return nil
}
