package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Console errors
	ErrInputMissing  = errors.New(f("console input missing"))
	ErrOutputMissing = errors.New(f("console output missing"))
	ErrInputEnd      = errors.New(f("console input ended"))

	// Image errors
	ErrImageShort = errors.New(f("image has no origin"))
	ErrImageOdd   = errors.New(f("image has an odd byte count"))
	ErrImageLarge = errors.New(f("image larger than memory"))
)
