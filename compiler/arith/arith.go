/*
Package arith implements the 8080 C runtime Word arithmetic.

The target has no multiply or divide instructions, so the runtime carries
bit-serial helpers for them. Serial* functions follow those helpers
iteration for iteration, including what they do on a zero divisor.
The plain functions compute the same results with native arithmetic and
report a zero divisor as an error.
*/
package arith

import (
	"tlog.app/go/errors"
)

type (
	// Word is the only numeric type of the target: a 16 bit two's complement
	// integer, also used as an address.
	Word uint16

	Case struct {
		Value  Word
		Target Word
	}
)

var ErrDivideByZero = errors.New("divide by zero")

// Int returns w interpreted as signed.
func (w Word) Int() int16 { return int16(w) }

// Extend sign-extends a byte to a Word.
func Extend(b byte) Word {
	return Word(int16(int8(b)))
}

func Shl(x, n Word) Word { return x << n }

// Shr is arithmetic shift right.
func Shr(x, n Word) Word { return Word(int16(x) >> n) }

// Ushr is logical shift right.
func Ushr(x, n Word) Word { return x >> n }

// Cmp compares signed values, returning -1, 0 or +1.
func Cmp(a, b Word) int {
	switch x, y := int16(a), int16(b); {
	case x < y:
		return -1
	case x > y:
		return 1
	}

	return 0
}

// UCmp compares unsigned values, returning -1, 0 or +1.
func UCmp(a, b Word) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}

	return 0
}

// Bool converts a condition into C truth value.
func Bool(c bool) Word {
	if c {
		return 1
	}

	return 0
}

// Switch returns the target of the first case matching v, or def.
func Switch(v Word, cases []Case, def Word) Word {
	for _, c := range cases {
		if c.Value == v {
			return c.Target
		}
	}

	return def
}
