/*
Package obj implements the relocatable object file format.

	header   text size, data size, bss size: 3 little-endian words
	text     records, terminated by a zero length byte
	data     records, terminated by a zero length byte
	symbols  {name [8]byte, value word, flags byte}..., terminated by a zero byte

Each record starts with a signed length byte.
Positive length is a literal run of that many bytes.
Negative length is a reference, its negation being the reference flags
with bit 4 always set. Symbol references are followed by the symbol name.
All references end with a little-endian addend word.
*/
package obj

import (
	"tlog.app/go/errors"
)

const (
	NameLen    = 8
	MaxLiteral = 127
	HeaderSize = 6
)

var (
	ErrMalformedRecord    = errors.New("malformed record")
	ErrOversizeLiteralRun = errors.New("oversize literal run")
	ErrOversizeSymbolName = errors.New("oversize symbol name")
)

// Name is a fixed width, NUL padded symbol name.
// Names are equal if all 8 bytes are equal.
type Name [NameLen]byte

func MakeName(s string) (n Name, err error) {
	if len(s) > NameLen {
		return n, errors.Wrap(ErrOversizeSymbolName, "%q", s)
	}

	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			return n, errors.Wrap(ErrMalformedRecord, "NUL in name %q", s)
		}
	}

	copy(n[:], s)

	return n, nil
}

// MustName is MakeName that panics on error.
func MustName(s string) Name {
	n, err := MakeName(s)
	if err != nil {
		panic(err)
	}

	return n
}

func (n Name) IsZero() bool { return n == Name{} }

func (n Name) String() string {
	for i, c := range n {
		if c == 0 {
			return string(n[:i])
		}
	}

	return string(n[:])
}
