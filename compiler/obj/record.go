package obj

import (
	"encoding/binary"
	"fmt"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	// Record is Literal or Reference.
	Record interface {
		// Size is the number of output bytes the record covers.
		Size() int
	}

	Literal []byte

	// Reference is a relocated word or byte.
	// Without RefSymbol the addend is relative to the segment base.
	Reference struct {
		Flags  RefFlag
		Symbol Name
		Addend uint16
	}

	RefFlag uint8
)

const (
	RefByte   RefFlag = 1 << iota // one byte result
	RefHi                         // select high byte
	RefSymbol                     // symbol name present
	RefHiLo                       // RefHi is meaningful for word results

	refMarker // set in every encoded reference
	refMask   = RefByte | RefHi | RefSymbol | RefHiLo
)

func (l Literal) Size() int { return len(l) }

func (r Reference) Size() int {
	if r.Flags&RefByte != 0 {
		return 1
	}

	return 2
}

func AbsWord(addend uint16) Reference {
	return Reference{Addend: addend}
}

func SymWord(sym Name, addend uint16) Reference {
	return Reference{Flags: RefSymbol, Symbol: sym, Addend: addend}
}

// SymByte references one byte of sym+addend.
func SymByte(sym Name, addend uint16, hi bool) Reference {
	r := Reference{Flags: RefByte | RefSymbol, Symbol: sym, Addend: addend}

	if hi {
		r.Flags |= RefHi
	}

	return r
}

func (r Reference) Validate() error {
	if r.Flags&^refMask != 0 {
		return errors.Wrap(ErrMalformedRecord, "reference flags %#x", uint8(r.Flags))
	}

	if r.Flags&RefSymbol != 0 && r.Symbol[0] == 0 {
		return errors.Wrap(ErrMalformedRecord, "symbol reference without name")
	}

	if r.Flags&RefSymbol == 0 && !r.Symbol.IsZero() {
		return errors.Wrap(ErrMalformedRecord, "name %q in absolute reference", r.Symbol)
	}

	return nil
}

// AppendRecord encodes a single record.
// Nothing is appended if the record is invalid.
func AppendRecord(b []byte, r Record) ([]byte, error) {
	switch r := r.(type) {
	case Literal:
		if len(r) == 0 {
			return nil, errors.Wrap(ErrMalformedRecord, "empty literal")
		}

		if len(r) > MaxLiteral {
			return nil, errors.Wrap(ErrOversizeLiteralRun, "%d bytes", len(r))
		}

		b = append(b, byte(len(r)))
		b = append(b, r...)
	case Reference:
		err := r.Validate()
		if err != nil {
			return nil, err
		}

		b = append(b, byte(-int8(r.Flags|refMarker)))

		if r.Flags&RefSymbol != 0 {
			b = append(b, r.Symbol[:]...)
		}

		b = binary.LittleEndian.AppendUint16(b, r.Addend)
	case nil:
		return nil, errors.Wrap(ErrMalformedRecord, "nil record")
	default:
		return nil, errors.New("unsupported record: %T", r)
	}

	return b, nil
}

// ParseRecord decodes the record at b[i:].
// Zero length byte is the segment end and returns nil record.
func ParseRecord(b []byte, i int) (r Record, _ int, err error) {
	if i >= len(b) {
		return nil, i, errors.Wrap(ErrMalformedRecord, "unexpected end of file at %#x", i)
	}

	st := i
	n := int(int8(b[i]))
	i++

	switch {
	case n == 0:
		return nil, i, nil
	case n > 0:
		if i+n > len(b) {
			return nil, st, errors.Wrap(ErrMalformedRecord, "literal of %d bytes truncated at %#x", n, st)
		}

		return append(Literal(nil), b[i:i+n]...), i + n, nil
	}

	fl := RefFlag(-n)

	if fl&refMarker == 0 || fl&^(refMask|refMarker) != 0 {
		return nil, st, errors.Wrap(ErrMalformedRecord, "reference length %d at %#x", n, st)
	}

	ref := Reference{Flags: fl &^ refMarker}

	if ref.Flags&RefSymbol != 0 {
		if i+NameLen > len(b) {
			return nil, st, errors.Wrap(ErrMalformedRecord, "reference truncated at %#x", st)
		}

		copy(ref.Symbol[:], b[i:])
		i += NameLen
	}

	if i+2 > len(b) {
		return nil, st, errors.Wrap(ErrMalformedRecord, "reference truncated at %#x", st)
	}

	ref.Addend = binary.LittleEndian.Uint16(b[i:])
	i += 2

	if err = ref.Validate(); err != nil {
		return nil, st, errors.Wrap(err, "at %#x", st)
	}

	return ref, i, nil
}

func (f RefFlag) String() string {
	var s []string

	if f&RefSymbol != 0 {
		s = append(s, "sym")
	}

	if f&RefByte != 0 {
		s = append(s, "byte")
	} else {
		s = append(s, "word")
	}

	switch {
	case f&RefHiLo != 0 && f&RefHi != 0:
		s = append(s, "hilo", "hi")
	case f&RefHiLo != 0:
		s = append(s, "hilo", "lo")
	case f&RefHi != 0:
		s = append(s, "hi")
	}

	if x := f &^ refMask; x != 0 {
		s = append(s, fmt.Sprintf("%#x", uint8(x)))
	}

	return strings.Join(s, "|")
}

func (r Reference) String() string {
	if r.Flags&RefSymbol == 0 {
		return r.Flags.String() + " ." + signed(r.Addend)
	}

	return r.Flags.String() + " " + r.Symbol.String() + signed(r.Addend)
}

func (r Reference) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKeyValue(b, "flags", r.Flags.String())
	b = e.AppendKeyValue(b, "sym", r.Symbol.String())
	b = e.AppendKeyInt(b, "addend", int(r.Addend))

	return b
}

func (l Literal) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendFormat(b, "% x", []byte(l))
}

func signed(v uint16) string {
	switch {
	case v == 0:
		return ""
	case int16(v) < 0:
		return fmt.Sprintf("-%#x", -v)
	default:
		return fmt.Sprintf("+%#x", v)
	}
}
