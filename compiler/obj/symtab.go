package obj

import (
	"encoding/binary"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog/tlwire"
)

type (
	Symbol struct {
		Name  Name
		Value uint16
		Flags SymFlag
	}

	SymFlag uint8
)

const (
	SymText SymFlag = 0
	SymData SymFlag = 1
	SymBSS  SymFlag = 2
	SymSeg  SymFlag = 3 // segment mask; 3 itself is reserved

	SymExtern SymFlag = 1 << 2 // defined elsewhere, Value is ignored
	SymExport SymFlag = 1 << 3
	SymCommon SymFlag = 1 << 4

	symMask = SymSeg | SymExtern | SymExport | SymCommon

	symEntrySize = NameLen + 3
)

var segNames = [...]string{"text", "data", "bss", "seg3"}

func (s Symbol) Segment() SymFlag { return s.Flags & SymSeg }
func (s Symbol) Extern() bool     { return s.Flags&SymExtern != 0 }

func (s Symbol) Validate() error {
	if s.Name[0] == 0 {
		return errors.Wrap(ErrMalformedRecord, "empty symbol name")
	}

	if s.Flags&^symMask != 0 {
		return errors.Wrap(ErrMalformedRecord, "symbol %v: flags %#x", s.Name, uint8(s.Flags))
	}

	if s.Segment() == SymSeg {
		return errors.Wrap(ErrMalformedRecord, "symbol %v: reserved segment", s.Name)
	}

	return nil
}

// AppendSymbols encodes the symbol table with its terminator.
// The whole table is validated before anything is appended.
func AppendSymbols(b []byte, syms []Symbol) ([]byte, error) {
	seen := make(map[Name]struct{}, len(syms))

	for _, s := range syms {
		if err := s.Validate(); err != nil {
			return nil, err
		}

		if _, ok := seen[s.Name]; ok {
			return nil, errors.Wrap(ErrMalformedRecord, "redefined symbol %v", s.Name)
		}

		seen[s.Name] = struct{}{}
	}

	for _, s := range syms {
		b = append(b, s.Name[:]...)
		b = binary.LittleEndian.AppendUint16(b, s.Value)
		b = append(b, byte(s.Flags))
	}

	return append(b, 0), nil
}

// ParseSymbols decodes the symbol table at b[i:].
func ParseSymbols(b []byte, i int) (syms []Symbol, _ int, err error) {
	seen := map[Name]struct{}{}

	for {
		if i >= len(b) {
			return nil, i, errors.Wrap(ErrMalformedRecord, "symbol table not terminated")
		}

		if b[i] == 0 {
			return syms, i + 1, nil
		}

		if i+symEntrySize > len(b) {
			return nil, i, errors.Wrap(ErrMalformedRecord, "symbol %d truncated", len(syms))
		}

		var s Symbol

		copy(s.Name[:], b[i:])
		s.Value = binary.LittleEndian.Uint16(b[i+NameLen:])
		s.Flags = SymFlag(b[i+NameLen+2])

		if err = s.Validate(); err != nil {
			return nil, i, errors.Wrap(err, "symbol %d", len(syms))
		}

		if _, ok := seen[s.Name]; ok {
			return nil, i, errors.Wrap(ErrMalformedRecord, "redefined symbol %v", s.Name)
		}

		seen[s.Name] = struct{}{}
		syms = append(syms, s)
		i += symEntrySize
	}
}

func (f SymFlag) SegName() string {
	return segNames[f&SymSeg]
}

func (f SymFlag) String() string {
	s := []string{f.SegName()}

	if f&SymExtern != 0 {
		s = append(s, "extern")
	}

	if f&SymExport != 0 {
		s = append(s, "export")
	}

	if f&SymCommon != 0 {
		s = append(s, "common")
	}

	return strings.Join(s, "|")
}

func (s Symbol) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 3)
	b = e.AppendKeyValue(b, "name", s.Name.String())
	b = e.AppendKeyInt(b, "value", int(s.Value))
	b = e.AppendKeyValue(b, "flags", s.Flags.String())

	return b
}
