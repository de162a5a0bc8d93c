// Package link resolves object references against symbol addresses.
package link

import (
	"context"
	"encoding/binary"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/c80/compiler/bitmap"
	"github.com/slowlang/c80/compiler/obj"
)

type (
	Lookup interface {
		Lookup(n obj.Name) (addr uint16, ok bool)
	}

	Table map[obj.Name]uint16

	// Scope looks up Local first and then Exported.
	Scope struct {
		Local    Lookup
		Exported Lookup
	}

	// Bases are segment load addresses in the output.
	Bases struct {
		Text uint16
		Data uint16
		BSS  uint16
	}

	Image struct {
		Text []byte
		Data []byte

		// Relocated byte offsets within Text and Data.
		TextRefs *bitmap.Bitmap
		DataRefs *bitmap.Bitmap
	}
)

var ErrUnresolvedSymbol = errors.New("unresolved symbol")

func (t Table) Lookup(n obj.Name) (uint16, bool) {
	v, ok := t[n]
	return v, ok
}

func (s Scope) Lookup(n obj.Name) (uint16, bool) {
	for _, l := range []Lookup{s.Local, s.Exported} {
		if l == nil {
			continue
		}

		if v, ok := l.Lookup(n); ok {
			return v, true
		}
	}

	return 0, false
}

func (b Bases) Of(seg obj.SymFlag) uint16 {
	switch seg & obj.SymSeg {
	case obj.SymData:
		return b.Data
	case obj.SymBSS:
		return b.BSS
	default:
		return b.Text
	}
}

// LocalScope is the table of symbols defined by m, at their loaded addresses.
func LocalScope(m *obj.Module, b Bases) Table {
	t := Table{}

	for _, s := range m.Symbols {
		if s.Extern() {
			continue
		}

		t[s.Name] = b.Of(s.Segment()) + s.Value
	}

	return t
}

// Exports is the table of exported symbols of m.
func Exports(m *obj.Module, b Bases) Table {
	t := Table{}

	for _, s := range m.Symbols {
		if s.Extern() || s.Flags&obj.SymExport == 0 {
			continue
		}

		t[s.Name] = b.Of(s.Segment()) + s.Value
	}

	return t
}

// Resolve computes the value stored for r.
// Symbol references add the symbol address, others add the segment base.
// Byte references return the selected byte.
func Resolve(r obj.Reference, base uint16, syms Lookup) (v uint16, err error) {
	if r.Flags&obj.RefSymbol != 0 {
		var ok bool

		if syms != nil {
			v, ok = syms.Lookup(r.Symbol)
		}

		if !ok {
			return 0, errors.Wrap(ErrUnresolvedSymbol, "%v", r.Symbol)
		}
	} else {
		v = base
	}

	v += r.Addend

	hi := r.Flags&obj.RefHi != 0

	switch {
	case r.Flags&obj.RefByte != 0 && hi:
		v >>= 8
	case r.Flags&obj.RefByte != 0:
		v &= 0xff
	case r.Flags&obj.RefHiLo == 0:
	case hi:
		v <<= 8
	default:
		v &= 0xff
	}

	return v, nil
}

// Patch stores v as r would be stored at the beginning of b.
func Patch(b []byte, r obj.Reference, v uint16) {
	if r.Flags&obj.RefByte != 0 {
		b[0] = byte(v)
		return
	}

	binary.LittleEndian.PutUint16(b, v)
}

// Relocate builds the image of seg loaded at base.
// Any unresolved reference fails the whole segment.
func Relocate(ctx context.Context, seg obj.Segment, base uint16, syms Lookup) (img []byte, refs *bitmap.Bitmap, err error) {
	tr := tlog.SpanFromContext(ctx)

	img = make([]byte, 0, seg.Size())
	refs = bitmap.New()

	for i, r := range seg {
		switch r := r.(type) {
		case obj.Literal:
			img = append(img, r...)
		case obj.Reference:
			v, err := Resolve(r, base, syms)
			if err != nil {
				return nil, nil, errors.Wrap(err, "record %d", i)
			}

			off := len(img)
			img = append(img, make([]byte, r.Size())...)

			Patch(img[off:], r, v)
			refs.SetRange(off, len(img))

			if tr.If("link_refs") {
				tr.Printw("resolved", "i", i, "off", off, "ref", r, "value", v)
			}
		case nil:
			return nil, nil, errors.Wrap(obj.ErrMalformedRecord, "record %d: nil", i)
		default:
			return nil, nil, errors.New("unsupported record: %T", r)
		}
	}

	return img, refs, nil
}

// RelocateModule relocates both segments of m, resolving its own
// symbols first and exported ones second.
func RelocateModule(ctx context.Context, m *obj.Module, b Bases, exported Lookup) (im *Image, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "link: relocate module", "bases", b)
	defer tr.Finish("err", &err)

	scope := Scope{
		Local:    LocalScope(m, b),
		Exported: exported,
	}

	im = &Image{}

	im.Text, im.TextRefs, err = Relocate(ctx, m.Text, b.Text, scope)
	if err != nil {
		return nil, errors.Wrap(err, "text")
	}

	im.Data, im.DataRefs, err = Relocate(ctx, m.Data, b.Data, scope)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}

	tr.Printw("relocated", "text", len(im.Text), "data", len(im.Data), "refs", im.TextRefs.Size()+im.DataRefs.Size())

	return im, nil
}
