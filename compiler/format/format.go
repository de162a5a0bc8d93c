package format

import (
	"bytes"
	"context"

	"github.com/nikandfor/hacked/hfmt"
	"nikand.dev/go/heap"
	"tlog.app/go/errors"

	"github.com/slowlang/c80/compiler/obj"
)

const bytesPerLine = 16

// Module appends a listing of m.
func Module(ctx context.Context, b []byte, m *obj.Module) (_ []byte, err error) {
	h, err := m.Header()
	if err != nil {
		return nil, errors.Wrap(err, "header")
	}

	b = app(b, 0, "; text %#04x data %#04x bss %#04x\n", h.Text, h.Data, h.BSS)

	b, err = formatSegment(ctx, b, "text", m.Text, 1)
	if err != nil {
		return nil, errors.Wrap(err, "text")
	}

	b, err = formatSegment(ctx, b, "data", m.Data, 1)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}

	b = formatSymbols(ctx, b, m.Symbols, 1)

	return b, nil
}

func formatSegment(ctx context.Context, b []byte, name string, s obj.Segment, d int) ([]byte, error) {
	b = app(b, d-1, "%s:\n", name)

	off := 0

	for i, r := range s {
		switch r := r.(type) {
		case obj.Literal:
			for j := 0; j < len(r); j += bytesPerLine {
				row := r[j:min(j+bytesPerLine, len(r))]

				b = app(b, d, "%04x\t% x\n", off+j, []byte(row))
			}
		case obj.Reference:
			b = app(b, d, "%04x\t%v\n", off, r)
		default:
			return nil, errors.New("record %d: unsupported type: %T", i, r)
		}

		off += r.Size()
	}

	return b, nil
}

func formatSymbols(ctx context.Context, b []byte, syms []obj.Symbol, d int) []byte {
	b = app(b, d-1, "symbols:\n")

	h := heap.Heap[obj.Symbol]{Less: symLess}

	for _, s := range syms {
		h.Push(s)
	}

	for h.Len() != 0 {
		s := h.Pop()

		if s.Extern() {
			b = app(b, d, "%-8s\t%v\n", s.Name, s.Flags)
			continue
		}

		b = app(b, d, "%-8s\t%v\t%04x\n", s.Name, s.Flags, s.Value)
	}

	return b
}

// symLess orders defined symbols by segment and value, then externs.
// Ties are broken by name.
func symLess(d []obj.Symbol, i, j int) bool {
	a, b := d[i], d[j]

	if ka, kb := symKey(a), symKey(b); ka != kb {
		return ka < kb
	}

	return bytes.Compare(a.Name[:], b.Name[:]) < 0
}

func symKey(s obj.Symbol) int {
	if s.Extern() {
		return 4 << 16
	}

	return int(s.Segment())<<16 | int(s.Value)
}

func app(b []byte, d int, f string, args ...any) []byte {
	const tabs = "\t\t\t\t\t\t\t\t\t\t\t\t\t\t\t"
	b = append(b, tabs[:d]...)
	b = hfmt.Appendf(b, f, args...)
	return b
}
