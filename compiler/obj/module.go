package obj

import (
	"context"
	"encoding/binary"
	"math"

	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Header struct {
		Text uint16
		Data uint16
		BSS  uint16
	}

	// Module is a single object file.
	Module struct {
		Text Segment
		Data Segment
		BSS  uint16

		Symbols []Symbol
	}
)

func (m *Module) Header() (h Header, err error) {
	for _, s := range []Segment{m.Text, m.Data} {
		for i, r := range s {
			if r == nil {
				return h, errors.Wrap(ErrMalformedRecord, "nil record %d", i)
			}
		}
	}

	t, d := m.Text.Size(), m.Data.Size()

	if t > math.MaxUint16 || d > math.MaxUint16 {
		return h, errors.Wrap(ErrMalformedRecord, "segment too big: text %d data %d", t, d)
	}

	return Header{Text: uint16(t), Data: uint16(d), BSS: m.BSS}, nil
}

func (m *Module) Symbol(n Name) (Symbol, bool) {
	for _, s := range m.Symbols {
		if s.Name == n {
			return s, true
		}
	}

	return Symbol{}, false
}

func (h Header) Append(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, h.Text)
	b = binary.LittleEndian.AppendUint16(b, h.Data)
	b = binary.LittleEndian.AppendUint16(b, h.BSS)

	return b
}

func ParseHeader(b []byte) (h Header, err error) {
	if len(b) < HeaderSize {
		return h, errors.Wrap(ErrMalformedRecord, "header truncated")
	}

	h.Text = binary.LittleEndian.Uint16(b)
	h.Data = binary.LittleEndian.Uint16(b[2:])
	h.BSS = binary.LittleEndian.Uint16(b[4:])

	return h, nil
}

func AppendModule(b []byte, m *Module) (_ []byte, err error) {
	h, err := m.Header()
	if err != nil {
		return nil, err
	}

	b = h.Append(b)

	b, err = AppendSegment(b, m.Text)
	if err != nil {
		return nil, errors.Wrap(err, "text")
	}

	b, err = AppendSegment(b, m.Data)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}

	b, err = AppendSymbols(b, m.Symbols)
	if err != nil {
		return nil, errors.Wrap(err, "symbols")
	}

	return b, nil
}

// EncodeModule is AppendModule encoding text and data segments concurrently.
func EncodeModule(ctx context.Context, m *Module) (_ []byte, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "obj: encode module", "text", len(m.Text), "data", len(m.Data), "symbols", len(m.Symbols))
	defer tr.Finish("err", &err)

	h, err := m.Header()
	if err != nil {
		return nil, err
	}

	var text, data, syms []byte

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		text, err = AppendSegment(nil, m.Text)
		if err != nil {
			return errors.Wrap(err, "text")
		}

		return nil
	})

	g.Go(func() (err error) {
		data, err = AppendSegment(nil, m.Data)
		if err != nil {
			return errors.Wrap(err, "data")
		}

		return nil
	})

	syms, err = AppendSymbols(nil, m.Symbols)
	if err != nil {
		_ = g.Wait()
		return nil, errors.Wrap(err, "symbols")
	}

	err = g.Wait()
	if err != nil {
		return nil, err
	}

	b := make([]byte, 0, HeaderSize+len(text)+len(data)+len(syms))

	b = h.Append(b)
	b = append(b, text...)
	b = append(b, data...)
	b = append(b, syms...)

	tr.Printw("encoded", "size", len(b), "header", h)

	return b, nil
}

// ParseModule decodes a whole object file.
// Any inconsistency rejects the file.
func ParseModule(b []byte) (m *Module, err error) {
	h, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}

	m = &Module{BSS: h.BSS}
	i := HeaderSize

	m.Text, i, err = ParseSegment(b, i)
	if err != nil {
		return nil, errors.Wrap(err, "text")
	}

	if sz := m.Text.Size(); sz != int(h.Text) {
		return nil, errors.Wrap(ErrMalformedRecord, "text size %d, header says %d", sz, h.Text)
	}

	m.Data, i, err = ParseSegment(b, i)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}

	if sz := m.Data.Size(); sz != int(h.Data) {
		return nil, errors.Wrap(ErrMalformedRecord, "data size %d, header says %d", sz, h.Data)
	}

	m.Symbols, i, err = ParseSymbols(b, i)
	if err != nil {
		return nil, errors.Wrap(err, "symbols")
	}

	if i != len(b) {
		return nil, errors.Wrap(ErrMalformedRecord, "%d trailing bytes", len(b)-i)
	}

	return m, nil
}
