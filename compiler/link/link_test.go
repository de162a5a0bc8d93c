package link

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/c80/compiler/obj"
)

var (
	nMain = obj.MustName("_main")
	nMsg  = obj.MustName("_msg")
	nPuts = obj.MustName("_puts")
)

func TestResolve(t *testing.T) {
	syms := Table{nMain: 0x1234}

	for _, tc := range []struct {
		name  string
		flags obj.RefFlag
		v     uint16
	}{
		{"word", 0, 0x1236},
		{"word_hi", obj.RefHiLo | obj.RefHi, 0x3600},
		{"word_lo", obj.RefHiLo, 0x0036},
		{"word_hi_ignored", obj.RefHi, 0x1236},
		{"byte_lo", obj.RefByte, 0x36},
		{"byte_hi", obj.RefByte | obj.RefHi, 0x12},
		{"byte_hi_hilo", obj.RefByte | obj.RefHi | obj.RefHiLo, 0x12},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Resolve(obj.Reference{Flags: tc.flags | obj.RefSymbol, Symbol: nMain, Addend: 2}, 0x8000, syms)
			require.NoError(t, err)
			assert.Equal(t, tc.v, v)

			v, err = Resolve(obj.Reference{Flags: tc.flags, Addend: 0x1234}, 2, syms)
			require.NoError(t, err)
			assert.Equal(t, tc.v, v, "segment relative")
		})
	}
}

func TestResolveWraps(t *testing.T) {
	v, err := Resolve(obj.Reference{Flags: obj.RefSymbol, Symbol: nMain, Addend: 0xffff}, 0, Table{nMain: 1})
	require.NoError(t, err)
	assert.Equal(t, uint16(0), v)
}

func TestUnresolved(t *testing.T) {
	_, err := Resolve(obj.SymWord(nPuts, 0), 0, Table{nMain: 1})
	require.ErrorIs(t, err, ErrUnresolvedSymbol)

	_, err = Resolve(obj.SymWord(nPuts, 0), 0, nil)
	require.ErrorIs(t, err, ErrUnresolvedSymbol)

	_, _, err = Relocate(context.Background(), obj.Segment{obj.Literal{1}, obj.SymWord(nPuts, 0)}, 0, Scope{})
	require.ErrorIs(t, err, ErrUnresolvedSymbol)
}

func TestRelocateNilRecord(t *testing.T) {
	_, _, err := Relocate(context.Background(), obj.Segment{obj.Literal{1}, nil}, 0, Table{})
	require.ErrorIs(t, err, obj.ErrMalformedRecord)
}

func TestScope(t *testing.T) {
	s := Scope{
		Local:    Table{nMain: 1},
		Exported: Table{nMain: 2, nPuts: 3},
	}

	v, ok := s.Lookup(nMain)
	assert.True(t, ok)
	assert.Equal(t, uint16(1), v)

	v, ok = s.Lookup(nPuts)
	assert.True(t, ok)
	assert.Equal(t, uint16(3), v)

	_, ok = s.Lookup(nMsg)
	assert.False(t, ok)
}

func testModule() *obj.Module {
	return &obj.Module{
		Text: obj.Segment{
			obj.Literal{0xcd},
			obj.SymWord(nPuts, 0),
			obj.Literal{0x21},
			obj.SymWord(nMsg, 1),
			obj.Literal{0xc3},
			obj.AbsWord(0x0002),
			obj.Literal{0x3e},
			obj.SymByte(nMsg, 0, true),
		},
		Data: obj.Segment{
			obj.Literal("hi\x00"),
			obj.Reference{Flags: obj.RefHiLo, Addend: 0x0102},
		},
		BSS: 4,
		Symbols: []obj.Symbol{
			{Name: nMain, Flags: obj.SymText | obj.SymExport},
			{Name: nMsg, Flags: obj.SymData},
			{Name: nPuts, Value: 0xdead, Flags: obj.SymExtern},
		},
	}
}

func TestLocalScope(t *testing.T) {
	m := testModule()
	b := Bases{Text: 0x100, Data: 0x800, BSS: 0x900}

	assert.Equal(t, Table{nMain: 0x100, nMsg: 0x800}, LocalScope(m, b))
	assert.Equal(t, Table{nMain: 0x100}, Exports(m, b))
}

func TestRelocateModule(t *testing.T) {
	m := testModule()

	im, err := RelocateModule(context.Background(), m, Bases{Text: 0x100, Data: 0x800}, Table{nPuts: 0x0abc, nMsg: 0xffff})
	require.NoError(t, err)

	assert.Equal(t, []byte{
		0xcd, 0xbc, 0x0a,
		0x21, 0x01, 0x08,
		0xc3, 0x02, 0x01,
		0x3e, 0x08,
	}, im.Text)

	assert.Equal(t, []byte{'h', 'i', 0, 0x02, 0x00}, im.Data)

	assert.Equal(t, []int{1, 2, 4, 5, 7, 8, 10}, im.TextRefs.Slice())
	assert.Equal(t, []int{3, 4}, im.DataRefs.Slice())

	assert.Len(t, im.Text, m.Text.Size())
	assert.Len(t, im.Data, m.Data.Size())

	_, err = RelocateModule(context.Background(), m, Bases{}, nil)
	require.ErrorIs(t, err, ErrUnresolvedSymbol)
}
