package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nikand.dev/go/cli"

	"github.com/slowlang/c80/compiler/arith"
	"github.com/slowlang/c80/compiler/link"
	"github.com/slowlang/c80/compiler/obj"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := App()
	app.Stdout = &out

	err := cli.Run(app, append([]string{"obj80", "--log", "discard"}, args...), nil)

	return out.String(), err
}

func TestCalc(t *testing.T) {
	for _, tc := range []struct {
		args []string
		u    string
		s    string
	}{
		{[]string{"mul", "7", "6"}, "42", "42"},
		{[]string{"--serial", "mul", "7", "6"}, "42", "42"},
		{[]string{"--serial", "mul", "0x100", "0x100"}, "0", "0"},
		{[]string{"mul", "--", "-3", "5"}, "65521", "-15"},
		{[]string{"div", "7", "2"}, "3", "3"},
		{[]string{"mod", "7", "2"}, "1", "1"},
		{[]string{"--serial", "div", "0xfff0", "3"}, "21840", "21840"},
		{[]string{"--serial", "div", "7", "0"}, "65535", "-1"},
		{[]string{"--serial", "mod", "7", "0"}, "7", "7"},
		{[]string{"quo", "--", "-7", "2"}, "65533", "-3"},
		{[]string{"rem", "--", "-7", "2"}, "65535", "-1"},
		{[]string{"shl", "1", "4"}, "16", "16"},
		{[]string{"shr", "0x8000", "15"}, "65535", "-1"},
		{[]string{"ushr", "0x8000", "15"}, "1", "1"},
		{[]string{"cmp", "0xffff", "1"}, "65535", "-1"},
		{[]string{"ucmp", "0xffff", "1"}, "1", "1"},
	} {
		t.Run(strings.Join(tc.args, "_"), func(t *testing.T) {
			out, err := run(t, append([]string{"calc"}, tc.args...)...)
			require.NoError(t, err)

			f := strings.Fields(out)
			require.Len(t, f, 3, "output: %q", out)
			assert.Equal(t, []string{tc.u, tc.s}, f[1:])
		})
	}
}

func TestCalcErrors(t *testing.T) {
	_, err := run(t, "calc", "div", "7", "0")
	require.ErrorIs(t, err, arith.ErrDivideByZero)

	_, err = run(t, "calc", "quo", "7", "0")
	require.ErrorIs(t, err, arith.ErrDivideByZero)

	for _, args := range [][]string{
		{"calc", "--serial", "quo", "7", "2"},
		{"calc", "--serial", "shl", "1", "2"},
		{"calc", "--serial", "cmp", "1", "2"},
		{"calc", "mul", "0x10000", "1"},
		{"calc", "mul", "--", "-0x8001", "1"},
		{"calc", "mul", "x", "1"},
		{"calc", "pow", "2", "3"},
		{"calc", "mul", "2"},
	} {
		_, err = run(t, args...)
		assert.Error(t, err, "%v", args)
	}
}

func writeObject(t *testing.T, m *obj.Module) string {
	t.Helper()

	name := filepath.Join(t.TempDir(), "a.o")

	err := obj.WriteFile(context.Background(), name, m)
	require.NoError(t, err)

	return name
}

func TestRelocate(t *testing.T) {
	nMsg := obj.MustName("_msg")

	name := writeObject(t, &obj.Module{
		Text: obj.Segment{obj.Literal{0xc3}, obj.SymWord(nMsg, 0)},
		Data: obj.Segment{obj.Literal("hi"), obj.AbsWord(1), obj.SymWord(obj.MustName("_puts"), 0)},
		BSS:  2,
		Symbols: []obj.Symbol{
			{Name: nMsg, Flags: obj.SymData},
		},
	})

	out, err := run(t, "relocate", "--text", "0x100", "--sym", "_puts=0xabcd", name)
	require.NoError(t, err)
	assert.Equal(t, "text 0100\n\t0100\tc3 03 01\n"+
		"data 0103\n\t0103\t68 69 04 01 cd ab\n"+
		"bss  0109 +0002\n", out)

	out, err = run(t, "relocate", "--text", "0x100", "--data", "0x800", "--sym", "_puts=0xabcd", name)
	require.NoError(t, err)
	assert.Equal(t, "text 0100\n\t0100\tc3 00 08\n"+
		"data 0800\n\t0800\t68 69 01 08 cd ab\n"+
		"bss  0806 +0002\n", out)

	_, err = run(t, "relocate", name)
	require.ErrorIs(t, err, link.ErrUnresolvedSymbol)

	for _, args := range [][]string{
		{"--text", "0xfffe"},
		{"--data", "0xfffd"},
		{"--bss", "0xffff"},
	} {
		_, err = run(t, append(append([]string{"relocate", "--sym", "_puts=1"}, args...), name)...)
		assert.ErrorContains(t, err, "overflow", "%v", args)
	}

	_, err = run(t, "relocate")
	assert.Error(t, err)
}

func TestBuildDump(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "hello.yaml")

	err := os.WriteFile(src, []byte(`
text:
  - hex: "21"
  - ref: {symbol: _msg}
data:
  - string: "hi"
symbols:
  - {name: _main, export: true}
  - {name: _msg, segment: data}
`), 0o644)
	require.NoError(t, err)

	_, err = run(t, "build", src)
	require.NoError(t, err)

	name := filepath.Join(dir, "hello.o")

	m, err := obj.ReadFile(context.Background(), name)
	require.NoError(t, err)
	assert.Equal(t, obj.Segment{obj.Literal{0x21}, obj.SymWord(obj.MustName("_msg"), 0)}, m.Text)

	out, err := run(t, "dump", name)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# "+name+"\n"), "%q", out)
	assert.Contains(t, out, "\t0001\tsym|word _msg\n")

	out, err = run(t, "dump", "--yaml", name)
	require.NoError(t, err)
	assert.Contains(t, out, "_msg")

	_, err = run(t, "build", "--output", filepath.Join(dir, "x.o"), src, src)
	assert.Error(t, err)
}

func TestParseSyms(t *testing.T) {
	tab, err := parseSyms("_puts=0x100,_exit=7")
	require.NoError(t, err)
	assert.Equal(t, link.Table{obj.MustName("_puts"): 0x100, obj.MustName("_exit"): 7}, tab)

	tab, err = parseSyms("")
	require.NoError(t, err)
	assert.Empty(t, tab)

	_, err = parseSyms("_puts")
	assert.Error(t, err)

	_, err = parseSyms("toolongname=1")
	require.ErrorIs(t, err, obj.ErrOversizeSymbolName)

	_, err = parseSyms("a=0x10000")
	assert.Error(t, err)
}

func TestParseWord(t *testing.T) {
	v, err := parseWord("", 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(5), v)

	v, err = parseWord("0x800", 5)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x800), v)
}

func TestHexdump(t *testing.T) {
	p := make([]byte, 18)
	p[17] = 0xab

	assert.Equal(t, "\t0100\t00 00 00 00 00 00 00 00 00 00 00 00 00 00 00 00\n\t0110\t00 ab\n", string(hexdump(p, 0x100)))
	assert.Empty(t, hexdump(nil, 0))
}
