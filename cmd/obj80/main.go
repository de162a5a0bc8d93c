package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"

	"github.com/slowlang/c80/compiler"
	"github.com/slowlang/c80/compiler/arith"
	"github.com/slowlang/c80/compiler/format"
	"github.com/slowlang/c80/compiler/link"
	"github.com/slowlang/c80/compiler/obj"
)

func main() {
	cli.RunAndExit(App(), os.Args, os.Environ())
}

func App() *cli.Command {
	buildCmd := &cli.Command{
		Name:        "build",
		Description: "build object files from yaml descriptions",
		Action:      buildAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output", "", "output file, only with a single input (default: input with .o extension)"),
		},
	}

	dumpCmd := &cli.Command{
		Name:        "dump",
		Description: "print object files",
		Action:      dumpAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("yaml", false, "print yaml description instead of listing"),
		},
	}

	relocateCmd := &cli.Command{
		Name:        "relocate",
		Description: "relocate object segments to given addresses",
		Action:      relocateAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("text", "0", "text segment base"),
			cli.NewFlag("data", "", "data segment base (default: after text)"),
			cli.NewFlag("bss", "", "bss segment base (default: after data)"),
			cli.NewFlag("sym", "", "exported symbols: name=addr,name=addr"),
		},
	}

	calcCmd := &cli.Command{
		Name:        "calc",
		Description: "evaluate runtime arithmetic: calc <op> <a> <b>",
		Action:      calcAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("serial", false, "use bit-serial runtime routines (mul, div, mod)"),
		},
	}

	app := &cli.Command{
		Name:        "obj80",
		Description: "obj80 is a tool for 8080 object files and runtime arithmetic",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr?dm", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			buildCmd,
			dumpCmd,
			relocateCmd,
			calcCmd,
		},
	}

	return app
}

func before(c *cli.Command) error {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func buildAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	out := c.String("output")
	if out != "" && len(c.Args) != 1 {
		return errors.New("--output needs exactly one input, got %d", len(c.Args))
	}

	for _, a := range c.Args {
		b, err := compiler.BuildFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		name := out
		if name == "" {
			name = strings.TrimSuffix(a, filepath.Ext(a)) + ".o"
		}

		err = os.WriteFile(name, b, 0o644)
		if err != nil {
			return errors.Wrap(err, "write %v", name)
		}

		tlog.Printw("built", "src", a, "obj", name, "size", len(b))
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	for _, a := range c.Args {
		m, err := obj.ReadFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		var b []byte

		if c.Bool("yaml") {
			b, err = obj.Describe(m).Marshal()
		} else {
			b, err = format.Module(ctx, nil, m)
		}
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Fprintf(c.Stdout, "# %s\n%s", a, b)
	}

	return nil
}

func relocateAct(c *cli.Command) (err error) {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) != 1 {
		return errors.New("need exactly one object file")
	}

	m, err := obj.ReadFile(ctx, c.Args[0])
	if err != nil {
		return errors.Wrap(err, "read object")
	}

	h, err := m.Header()
	if err != nil {
		return err
	}

	var b link.Bases

	b.Text, err = parseWord(c.String("text"), 0)
	if err != nil {
		return errors.Wrap(err, "text base")
	}

	end, err := segmentEnd(b.Text, h.Text)
	if err != nil {
		return errors.Wrap(err, "text")
	}

	b.Data, err = parseWord(c.String("data"), end)
	if err != nil {
		return errors.Wrap(err, "data base")
	}

	end, err = segmentEnd(b.Data, h.Data)
	if err != nil {
		return errors.Wrap(err, "data")
	}

	b.BSS, err = parseWord(c.String("bss"), end)
	if err != nil {
		return errors.Wrap(err, "bss base")
	}

	_, err = segmentEnd(b.BSS, h.BSS)
	if err != nil {
		return errors.Wrap(err, "bss")
	}

	exported, err := parseSyms(c.String("sym"))
	if err != nil {
		return errors.Wrap(err, "symbols")
	}

	im, err := link.RelocateModule(ctx, m, b, exported)
	if err != nil {
		return errors.Wrap(err, "relocate")
	}

	fmt.Fprintf(c.Stdout, "text %04x\n%s", b.Text, hexdump(im.Text, b.Text))
	fmt.Fprintf(c.Stdout, "data %04x\n%s", b.Data, hexdump(im.Data, b.Data))
	fmt.Fprintf(c.Stdout, "bss  %04x +%04x\n", b.BSS, h.BSS)

	return nil
}

func calcAct(c *cli.Command) (err error) {
	if len(c.Args) != 3 {
		return errors.New("usage: calc <op> <a> <b>")
	}

	var w [2]arith.Word

	for i, a := range c.Args[1:] {
		v, err := strconv.ParseInt(a, 0, 32)
		if err != nil || v < -0x8000 || v > 0xffff {
			return errors.New("bad operand: %q", a)
		}

		w[i] = arith.Word(v)
	}

	x, y := w[0], w[1]
	op := c.Args[0]
	serial := c.Bool("serial")

	if serial && op != "mul" && op != "div" && op != "mod" {
		return errors.New("no serial routine for %q", op)
	}

	var r arith.Word

	switch {
	case op == "mul" && serial:
		r = arith.SerialMul(x, y)
	case op == "mul":
		r = arith.Mul(x, y)
	case (op == "div" || op == "mod") && serial:
		q, m := arith.SerialDivMod(x, y)

		r = q
		if op == "mod" {
			r = m
		}
	case op == "div":
		r, err = arith.Div(x, y)
	case op == "mod":
		r, err = arith.Mod(x, y)
	case op == "quo":
		r, err = arith.Quo(x, y)
	case op == "rem":
		r, err = arith.Rem(x, y)
	case op == "shl":
		r = arith.Shl(x, y)
	case op == "shr":
		r = arith.Shr(x, y)
	case op == "ushr":
		r = arith.Ushr(x, y)
	case op == "cmp":
		r = arith.Word(arith.Cmp(x, y))
	case op == "ucmp":
		r = arith.Word(arith.UCmp(x, y))
	default:
		return errors.New("unknown op: %q", op)
	}

	if err != nil {
		return errors.Wrap(err, "%v", op)
	}

	fmt.Fprintf(c.Stdout, "%#04x %d %d\n", uint16(r), uint16(r), r.Int())

	return nil
}

// segmentEnd is the first address after size bytes loaded at base.
func segmentEnd(base, size uint16) (uint16, error) {
	end := int(base) + int(size)
	if end > math.MaxUint16 {
		return 0, errors.New("%#x bytes at %#04x overflow the address space", size, base)
	}

	return uint16(end), nil
}

func parseWord(s string, def uint16) (uint16, error) {
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, errors.Wrap(err, "parse %q", s)
	}

	return uint16(v), nil
}

func parseSyms(s string) (link.Table, error) {
	t := link.Table{}

	for _, kv := range strings.Split(s, ",") {
		if kv == "" {
			continue
		}

		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("expected name=addr: %q", kv)
		}

		n, err := obj.MakeName(k)
		if err != nil {
			return nil, err
		}

		t[n], err = parseWord(v, 0)
		if err != nil {
			return nil, errors.Wrap(err, "symbol %v", k)
		}
	}

	return t, nil
}

func hexdump(p []byte, base uint16) (b []byte) {
	for i := 0; i < len(p); i += 16 {
		b = fmt.Appendf(b, "\t%04x\t% x\n", base+uint16(i), p[i:min(i+16, len(p))])
	}

	return b
}
