package obj

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"
)

func ReadFile(ctx context.Context, name string) (m *Module, err error) {
	tr, _ := tlog.SpawnFromContextAndWrap(ctx, "obj: read file", "name", name)
	defer tr.Finish("err", &err)

	b, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tr.Printw("read file", "size", len(b))

	m, err = ParseModule(b)
	if err != nil {
		return nil, errors.Wrap(err, "parse %v", name)
	}

	if tr.If("obj_records") {
		traceSegment(tr, "text", m.Text)
		traceSegment(tr, "data", m.Data)

		for i, s := range m.Symbols {
			tr.Printw("symbol", "i", i, "sym", s)
		}
	}

	return m, nil
}

func WriteFile(ctx context.Context, name string, m *Module) (err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "obj: write file", "name", name)
	defer tr.Finish("err", &err)

	b, err := EncodeModule(ctx, m)
	if err != nil {
		return errors.Wrap(err, "encode")
	}

	err = os.WriteFile(name, b, 0o644)
	if err != nil {
		return errors.Wrap(err, "write file")
	}

	tr.Printw("written", "size", len(b))

	return nil
}

func traceSegment(tr tlog.Span, seg string, s Segment) {
	off := 0

	for i, r := range s {
		tr.Printw("record", "seg", seg, "i", i, "off", off, "rec", r, "from", loc.Caller(1))

		off += r.Size()
	}
}
