package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/c80/compiler/obj"
)

// BuildFile reads an object description and returns the encoded object.
func BuildFile(ctx context.Context, name string) (b []byte, err error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Build(ctx, text)
}

func Build(ctx context.Context, text []byte) (b []byte, err error) {
	d, err := obj.ParseDesc(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse description")
	}

	m, err := d.Module()
	if err != nil {
		return nil, errors.Wrap(err, "build module")
	}

	b, err = obj.EncodeModule(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "encode")
	}

	return b, nil
}

// Describe decodes an object and returns its description.
func Describe(ctx context.Context, b []byte) (text []byte, err error) {
	m, err := obj.ParseModule(b)
	if err != nil {
		return nil, errors.Wrap(err, "parse object")
	}

	text, err = obj.Describe(m).Marshal()
	if err != nil {
		return nil, errors.Wrap(err, "marshal")
	}

	return text, nil
}
