package obj

import (
	"bytes"
	"encoding/hex"
	"strings"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type (
	// Desc is the textual form of a Module.
	Desc struct {
		BSS     uint16       `yaml:"bss,omitempty"`
		Text    []RecordDesc `yaml:"text,omitempty"`
		Data    []RecordDesc `yaml:"data,omitempty"`
		Symbols []SymbolDesc `yaml:"symbols,omitempty"`
	}

	// RecordDesc is exactly one of hex bytes, ascii string or reference.
	RecordDesc struct {
		Hex    string   `yaml:"hex,omitempty"`
		String string   `yaml:"string,omitempty"`
		Ref    *RefDesc `yaml:"ref,omitempty"`
	}

	RefDesc struct {
		Symbol string `yaml:"symbol,omitempty"`
		Addend uint16 `yaml:"addend,omitempty"`
		Byte   bool   `yaml:"byte,omitempty"`
		Hi     bool   `yaml:"hi,omitempty"`
		HiLo   bool   `yaml:"hilo,omitempty"`
	}

	SymbolDesc struct {
		Name    string `yaml:"name"`
		Value   uint16 `yaml:"value,omitempty"`
		Segment string `yaml:"segment,omitempty"`
		Extern  bool   `yaml:"extern,omitempty"`
		Export  bool   `yaml:"export,omitempty"`
		Common  bool   `yaml:"common,omitempty"`
	}
)

func ParseDesc(text []byte) (d *Desc, err error) {
	dec := yaml.NewDecoder(bytes.NewReader(text))
	dec.KnownFields(true)

	d = new(Desc)

	err = dec.Decode(d)
	if err != nil {
		return nil, errors.Wrap(err, "decode yaml")
	}

	return d, nil
}

func (d *Desc) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Module builds the module. Long literals are split into runs.
func (d *Desc) Module() (m *Module, err error) {
	m = &Module{BSS: d.BSS}

	m.Text, err = descSegment(d.Text)
	if err != nil {
		return nil, errors.Wrap(err, "text")
	}

	m.Data, err = descSegment(d.Data)
	if err != nil {
		return nil, errors.Wrap(err, "data")
	}

	for i, sd := range d.Symbols {
		s, err := sd.symbol()
		if err != nil {
			return nil, errors.Wrap(err, "symbol %d", i)
		}

		m.Symbols = append(m.Symbols, s)
	}

	return m, nil
}

// Describe converts the module back to its textual form.
func Describe(m *Module) *Desc {
	d := &Desc{
		BSS:  m.BSS,
		Text: describeSegment(m.Text),
		Data: describeSegment(m.Data),
	}

	for _, s := range m.Symbols {
		d.Symbols = append(d.Symbols, SymbolDesc{
			Name:    s.Name.String(),
			Value:   s.Value,
			Segment: s.Flags.SegName(),
			Extern:  s.Flags&SymExtern != 0,
			Export:  s.Flags&SymExport != 0,
			Common:  s.Flags&SymCommon != 0,
		})
	}

	return d
}

func descSegment(rs []RecordDesc) (s Segment, err error) {
	for i, rd := range rs {
		set := 0

		for _, ok := range []bool{rd.Hex != "", rd.String != "", rd.Ref != nil} {
			if ok {
				set++
			}
		}

		if set != 1 {
			return nil, errors.Wrap(ErrMalformedRecord, "record %d: need exactly one of hex, string, ref", i)
		}

		switch {
		case rd.Hex != "":
			p, err := hex.DecodeString(strings.Join(strings.Fields(rd.Hex), ""))
			if err != nil {
				return nil, errors.Wrap(err, "record %d", i)
			}

			s = s.AppendLiteral(p)
		case rd.String != "":
			s = s.AppendLiteral([]byte(rd.String))
		default:
			r, err := rd.Ref.reference()
			if err != nil {
				return nil, errors.Wrap(err, "record %d", i)
			}

			s = append(s, r)
		}
	}

	return s, nil
}

func describeSegment(s Segment) (rs []RecordDesc) {
	for _, r := range s {
		switch r := r.(type) {
		case Literal:
			rs = append(rs, RecordDesc{Hex: hex.EncodeToString(r)})
		case Reference:
			rs = append(rs, RecordDesc{Ref: &RefDesc{
				Symbol: r.Symbol.String(),
				Addend: r.Addend,
				Byte:   r.Flags&RefByte != 0,
				Hi:     r.Flags&RefHi != 0,
				HiLo:   r.Flags&RefHiLo != 0,
			}})
		}
	}

	return rs
}

func (rd *RefDesc) reference() (r Reference, err error) {
	r.Addend = rd.Addend

	if rd.Symbol != "" {
		r.Flags |= RefSymbol

		r.Symbol, err = MakeName(rd.Symbol)
		if err != nil {
			return r, err
		}
	}

	if rd.Byte {
		r.Flags |= RefByte
	}

	if rd.Hi {
		r.Flags |= RefHi
	}

	if rd.HiLo {
		r.Flags |= RefHiLo
	}

	return r, nil
}

func (sd SymbolDesc) symbol() (s Symbol, err error) {
	s.Name, err = MakeName(sd.Name)
	if err != nil {
		return s, err
	}

	s.Value = sd.Value

	switch sd.Segment {
	case "", "text":
		s.Flags = SymText
	case "data":
		s.Flags = SymData
	case "bss":
		s.Flags = SymBSS
	default:
		return s, errors.Wrap(ErrMalformedRecord, "symbol %v: segment %q", sd.Name, sd.Segment)
	}

	if sd.Extern {
		s.Flags |= SymExtern
	}

	if sd.Export {
		s.Flags |= SymExport
	}

	if sd.Common {
		s.Flags |= SymCommon
	}

	return s, s.Validate()
}
