package port

import (
	"github.com/slowlang/c80/compiler/arith"
)

type (
	// Bus is the host side of the 8080 in/out instructions.
	Bus interface {
		In(port byte) byte
		Out(port, v byte)
	}

	// Mem is a Bus serving queued input and recording output per port.
	Mem struct {
		Input  map[byte][]byte
		Output map[byte][]byte
	}
)

// In80 reads a byte from port and sign-extends it, as in80 does.
func In80(b Bus, port arith.Word) arith.Word {
	return arith.Extend(b.In(byte(port)))
}

// Out80 writes the low byte of v to port.
func Out80(b Bus, port, v arith.Word) {
	b.Out(byte(port), byte(v))
}

func NewMem() *Mem {
	return &Mem{
		Input:  map[byte][]byte{},
		Output: map[byte][]byte{},
	}
}

// Feed queues input bytes for port.
func (m *Mem) Feed(port byte, p ...byte) {
	m.Input[port] = append(m.Input[port], p...)
}

// In returns the next queued byte or 0xff when port has nothing queued.
func (m *Mem) In(port byte) byte {
	q := m.Input[port]
	if len(q) == 0 {
		return 0xff
	}

	m.Input[port] = q[1:]

	return q[0]
}

func (m *Mem) Out(port, v byte) {
	m.Output[port] = append(m.Output[port], v)
}
