package port

import (
	"github.com/slowlang/c80/compiler/arith"
)

// Serial port layout of the reference board.
const (
	SIOPort = 020 // status and control
	SIOData = 021

	SIOClock  = 0
	SIOParity = 07

	SIOXmit = 02 // transmitter ready
)

// SIO drives the serial port through a Bus.
type SIO struct {
	Bus Bus
}

func (s SIO) Init() {
	Out80(s.Bus, SIOPort, SIOClock<<5|SIOParity<<2|SIOClock)
}

// Putchar waits for the transmitter and writes the 7 bit character c.
func (s SIO) Putchar(c arith.Word) {
	for In80(s.Bus, SIOPort)&SIOXmit == 0 {
	}

	Out80(s.Bus, SIOData, c&0177)
}

// Getchar reads a 7 bit character from the data port.
func (s SIO) Getchar() arith.Word {
	return 0177 & In80(s.Bus, SIOData)
}

// Puts writes str up to the first NUL byte.
func (s SIO) Puts(str []byte) {
	for _, c := range str {
		if c == 0 {
			return
		}

		s.Putchar(arith.Word(c))
	}
}
