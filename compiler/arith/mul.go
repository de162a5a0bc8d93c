package arith

// Mul returns x*y truncated to 16 bits.
func Mul(x, y Word) Word {
	return x * y
}

// SerialMul is cmult: shift-and-add over a 32 bit accumulator kept in
// two Words. The multiplier starts in the low half and is shifted out
// as the product is shifted in.
func SerialMul(x, y Word) Word {
	var hi Word
	lo := y

	for n := 0; n < 16; n++ {
		var c Word

		if lo&1 != 0 {
			s := hi + x
			if s < hi {
				c = 1
			}

			hi = s
		}

		lo = lo>>1 | hi<<15
		hi = hi>>1 | c<<15
	}

	return lo
}
