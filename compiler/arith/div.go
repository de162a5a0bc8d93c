package arith

import (
	"tlog.app/go/errors"
)

// DivMod returns unsigned quotient and remainder.
func DivMod(d, v Word) (q, r Word, err error) {
	if v == 0 {
		return 0, 0, errors.Wrap(ErrDivideByZero, "%d / %d", d, v)
	}

	return d / v, d % v, nil
}

func Div(d, v Word) (Word, error) {
	q, _, err := DivMod(d, v)
	return q, err
}

func Mod(d, v Word) (Word, error) {
	_, r, err := DivMod(d, v)
	return r, err
}

// SerialDivMod is cdiv/cmod: binary long division, one quotient bit
// per iteration. The quotient grows in the low bits of the dividend
// register as the dividend is shifted into the remainder.
//
// A zero divisor is not checked. Every trial subtraction succeeds, so the
// result is quotient 0xffff and remainder d.
func SerialDivMod(d, v Word) (q, r Word) {
	q = d

	for n := 0; n < 16; n++ {
		c := r >> 15 // remainder bit shifted out of the register

		r = r<<1 | q>>15
		q <<= 1

		if c != 0 || r >= v {
			r -= v
			q |= 1
		}
	}

	return q, r
}

// Quo is signed division truncating toward zero.
func Quo(d, v Word) (Word, error) {
	q, _, err := signed(d, v)
	return q, err
}

// Rem is signed remainder, having the sign of the dividend.
func Rem(d, v Word) (Word, error) {
	_, r, err := signed(d, v)
	return r, err
}

func signed(d, v Word) (q, r Word, err error) {
	dn, vn := int16(d) < 0, int16(v) < 0

	q, r, err = DivMod(abs(d), abs(v))
	if err != nil {
		return 0, 0, err
	}

	if dn != vn {
		q = -q
	}

	if dn {
		r = -r
	}

	return q, r, nil
}

func abs(x Word) Word {
	if int16(x) < 0 {
		return -x
	}

	return x
}
