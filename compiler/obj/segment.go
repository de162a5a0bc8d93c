package obj

import (
	"tlog.app/go/errors"
)

type Segment []Record

// AppendLiteral adds p split into runs of at most MaxLiteral bytes.
// p is copied.
func (s Segment) AppendLiteral(p []byte) Segment {
	for len(p) > 0 {
		n := min(len(p), MaxLiteral)

		s = append(s, append(Literal(nil), p[:n]...))
		p = p[n:]
	}

	return s
}

// Size is the segment size in the linked output.
// nil records take no space.
func (s Segment) Size() (n int) {
	for _, r := range s {
		if r != nil {
			n += r.Size()
		}
	}

	return n
}

// AppendSegment encodes records followed by the end marker.
func AppendSegment(b []byte, s Segment) (_ []byte, err error) {
	for i, r := range s {
		b, err = AppendRecord(b, r)
		if err != nil {
			return nil, errors.Wrap(err, "record %d", i)
		}
	}

	return append(b, 0), nil
}

// ParseSegment decodes records at b[i:] up to and including the end marker.
func ParseSegment(b []byte, i int) (s Segment, _ int, err error) {
	for {
		var r Record

		r, i, err = ParseRecord(b, i)
		if err != nil {
			return nil, i, errors.Wrap(err, "record %d", len(s))
		}

		if r == nil {
			return s, i, nil
		}

		s = append(s, r)
	}
}
