package contentrange

import "math"

// scanner is a cursor over a header value. It is created on the stack for a
// single parse call and never escapes it. Every primitive is bounds-checked
// and reports a miss through its second return value instead of panicking.
type scanner struct {
	s   string
	pos int
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t'
}

// peek returns the next unread byte without consuming it.
func (sc *scanner) peek() (byte, bool) {
	if sc.pos >= len(sc.s) {
		return 0, false
	}
	return sc.s[sc.pos], true
}

// next consumes and returns the next byte.
func (sc *scanner) next() (byte, bool) {
	c, ok := sc.peek()
	if ok {
		sc.pos++
	}
	return c, ok
}

// skipBlanks consumes a run of spaces and tabs, then returns the first byte
// after the run without consuming it. Only 0x20 and 0x09 count as blank,
// newlines and other whitespace do not.
func (sc *scanner) skipBlanks() (byte, bool) {
	for {
		c, ok := sc.peek()
		if !ok {
			return 0, false
		}
		if !isBlank(c) {
			return c, true
		}
		sc.pos++
	}
}

// expectSep skips blanks, consumes the separator byte sep, skips blanks again
// and returns the following byte unconsumed. A wrong byte in place of sep or
// running out of input is a miss.
func (sc *scanner) expectSep(sep byte) (byte, bool) {
	c, ok := sc.skipBlanks()
	if !ok || c != sep {
		return 0, false
	}
	sc.pos++
	return sc.skipBlanks()
}

// parseUint64 greedily consumes a run of ASCII digits and folds them into a
// uint64. The first byte must be a digit. A value that does not fit in 64
// bits is a miss, not a wraparound. The byte that ends the run is left for
// the caller.
func (sc *scanner) parseUint64() (uint64, bool) {
	c, ok := sc.peek()
	if !ok || c < '0' || c > '9' {
		return 0, false
	}
	var n uint64
	for {
		c, ok = sc.peek()
		if !ok || c < '0' || c > '9' {
			return n, true
		}
		d := uint64(c - '0')
		if n > (math.MaxUint64-d)/10 {
			return 0, false
		}
		n = n*10 + d
		sc.pos++
	}
}
