// Package contentrange parses the HTTP Content-Range response header as
// defined by RFC 7233 section 4.2.
//
// Valid bytes responses:
//
//	Content-Range: bytes 42-1233/1234
//	Content-Range: bytes 42-1233/*
//	Content-Range: bytes */1233
//
// The parser is a bit more lenient than the RFC: it allows any run of spaces
// and tabs between tokens, where the RFC requires exactly one space after the
// unit. Everything else is strict. Non-"bytes" units, multipart ranges and
// any trailing garbage fail the parse. Parsing allocates nothing and is safe
// to call from any number of goroutines.
package contentrange

import (
	"errors"
	"fmt"
	"strings"
)

// unitPrefix is the only range unit this package understands, case-sensitive.
const unitPrefix = "bytes"

// ErrUnparseable is returned by Parse for any header that does not match the
// grammar or violates a range invariant. There is deliberately no finer
// taxonomy: a wrong unit, a missing separator, a non-digit, a 64-bit
// overflow and an out-of-order range all collapse into this one value.
var ErrUnparseable = errors.New("cannot parse Content-Range header")

// Kind discriminates the valid shapes of a Content-Range header.
type Kind int

const (
	// KindUnknown is the zero value. Parse never returns it together with a
	// nil error.
	KindUnknown Kind = iota
	// KindBytes is a satisfiable byte range with a known complete length,
	// sent with status 206.
	KindBytes
	// KindUnbound is a satisfiable byte range whose complete length the
	// server reported as "*", sent with status 206.
	KindUnbound
	// KindUnsatisfied carries only the complete length and means the
	// requested range could not be honored, sent with status 416.
	KindUnsatisfied
)

// ContentRange is a parsed Content-Range header value. Which fields are
// meaningful depends on Kind: FirstByte and LastByte for KindBytes and
// KindUnbound, CompleteLength for KindBytes and KindUnsatisfied. It is a
// plain value, copy it freely.
//
// Successful values satisfy FirstByte <= LastByte, and for KindBytes
// additionally LastByte < CompleteLength.
type ContentRange struct {
	Kind           Kind
	FirstByte      uint64
	LastByte       uint64
	CompleteLength uint64
}

// Parse parses a Content-Range header value such as "bytes 0-9/20".
// It returns ErrUnparseable for anything it cannot fully decode; there are
// no partial results.
func Parse(header string) (ContentRange, error) {
	if r, ok := parse(header); ok {
		return r, nil
	}
	return ContentRange{}, ErrUnparseable
}

// ParseBytes is Parse for callers that hold the header as a byte slice.
func ParseBytes(header []byte) (ContentRange, error) {
	return Parse(string(header))
}

// parse decodes the grammar in one left-to-right pass, no backtracking.
// Any miss anywhere aborts the whole parse.
func parse(header string) (ContentRange, bool) {
	if !strings.HasPrefix(header, unitPrefix) {
		return ContentRange{}, false
	}
	sc := scanner{s: header, pos: len(unitPrefix)}

	// the unit must be followed by at least one space or tab, this rejects
	// "bytes=0-1/2" and "bytes0-1/2"
	c, ok := sc.next()
	if !ok || !isBlank(c) {
		return ContentRange{}, false
	}
	c, ok = sc.skipBlanks()
	if !ok {
		return ContentRange{}, false
	}

	var res ContentRange
	if c == '*' {
		// unsatisfied range: */complete-length
		sc.pos++
		if _, ok = sc.expectSep('/'); !ok {
			return ContentRange{}, false
		}
		length, ok := sc.parseUint64()
		if !ok {
			return ContentRange{}, false
		}
		res = ContentRange{Kind: KindUnsatisfied, CompleteLength: length}
	} else {
		// byte range: first-last/(complete-length|*)
		first, ok := sc.parseUint64()
		if !ok {
			return ContentRange{}, false
		}
		if _, ok = sc.expectSep('-'); !ok {
			return ContentRange{}, false
		}
		last, ok := sc.parseUint64()
		if !ok || first > last {
			return ContentRange{}, false
		}
		c, ok = sc.expectSep('/')
		if !ok {
			return ContentRange{}, false
		}
		if c == '*' {
			sc.pos++
			res = ContentRange{Kind: KindUnbound, FirstByte: first, LastByte: last}
		} else {
			length, ok := sc.parseUint64()
			if !ok || last >= length {
				return ContentRange{}, false
			}
			res = ContentRange{
				Kind:           KindBytes,
				FirstByte:      first,
				LastByte:       last,
				CompleteLength: length,
			}
		}
	}

	// nothing but blanks may remain
	if _, ok = sc.skipBlanks(); ok {
		return ContentRange{}, false
	}
	return res, true
}

// String renders the canonical header value with single spacing, so a parsed
// header round-trips through String and Parse. The zero value renders empty.
func (r ContentRange) String() string {
	switch r.Kind {
	case KindBytes:
		return fmt.Sprintf("bytes %d-%d/%d", r.FirstByte, r.LastByte, r.CompleteLength)
	case KindUnbound:
		return fmt.Sprintf("bytes %d-%d/*", r.FirstByte, r.LastByte)
	case KindUnsatisfied:
		return fmt.Sprintf("bytes */%d", r.CompleteLength)
	}
	return ""
}
