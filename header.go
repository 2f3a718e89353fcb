package contentrange

import (
	"fmt"
	"math"
	"net/http"

	"github.com/pkg/errors"
)

// RangeUnsatisfiedError is returned when the server answered 416 Range Not
// Satisfiable. CompleteLength is the total resource size reported by the
// accompanying "bytes */N" header.
type RangeUnsatisfiedError struct {
	CompleteLength uint64
}

func (e *RangeUnsatisfiedError) Error() string {
	return fmt.Sprintf("range not satisfiable, complete length %d", e.CompleteLength)
}

// Meta summarizes a range response: the span of bytes it carries, the total
// resource size (-1 when unknown) and the validator headers used to detect
// the resource changing between requests.
type Meta struct {
	start        int64
	end          int64
	size         int64
	lastModified string
	etag         string
	contentType  string
}

// getMeta derives Meta from a response. A 200 covers the whole body, a 206
// is described by its Content-Range header, a 416 yields Meta with the total
// size plus a RangeUnsatisfiedError. Sizes beyond int64 are rejected rather
// than truncated.
func getMeta(resp *http.Response) (Meta, error) {
	var meta = Meta{
		start:        -1,
		end:          -1,
		size:         -1,
		lastModified: resp.Header.Get(HeaderLastModified),
		etag:         resp.Header.Get(HeaderETag),
		contentType:  resp.Header.Get(HeaderContentType),
	}
	switch resp.StatusCode {
	case http.StatusOK:
		meta.size = resp.ContentLength

	case http.StatusPartialContent:
		header := resp.Header.Get(HeaderContentRange)
		if header == "" {
			// tolerated, the span stays unknown and validation catches it
			return meta, nil
		}
		r, err := Parse(header)
		if err != nil {
			return Meta{}, errors.Wrapf(err, "bad %s header %q", HeaderContentRange, header)
		}
		switch r.Kind {
		case KindBytes:
			if meta.start, err = toInt64(r.FirstByte); err != nil {
				return Meta{}, err
			}
			if meta.end, err = toInt64(r.LastByte); err != nil {
				return Meta{}, err
			}
			if meta.size, err = toInt64(r.CompleteLength); err != nil {
				return Meta{}, err
			}
		case KindUnbound:
			if meta.start, err = toInt64(r.FirstByte); err != nil {
				return Meta{}, err
			}
			if meta.end, err = toInt64(r.LastByte); err != nil {
				return Meta{}, err
			}
		default:
			return Meta{}, errors.Errorf("header %q does not describe a 206 response", header)
		}

	case http.StatusRequestedRangeNotSatisfiable:
		header := resp.Header.Get(HeaderContentRange)
		r, err := Parse(header)
		if err != nil || r.Kind != KindUnsatisfied {
			return Meta{}, errors.Errorf("416 response with unusable %s header %q", HeaderContentRange, header)
		}
		if meta.size, err = toInt64(r.CompleteLength); err != nil {
			return Meta{}, err
		}
		return meta, &RangeUnsatisfiedError{CompleteLength: r.CompleteLength}
	}
	return meta, nil
}

func toInt64(u uint64) (int64, error) {
	if u > math.MaxInt64 {
		return 0, errors.Errorf("range value %d overflows int64", u)
	}
	return int64(u), nil
}

func cloneHeader(h http.Header) http.Header {
	h2 := make(http.Header, len(h))
	for k, vv := range h {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2[k] = vv2
	}
	return h2
}
