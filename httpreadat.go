package contentrange

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

// HTTPReaderAt is an io.ReaderAt that reads a remote resource through HTTP
// Range Requests (RFC 7233). New instances must be created with NewReaderAt.
// It is safe for concurrent use.
//
// It can be combined with packages like archive/zip to access pieces of a
// remote file without downloading all of it.
type HTTPReaderAt struct {
	client Requester
	req    *http.Request
	meta   Meta
}

var _ io.ReaderAt = (*HTTPReaderAt)(nil)

// ErrValidationFailed is returned if the remote resource changed between
// requests, detected through size, ETag or Last-Modified drift.
var ErrValidationFailed = errors.New("validation failed")

// ErrNoRange is returned if the server does not answer range requests with
// 206 Partial Content.
var ErrNoRange = errors.New("server does not support range requests")

// NewReaderAt probes the server with a one-byte range request and returns a
// reader positioned over the resource. The supplied request is a prototype,
// it is cloned before every use and must be a GET.
func NewReaderAt(client Requester, req *http.Request) (*HTTPReaderAt, error) {
	if client == nil || req == nil {
		return nil, errors.New("client and request are required")
	}
	if req.Method != http.MethodGet {
		return nil, errors.Errorf("invalid HTTP method %q, must be GET", req.Method)
	}
	ra := &HTTPReaderAt{
		client: client,
		req:    req,
	}
	if err := ra.init(); err != nil {
		return nil, err
	}
	return ra, nil
}

// ContentType returns the probed "Content-Type" header contents.
func (ra *HTTPReaderAt) ContentType() string {
	return ra.meta.contentType
}

// LastModified returns the probed "Last-Modified" header contents.
func (ra *HTTPReaderAt) LastModified() string {
	return ra.meta.lastModified
}

// Size returns the complete length of the resource, or -1 if the server did
// not report it.
func (ra *HTTPReaderAt) Size() int64 {
	return ra.meta.size
}

// Clone returns a copy of the reader whose requests are bound to ctx.
// The copy shares the probed metadata, so change detection still spans
// every clone of the same reader.
func (ra *HTTPReaderAt) Clone(ctx context.Context) *HTTPReaderAt {
	out := *ra
	out.req = ra.req.WithContext(ctx)
	return &out
}

// init makes a 1 byte range request to learn whether ranges are supported
// and to capture the resource metadata for later validation.
// The method is kept as GET rather than HEAD so signed requests stay valid.
func (ra *HTTPReaderAt) init() error {
	var req = ra.cloneRequest()
	req.Header.Set(HeaderRange, "bytes=0-0")
	var resp, err = ra.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "probe request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return errors.Wrapf(ErrNoRange, "probe got %s", resp.Status)
	}
	if ra.meta, err = getMeta(resp); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ReadAt reads len(p) bytes starting at byte offset off. It returns a
// non-nil error whenever n < len(p); at end of file that error is io.EOF.
// It is safe for concurrent use.
//
// Reads past a known end of file are clamped instead of forwarded, some
// servers answer 416 when asked to read past the end. If the resource's
// size or validator headers change between calls, ErrValidationFailed is
// returned.
func (ra *HTTPReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	var reqFirst = off
	var reqLast = off + int64(len(p)) - 1

	var returnErr error
	if ra.meta.size != -1 && reqLast > ra.meta.size-1 {
		reqLast = ra.meta.size - 1
		returnErr = io.EOF
		if reqLast < reqFirst {
			return 0, io.EOF
		}
		p = p[:reqLast-reqFirst+1]
	}

	var req = ra.cloneRequest()
	req.Header.Set(HeaderRange, rangeHeader(reqFirst, reqLast))

	var resp, err = ra.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "range request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		return 0, errors.Wrapf(ErrNoRange, "range request got %s", resp.Status)
	}

	var meta Meta
	if meta, err = getMeta(resp); err != nil {
		return 0, err
	}
	if err = ra.validate(meta); err != nil {
		return 0, err
	}
	if meta.start != reqFirst || meta.end > reqLast {
		return 0, errors.Errorf(
			"received different range than requested (req=%d-%d, resp=%d-%d)",
			reqFirst, reqLast, meta.start, meta.end)
	}
	if resp.ContentLength != meta.end-meta.start+1 {
		return 0, errors.New("content-length mismatch in http response")
	}

	var n int
	n, err = io.ReadFull(resp.Body, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if (err == nil || err == io.EOF) && int64(n) != resp.ContentLength {
		return n, errors.Errorf("body size %d differs from Content-Length %d", n, resp.ContentLength)
	}
	if err == nil && returnErr != nil {
		err = returnErr
	}
	return n, err
}

// validate compares a response's metadata with the probe's.
func (ra *HTTPReaderAt) validate(meta Meta) error {
	if ra.meta.size != meta.size ||
		ra.meta.lastModified != meta.lastModified ||
		ra.meta.etag != meta.etag {
		return ErrValidationFailed
	}
	return nil
}

func (ra *HTTPReaderAt) cloneRequest() *http.Request {
	out := *ra.req
	out.Body = nil
	out.ContentLength = 0
	out.Header = cloneHeader(ra.req.Header)
	return &out
}
