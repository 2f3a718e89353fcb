package contentrange

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

// newRangeServer serves content as a range-capable origin. etag is consulted
// on every request so tests can flip it mid-flight.
func newRangeServer(content []byte, etag func() string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var first, last int64
		if _, err := fmt.Sscanf(r.Header.Get(HeaderRange), "bytes=%d-%d", &first, &last); err != nil {
			http.Error(w, "bad range", http.StatusBadRequest)
			return
		}
		size := int64(len(content))
		if first >= size {
			w.Header().Set(HeaderContentRange, fmt.Sprintf("bytes */%d", size))
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		if last >= size {
			last = size - 1
		}
		w.Header().Set(HeaderETag, etag())
		w.Header().Set(HeaderContentRange, fmt.Sprintf("bytes %d-%d/%d", first, last, size))
		w.Header().Set(HeaderContentLength, strconv.FormatInt(last-first+1, 10))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[first : last+1])
	}))
}

func testContent(n int) []byte {
	content := make([]byte, n)
	for i := range content {
		content[i] = byte(i * 7)
	}
	return content
}

func constEtag(s string) func() string {
	return func() string { return s }
}

func newTestReader(t *testing.T, srv *httptest.Server) *HTTPReaderAt {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	ra, err := NewReaderAt(srv.Client(), req)
	if err != nil {
		t.Fatalf("NewReaderAt: %v", err)
	}
	return ra
}

func Test_ReaderAtProbe(t *testing.T) {
	content := testContent(100)
	srv := newRangeServer(content, constEtag(`"v1"`))
	defer srv.Close()

	ra := newTestReader(t, srv)
	if ra.Size() != 100 {
		t.Errorf("Size() = %d, want 100", ra.Size())
	}
}

func Test_ReaderAtReadAt(t *testing.T) {
	content := testContent(100)
	srv := newRangeServer(content, constEtag(`"v1"`))
	defer srv.Close()

	ra := newTestReader(t, srv)

	p := make([]byte, 10)
	n, err := ra.ReadAt(p, 5)
	if err != nil || n != 10 {
		t.Fatalf("ReadAt = %d, %v, want 10, nil", n, err)
	}
	if !bytes.Equal(p, content[5:15]) {
		t.Errorf("ReadAt returned wrong bytes")
	}

	// reads crossing the end are clamped and finish with io.EOF
	p = make([]byte, 50)
	n, err = ra.ReadAt(p, 80)
	if n != 20 || err != io.EOF {
		t.Fatalf("ReadAt past end = %d, %v, want 20, io.EOF", n, err)
	}
	if !bytes.Equal(p[:n], content[80:]) {
		t.Errorf("clamped ReadAt returned wrong bytes")
	}

	// reads entirely past the end never hit the wire
	if n, err = ra.ReadAt(p, 100); n != 0 || err != io.EOF {
		t.Errorf("ReadAt at end = %d, %v, want 0, io.EOF", n, err)
	}

	if n, err = ra.ReadAt(nil, 0); n != 0 || err != nil {
		t.Errorf("empty ReadAt = %d, %v, want 0, nil", n, err)
	}
}

func Test_ReaderAtValidation(t *testing.T) {
	content := testContent(100)
	etag := `"v1"`
	srv := newRangeServer(content, func() string { return etag })
	defer srv.Close()

	ra := newTestReader(t, srv)

	// resource changes under our feet
	etag = `"v2"`
	p := make([]byte, 10)
	if _, err := ra.ReadAt(p, 0); !errors.Is(err, ErrValidationFailed) {
		t.Errorf("err = %v, want ErrValidationFailed", err)
	}
}

func Test_ReaderAtNoRangeSupport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("whole body"))
	}))
	defer srv.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if _, err = NewReaderAt(srv.Client(), req); !errors.Is(err, ErrNoRange) {
		t.Errorf("err = %v, want ErrNoRange", err)
	}
}

func Test_ReaderAtRejectsNonGet(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "http://example.com/", nil)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if _, err = NewReaderAt(http.DefaultClient, req); err == nil {
		t.Error("want error for non-GET prototype request")
	}
	if _, err = NewReaderAt(nil, nil); err == nil {
		t.Error("want error for nil arguments")
	}
}
