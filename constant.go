package contentrange

import "fmt"

const (
	HeaderRange         = "Range"
	HeaderContentLength = "Content-Length"
	HeaderContentRange  = "Content-Range"
	HeaderContentType   = "Content-Type"
	HeaderLastModified  = "Last-Modified"
	HeaderETag          = "ETag"

	// HeaderRangeFormat builds the request-side Range header for one chunk.
	HeaderRangeFormat = "bytes=%d-%d"
)

func rangeHeader(first, last int64) string {
	return fmt.Sprintf(HeaderRangeFormat, first, last)
}
