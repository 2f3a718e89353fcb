package contentrange

import "net/http"

// Requester is the subset of http.Client the range reader and downloader
// need, so callers can plug in instrumented or signing clients.
type Requester interface {
	Do(r *http.Request) (*http.Response, error)
}
