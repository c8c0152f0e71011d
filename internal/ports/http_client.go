package ports

import "net/http"

// HTTPClient abstracts HTTP operations so the post store and the tus
// transport can be tested against httptest servers or stubs.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
