// Package mockapitest starts the mock upstream on a loopback listener for
// tests.
package mockapitest

import (
	"net/http/httptest"

	"github.com/arcanalyse/encounter-builder/internal/mockapi"
)

// NewServer starts a strict mock API. Callers close the server.
func NewServer() (*httptest.Server, *mockapi.API) {
	api := mockapi.New(mockapi.Options{Strict: true})
	return httptest.NewServer(api), api
}
