// Package handler contains HTTP request handlers.
//
// Handlers parse the request, call the service, and write the response.
// They hold no business logic and never touch the database.
package handler

import (
	"io"
	"net/http"
)

// Greeting is the fixed body returned by the root health-check.
const Greeting = "Hello World, Go!"

// HandleRoot is the health-check.
//
// HTTP: GET /
//
// Always 200 with a plain-text greeting. It does not touch storage, so it
// reports that the process is serving, not that the database is reachable.
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, Greeting)
}
