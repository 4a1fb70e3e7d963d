package http

import "net/http"

// Response helpers. Clients of this service never see internal detail:
// rejected and unmatched clicks get an empty body, store failures get
// a bare 500.

// respondEmpty terminates the request with the given status and no body.
func respondEmpty(w http.ResponseWriter, statusCode int) {
	w.WriteHeader(statusCode)
}

// respondText writes a small fixed text body.
func respondText(w http.ResponseWriter, statusCode int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(body))
}
