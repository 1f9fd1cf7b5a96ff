package middleware

import (
	"bytes"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies read by ValidateBody.
const maxBodyBytes = 64 << 10

// BodyValidator checks a raw request body against a named schema.
type BodyValidator interface {
	Validate(schema string, raw []byte) error
}

// ValidateBody rejects requests whose JSON body does not match schema.
// It reads the body, then replaces r.Body so downstream handlers can
// decode it again.
func ValidateBody(v BodyValidator, schema string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bodyBytes, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			if err := v.Validate(schema, bodyBytes); err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			next.ServeHTTP(w, r)
		})
	}
}
