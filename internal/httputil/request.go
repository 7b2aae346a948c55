package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// MaxJSONBody bounds JSON request bodies. Image uploads go through
// multipart endpoints with their own limits; JSON bodies here are
// transcripts and questions.
const MaxJSONBody = 4 << 20

// ParseJSON decodes JSON from the request body into the given
// destination, with a body size limit.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
