package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds JSON request bodies
const MaxBodyBytes = 1 << 20

var ErrEmptyBody = errors.New("request body is empty")

// DecodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are tolerated; trailing data is not.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body must not be larger than %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}

	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
