package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// MaxBodyBytes bounds a decoded request body.
const MaxBodyBytes = 1 << 20

// DecodeRaw decodes and validates the JSON body into v. The raw body is
// returned for the debug dump.
func DecodeRaw(r *http.Request, v any) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("request body too large")
	}
	if err := Parse(body, v); err != nil {
		return nil, err
	}
	return body, nil
}

// Parse decodes and validates a JSON document that did not arrive over
// HTTP, such as an event file handed to provisionctl.
func Parse(body []byte, v any) error {
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	return nil
}
