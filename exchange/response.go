package exchange

import (
	"encoding/json"
	"fmt"
)

// Response is the generic top-level envelope the Ftx-style REST API wraps
// every response in: {"success": true, "result": ...} on success, or
// {"success": false, "error": "..."} on failure.
type Response[T any] struct {
	Success bool
	Result  *T     // present when Success
	Error   string // present when !Success
}

type rawResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

// UnmarshalJSON lets Response[T] handle both the success and failure shapes
// using the generic type parameter T for the success payload.
func (r *Response[T]) UnmarshalJSON(data []byte) error {
	var raw rawResponse
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal response envelope: %w", err)
	}

	r.Success = raw.Success
	r.Result = nil
	r.Error = raw.Error

	if !raw.Success {
		return nil
	}

	var payload T
	if len(raw.Result) > 0 {
		if err := json.Unmarshal(raw.Result, &payload); err != nil {
			return fmt.Errorf("unmarshal result body: %w", err)
		}
	}
	r.Result = &payload
	return nil
}

// IsOK reports whether the envelope carries a successful result.
func (r Response[T]) IsOK() bool {
	return r.Success && r.Result != nil
}
