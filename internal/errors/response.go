package errors

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"
)

const jsonDetailPrefix = "__json__:"

// NewErrorResponse flattens an error chain into the API error shape.
// Hints become the display message; reportable details attached with
// WithReportableDetails are recovered from the safe-detail payloads.
func NewErrorResponse(err error) ErrorResponse {
	resp := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display:       "An unexpected error occurred",
			InternalError: err.Error(),
		},
	}

	if hints := errors.GetAllHints(err); len(hints) > 0 {
		resp.Error.Display = hints[0]
	}

	details := map[string]any{}
	for _, payload := range errors.GetAllSafeDetails(err) {
		for _, d := range payload.SafeDetails {
			raw, ok := strings.CutPrefix(d, jsonDetailPrefix)
			if !ok {
				continue
			}
			var m map[string]any
			if json.Unmarshal([]byte(raw), &m) == nil {
				for k, v := range m {
					details[k] = v
				}
			}
		}
	}
	if len(details) > 0 {
		resp.Error.Details = details
	}

	return resp
}
