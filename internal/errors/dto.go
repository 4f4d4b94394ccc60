package errors

// ErrorResponse is the envelope every failed API call returns. Success
// is always false; it exists so clients can branch on one field.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the user-facing message plus, when available, the
// internal error chain and any reportable detail map. Display is safe
// to show to end users; InternalError is for operators.
type ErrorDetail struct {
	Display       string         `json:"message"`
	InternalError string         `json:"internal_error,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}
