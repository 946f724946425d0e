// Package apierror provides the response envelope used by every handler.
// Errors never carry internal details (driver messages, stack traces).
package apierror

// APIError is the body of every 4xx/5xx response.
type APIError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func New(msg string) *APIError {
	return &APIError{Success: false, Error: msg}
}

// ValidationError lists the failing DTO fields next to the message.
type ValidationError struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Success: false, Error: "Dữ liệu không hợp lệ", Fields: fields}
}

// Ack acknowledges a write that has no richer response body.
type Ack struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

func OK(id string) *Ack {
	return &Ack{Success: true, ID: id}
}
