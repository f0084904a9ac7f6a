package types

const (
	ContextUserKey      = "user"
	ContextRequestIDKey = "request_id"

	RequestIDHeader = "X-Request-ID"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
