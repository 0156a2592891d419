package api

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AcceptedResponse acknowledges a request whose work continues in the
// background.
type AcceptedResponse struct {
	Message string `json:"message"`
}
