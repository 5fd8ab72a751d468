package response

// ErrorBody is the error payload shape for every non-2xx response:
// {"message": "..."}, with the taxonomy carried by the HTTP status code.
// Success responses return the bare record or array, no envelope, since
// clients index into them directly.
type ErrorBody struct {
	Message string `json:"message"`
}

// Error wraps a message in the standard error body
func Error(message string) ErrorBody {
	return ErrorBody{Message: message}
}
