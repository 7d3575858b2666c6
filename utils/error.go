package utils

// StatusError is an error carrying the HTTP status it should be reported
// with. Handlers unwrap it at the boundary instead of guessing a status from
// the error text.
type StatusError struct {
	error
	status int
}

// Status returns the HTTP status code of the error.
func (se StatusError) Status() int {
	return se.status
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (se StatusError) Unwrap() error {
	return se.error
}

// NewStatusError wraps err with an HTTP status code.
func NewStatusError(err error, status int) error {
	return StatusError{error: err, status: status}
}
