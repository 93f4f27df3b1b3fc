package domain

// Envelope is the uniform response shape of the back-office REST API.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Unwrap returns Data, or a *ServiceError when Success is false.
func (e Envelope[T]) Unwrap(op string) (T, error) {
	if !e.Success {
		var zero T
		msg := e.Error
		if msg == "" {
			msg = "request failed"
		}
		return zero, &ServiceError{Op: op, Message: msg}
	}
	return e.Data, nil
}

// OK wraps data in a successful envelope.
func OK[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Data: data}
}

// Fail builds a failed envelope carrying msg.
func Fail[T any](msg string) Envelope[T] {
	return Envelope[T]{Success: false, Error: msg}
}
