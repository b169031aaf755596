package models

// Envelope wraps every backend response body
type Envelope[T any] struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

// OK builds a success envelope
func OK[T any](message string, data T) Envelope[T] {
	return Envelope[T]{Message: message, Data: data}
}

// Fail builds an error envelope with no data
func Fail(message string) Envelope[any] {
	return Envelope[any]{Error: true, Message: message}
}
