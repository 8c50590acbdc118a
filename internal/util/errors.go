package util

import (
	"fmt"
	"net/http"
)

// MyResponseError carries the HTTP status the portal should answer with and,
// optionally, the upstream error that caused it.
type MyResponseError struct {
	Msg    string
	Status int
	Err    error
}

func (e MyResponseError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e MyResponseError) Unwrap() error { return e.Err }

func NewResponseError(status int, format string, args ...interface{}) error {
	return MyResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}

// WrapResponseError keeps err reachable through errors.Is/As.
func WrapResponseError(status int, err error, msg string) error {
	if status == 0 {
		status = http.StatusBadGateway
	}
	return MyResponseError{Msg: msg, Status: status, Err: err}
}
