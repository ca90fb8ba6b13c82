package script

import (
	"errors"

	"github.com/dop251/goja"
)

var (
	ErrNotFunction  = errors.New("body is not a function")
	ErrEngineClosed = errors.New("engine closed")
	ErrNotNumber    = errors.New("seconds must be a number")
)

// ThrownError is a value thrown (or a promise rejection) inside a script.
// Value is the original JS value and must only be used on the scheduler
// loop; the message is captured when the error is created.
type ThrownError struct {
	Value goja.Value
	msg   string
}

func (e *ThrownError) Error() string {
	return e.msg
}

// newThrownError converts an error returned by goja into a ThrownError when
// it carries a JS value. Other errors (interrupts, Go errors) pass through.
func newThrownError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return thrownValue(ex.Value())
	}
	return err
}

func thrownValue(v goja.Value) *ThrownError {
	msg := "undefined"
	if v != nil {
		msg = v.String()
	}
	return &ThrownError{Value: v, msg: msg}
}
