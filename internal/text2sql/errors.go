package text2sql

import "errors"

type Kind string

const (
	KindDatabase  Kind = "database"
	KindModel     Kind = "model"
	KindExecution Kind = "execution"
)

// Error carries the stage that failed. Its message is the underlying
// error's message.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind) + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind, true
	}
	return "", false
}
