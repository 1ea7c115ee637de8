package app

import "errors"

var (
	// ErrScanUnavailable means the currently-used ports of the target could
	// not be collected. Without that data a suggestion may point at a port
	// that is already bound, so this is fatal unless --force is given.
	ErrScanUnavailable = errors.New("could not collect currently used ports")

	ErrInvalidTierPreference = errors.New("invalid tier preference")
)

// CodeError carries the process exit code alongside the underlying error.
type CodeError struct {
	Code int
	Err  error
}

func (e CodeError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e CodeError) Unwrap() error {
	return e.Err
}

func NewCodeError(code int, err error) error {
	return CodeError{Code: code, Err: err}
}
