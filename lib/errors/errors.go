package errors

// Error is a constant error type. sentinel errors of each package
// are declared as `const ErrXxx = errors.Error("...")`
type Error string

func (e Error) Error() string { return string(e) }
