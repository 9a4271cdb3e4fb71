package optimize

// Error is returned when optimizer failed on one of the SVG images of a
// declaration. It fails the whole pass.
type Error struct {
	Property string // property of the declaration being rewritten
	Err      error
}

func (e *Error) Error() string {
	return Name + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
