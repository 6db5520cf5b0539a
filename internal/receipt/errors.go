package receipt

// ValidationError blocks a save when the user-facing pre-save checks fail.
// It is surfaced inline and nothing is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
