package apps

// ArgumentError reports an invalid command-line argument or configuration value,
// such as an unknown roster driver.
type ArgumentError struct {
	msg string
}

func NewArgumentError(msg string) *ArgumentError {
	return &ArgumentError{msg: msg}
}

func (err *ArgumentError) Error() string {
	return err.msg
}
