package muxwire

// Failure is the settlement error of a handshake or codec operation.
// Retryable tells the caller whether re-establishing the connection may
// help; protocol violations and codec failures are final.
type Failure struct {
	Code      string
	Text      string
	Retryable bool
	Err       error
}

func NewFailure(code string, text string, retryable bool, err error) *Failure {
	var c Failure
	c.Code = code
	c.Text = text
	c.Retryable = retryable
	c.Err = err
	return &c
}

func (c *Failure) Error() string {
	result := c.Code
	if len(c.Text) > 0 {
		result += " " + c.Text
	}
	if c.Err != nil {
		result += " (" + c.Err.Error() + ")"
	}
	return result
}

func (c *Failure) Unwrap() error {
	return c.Err
}

// IsRetryable reports whether err carries the retryable mark.
// Errors that are not Failures are treated as non-retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if f, ok := err.(*Failure); ok {
		return f.Retryable
	}
	return false
}
