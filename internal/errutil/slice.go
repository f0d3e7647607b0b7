package errutil

import "strings"

// Slice is a slice of errors.
type Slice []error

// Add appends another error to this slice of errors. Nil errors are ignored.
func (s *Slice) Add(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		*s = append(*s, err)
	}
}

// Err returns nil if the slice is empty, the only error if it contains just
// one, or else an error that combines the messages of all errors.
func (s Slice) Err() error {
	switch len(s) {
	case 0:
		return nil
	case 1:
		return s[0]
	default:
		return s
	}
}

// Error implements the error interface.
func (s Slice) Error() string {
	msgs := make([]string, len(s))
	for i, err := range s {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns the first error, so errors.Is and errors.As can match it.
func (s Slice) Unwrap() error {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}
