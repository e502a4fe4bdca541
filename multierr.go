package phonograph

import "strings"

// execErrors wraps errors that might occure when multiple nodes are
// failing to prepare.
type execErrors []error

func (e execErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Unwrap allows errors.Is and errors.As to match wrapped errors.
func (e execErrors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e execErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
