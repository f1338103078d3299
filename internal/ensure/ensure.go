// Package ensure holds the precondition checks used by constructors and
// registration calls across agata.
package ensure

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrPrecondition is wrapped by every error returned from this package.
var ErrPrecondition = errors.New("precondition violated")

// NotNil fails if v is nil, including typed nils stored in an interface.
func NotNil(v any, arg string) error {
	if IsNil(v) {
		return fmt.Errorf("%w: %s must not be nil", ErrPrecondition,
			arg)
	}

	return nil
}

// NotBlank fails if s is empty or only whitespace.
func NotBlank(s, arg string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrPrecondition,
			arg)
	}

	return nil
}

// That fails with msg if cond does not hold.
func That(cond bool, arg, msg string) error {
	if !cond {
		return fmt.Errorf("%w: %s: %s", ErrPrecondition, arg, msg)
	}

	return nil
}

// IsNil reports whether v is nil or a nil pointer, map, slice, channel,
// func or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.UnsafePointer:

		return rv.IsNil()

	default:
		return false
	}
}
