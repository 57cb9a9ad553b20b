package failure

import (
	"errors"
	"fmt"
	"runtime"

	pkgerrors "github.com/pkg/errors"
)

// Named is an error that you can read a name from
type Named interface {
	Name() string
}

// WithStackTrace is an error that you can read a stack trace from
type WithStackTrace interface {
	Stack() string
}

type NamedWithStackTrace interface {
	Named
	WithStackTrace
}

type namedWithStackTrace struct {
	name  string
	stack pkgerrors.StackTrace
}

func (n namedWithStackTrace) Name() string {
	return n.name
}

func (n namedWithStackTrace) Stack() string {
	return fmt.Sprintf("%+v", n.stack)
}

func NamedWithCurrentStackTrace(name string) NamedWithStackTrace {
	const depth = 32

	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	f := make(pkgerrors.StackTrace, n)
	for i := 0; i < n; i++ {
		f[i] = pkgerrors.Frame(pcs[i])
	}

	return namedWithStackTrace{name, f}
}

// Failure is a named error carrying the stack where it was created. Two
// failures match with [errors.Is] when their names are equal, so package level
// sentinels can be compared against failures created deeper in the stack.
type Failure struct {
	NamedWithStackTrace
	message string
	cause   error
}

// New creates a failure with the given name and message.
func New(name string, message string) *Failure {
	return &Failure{NamedWithCurrentStackTrace(name), message, nil}
}

// Wrap creates a failure with the given name that wraps cause.
func Wrap(name string, cause error, message string) *Failure {
	return &Failure{NamedWithCurrentStackTrace(name), message, cause}
}

func (f *Failure) Error() string {
	if f.cause == nil {
		return f.message
	}
	return fmt.Sprintf("%s: %s", f.message, f.cause.Error())
}

func (f *Failure) Unwrap() error {
	return f.cause
}

func (f *Failure) Is(target error) bool {
	var named Named
	if errors.As(target, &named) {
		return named.Name() == f.Name()
	}
	return false
}

// IsNamed reports whether err or any error in its chain has the given name.
func IsNamed(err error, name string) bool {
	for err != nil {
		if named, ok := err.(Named); ok && named.Name() == name {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}

// Sentinel returns a failure suitable for use as a package level sentinel
// matched by name with [errors.Is].
func Sentinel(name string) error {
	return &Failure{namedWithStackTrace{name: name}, name, nil}
}
