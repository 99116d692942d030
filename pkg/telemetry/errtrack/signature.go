package errtrack

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	pkgerrors "github.com/pkg/errors"
)

// DefaultStackDepth is the number of leading frames folded into a signature.
const DefaultStackDepth = 3

// stackTracer is implemented by errors created or wrapped by github.com/pkg/errors.
type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// Signature returns the hex-encoded fingerprint of err using its first depth
// stack frames. It never panics; a nil error has the empty signature.
func Signature(err error, depth int) string {
	if err == nil {
		return ""
	}
	sig, _, _ := signature(err, depth)
	return sig
}

// signature also returns the type name and message it hashed.
func signature(err error, depth int) (sig, typeName, message string) {
	typeName = TypeName(err)
	message = fmt.Sprint(err)

	h := xxhash.New()
	_, _ = h.WriteString(typeName)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(message)
	for _, frame := range Frames(err, depth) {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(frame)
	}

	return fmt.Sprintf("%016x", h.Sum64()), typeName, message
}

// TypeName returns the dynamic type of the innermost error in err's wrap
// chain, so that a wrapped error is grouped by what it wraps.
func TypeName(err error) string {
	for {
		next := unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

// Frames returns up to depth formatted frames ("function file:line") from the
// deepest stack recorded in err's chain, or nil if no error in the chain
// carries one.
func Frames(err error, depth int) []string {
	if depth <= 0 {
		return nil
	}

	var st pkgerrors.StackTrace
	for e := err; e != nil; e = unwrap(e) {
		if t, ok := e.(stackTracer); ok {
			st = stackOf(t)
		}
	}
	if len(st) == 0 {
		return nil
	}

	if len(st) > depth {
		st = st[:depth]
	}
	frames := make([]string, len(st))
	for i, f := range st {
		frames[i] = strings.Replace(fmt.Sprintf("%+v", f), "\n\t", " ", 1)
	}
	return frames
}

// unwrap is errors.Unwrap for errors whose Unwrap method may panic, such as
// typed nil pointers.
func unwrap(err error) (next error) {
	defer func() {
		if recover() != nil {
			next = nil
		}
	}()
	return errors.Unwrap(err)
}

func stackOf(t stackTracer) (st pkgerrors.StackTrace) {
	defer func() {
		if recover() != nil {
			st = nil
		}
	}()
	return t.StackTrace()
}
