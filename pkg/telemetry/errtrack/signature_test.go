package errtrack

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	pkgerrors "github.com/pkg/errors"
)

type codedError struct{ code string }

func (e *codedError) Error() string { return "coded: " + e.code }

type panicUnwrapError struct{}

func (*panicUnwrapError) Error() string { return "broken" }
func (e *panicUnwrapError) Unwrap() error {
	var p *codedError
	_ = p.code // nil dereference
	return nil
}

// newStacked creates errors from a single call site so their leading frames match.
func newStacked(msg string) error {
	return pkgerrors.New(msg)
}

func TestSignature_StableForIdenticalErrors(t *testing.T) {
	var errs []error
	for i := 0; i < 2; i++ {
		errs = append(errs, newStacked("database unavailable"))
	}

	a := Signature(errs[0], 3)
	b := Signature(errs[1], 3)
	if a != b {
		t.Errorf("signatures differ for identical errors: %s vs %s", a, b)
	}
	if len(a) != 16 {
		t.Errorf("signature %q is not 16 hex characters", a)
	}
}

func TestSignature_MessageChangesSignature(t *testing.T) {
	var errs []error
	for _, msg := range []string{"database unavailable", "database timeout"} {
		errs = append(errs, newStacked(msg))
	}

	if Signature(errs[0], 3) == Signature(errs[1], 3) {
		t.Error("different messages produced the same signature")
	}
}

func TestSignature_TypeChangesSignature(t *testing.T) {
	plain := errors.New("coded: X")
	typed := &codedError{code: "X"}

	if Signature(plain, 3) == Signature(typed, 3) {
		t.Error("different types with the same message produced the same signature")
	}
}

func TestSignature_WithoutStack(t *testing.T) {
	a := Signature(errors.New("no stack"), 3)
	b := Signature(errors.New("no stack"), 3)
	if a == "" || a != b {
		t.Errorf("stackless errors should fall back to type+message: %q vs %q", a, b)
	}
	if Frames(errors.New("no stack"), 3) != nil {
		t.Error("Frames should be nil without a recorded stack")
	}
}

func TestSignature_DifferentCallSites(t *testing.T) {
	a := pkgerrors.New("same message")
	b := pkgerrors.New("same message")

	if Signature(a, 3) == Signature(b, 3) {
		t.Error("errors created on different lines should differ when frames are included")
	}
	if Signature(a, 0) != Signature(b, 0) {
		t.Error("with depth 0 only type and message should matter")
	}
}

func TestSignature_NeverPanics(t *testing.T) {
	var nilCoded *codedError
	inputs := []error{
		nil,
		&panicUnwrapError{},
		nilCoded,
		fmt.Errorf("wrapped: %w", nilCoded),
	}

	for i, err := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("input %d panicked: %v", i, r)
				}
			}()
			_ = Signature(err, 3)
		}()
	}
}

func TestTypeName_UsesInnermostError(t *testing.T) {
	err := pkgerrors.Wrap(&codedError{code: "A"}, "login")
	if got := TypeName(err); got != "*errtrack.codedError" {
		t.Errorf("TypeName = %q", got)
	}
}

func TestFrames(t *testing.T) {
	frames := Frames(newStacked("x"), 3)
	if len(frames) == 0 || len(frames) > 3 {
		t.Fatalf("got %d frames, want 1..3", len(frames))
	}
	if !strings.Contains(frames[0], "newStacked") {
		t.Errorf("first frame %q should name the creating function", frames[0])
	}
	if strings.Contains(frames[0], "\n") {
		t.Errorf("frame %q should be a single line", frames[0])
	}
}
