package dberror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserfProducesUserKind(t *testing.T) {
	err := Userf("catalog", "namespace too long: %s", "x")
	assert.Equal(t, User, err.Kind)
	assert.Contains(t, err.Error(), "catalog")
	assert.Contains(t, err.Error(), "namespace too long: x")
}

func TestWrapFillsOperationAndComponentOnPlainError(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(cause, "Alloc", "alloc")
	require.NotNil(t, wrapped)
	assert.Equal(t, Resource, wrapped.Kind)
	assert.Equal(t, "Alloc", wrapped.Operation)
	assert.Equal(t, "alloc", wrapped.Component)
	assert.Same(t, cause, errors.Unwrap(wrapped))
}

func TestWrapDoesNotClobberExistingFields(t *testing.T) {
	inner := Userf("catalog", "duplicate namespace")
	inner.Operation = "Add"
	wrapped := Wrap(inner, "Ignored", "ignored")
	assert.Equal(t, "Add", wrapped.Operation)
	assert.Equal(t, User, wrapped.Kind)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "op", "component"))
}

func TestAssertPanicsOnFalseCondition(t *testing.T) {
	assert.Panics(t, func() {
		Assert(false, "catalog", "invariant violated")
	})
}

func TestAssertDoesNotPanicOnTrueCondition(t *testing.T) {
	assert.NotPanics(t, func() {
		Assert(true, "catalog", "unreachable")
	})
}

func TestInterruptedfUsesCodeInterrupted(t *testing.T) {
	err := Interruptedf("queryplan.Runner.Run")
	assert.Equal(t, Interrupted, err.Kind)
	assert.Equal(t, CodeInterrupted, err.Code)
}

func TestFatalfInvokesExitHook(t *testing.T) {
	var gotCode int
	orig := ExitHook
	ExitHook = func(code int) { gotCode = code }
	defer func() { ExitHook = orig }()

	Fatalf("catalog", "buffer overrun")
	assert.Equal(t, 14, gotCode)
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{
		User:        "user",
		Resource:    "resource",
		Invariant:   "invariant",
		Fatal:       "fatal",
		Interrupted: "interrupted",
	}
	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}
