package gc

import "github.com/pkg/errors"

// Assertion failures. The heap panics with these (wrapped with a stack) rather
// than returning them: each one means an invariant of the embedding program
// was broken.
var (
	// ErrHeapExhausted is raised when an allocation still finds the heap full
	// after one forced collection. It is fatal for the owning script context.
	ErrHeapExhausted = errors.New("gc: heap exhausted")

	// ErrStaleRef is raised when a reference to a collected slot is followed.
	ErrStaleRef = errors.New("gc: reference to collected slot")

	// ErrAlreadyReflected is raised by a second Link on the same object.
	ErrAlreadyReflected = errors.New("gc: object already reflected")

	// ErrNotReflected is raised when a wrap function returns without linking.
	ErrNotReflected = errors.New("gc: wrap function did not link a reflector")

	// ErrAlreadyAllocated is raised when a value is placed on a heap twice.
	ErrAlreadyAllocated = errors.New("gc: value already allocated")

	// ErrNotAllocated is raised when pinning a value that has no slot yet.
	ErrNotAllocated = errors.New("gc: value not allocated")

	// ErrReleasedRoot is raised by Get on a root that was released.
	ErrReleasedRoot = errors.New("gc: use of released root")

	// ErrTypeMismatch is raised when a slot does not hold the requested type.
	ErrTypeMismatch = errors.New("gc: slot type mismatch")
)
