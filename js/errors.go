package js

import "github.com/pkg/errors"

// ErrContextTerminated is returned by every call into a runtime whose heap
// was exhausted. The runtime cannot be resumed.
var ErrContextTerminated = errors.New("js: script context terminated")

// ErrRuntimeClosed is returned after Close.
var ErrRuntimeClosed = errors.New("js: runtime closed")
