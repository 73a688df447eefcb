package engine

import (
	"errors"
	"fmt"
)

// Status is the result code of a protected operation.
type Status int

const (
	// ExecSuccess means the protected operation completed normally.
	ExecSuccess Status = 0
	// ExecError means a fault was caught; the error value is on the stack.
	ExecError Status = 1
)

// FaultKind classifies faults raised by the engine.
type FaultKind uint8

const (
	FaultGeneric FaultKind = iota
	FaultType
	FaultRange
	// FaultInvalidArgument marks a broken argument/result-count contract.
	// These are raised synchronously even from protected entry points,
	// because the stack bookkeeping they would need is itself unreliable.
	FaultInvalidArgument
)

func (k FaultKind) String() string {
	switch k {
	case FaultType:
		return "TypeError"
	case FaultRange:
		return "RangeError"
	case FaultInvalidArgument:
		return "InvalidArgumentError"
	default:
		return "Error"
	}
}

// Fault is an unwinding engine fault. It propagates as a panic through
// activation records until a protected boundary catches it, or reaches
// the embedder if no boundary is active. Value is the thrown value that
// a protected boundary leaves on the stack.
type Fault struct {
	Kind  FaultKind
	Value Value
}

func (f *Fault) Error() string {
	return f.Value.Inspect()
}

// Internal corruption sentinels. These are programming errors in the
// engine or the embedder, not script-level faults, and are deliberately
// not convertible to a caught error value.
var errStackUnderflow = errors.New("value stack underflow")

// Raise raises a fault of the given kind with a formatted message. The
// payload is a plain string value built before any stack mutation, so
// raising never itself needs value stack space.
func (c *Context) Raise(kind FaultKind, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	panic(&Fault{Kind: kind, Value: StrVal(kind.String() + ": " + msg)})
}

// Throw raises a generic fault carrying an arbitrary thrown value.
func (c *Context) Throw(v Value) {
	panic(&Fault{Kind: FaultGeneric, Value: v})
}

// raiseInvalidArgs reports a broken nargs/nrets/index contract.
func (c *Context) raiseInvalidArgs() {
	c.Raise(FaultInvalidArgument, "invalid call args")
}

// raiseFromError converts a Go error returned by a native or safe-call
// helper into an unwinding fault. A *Fault error re-raises unchanged.
func (c *Context) raiseFromError(err error) {
	var f *Fault
	if errors.As(err, &f) {
		panic(f)
	}
	panic(&Fault{Kind: FaultGeneric, Value: StrVal("Error: " + err.Error())})
}

// fatal reports internal state corruption. Includes the context identity
// so embedders running several contexts can tell them apart.
func (c *Context) fatal(err error) {
	panic(fmt.Sprintf("corvid: context %s: %v", c.id, err))
}
