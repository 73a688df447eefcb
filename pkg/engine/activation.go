package engine

// Call flags select per-invocation behavior. They are not persisted
// beyond the call they are passed to.
type callFlags uint32

const (
	// flagConstruct marks a constructor-mode invocation.
	flagConstruct callFlags = 1 << iota
	// flagIgnoreRecLimit bypasses the recursion limit for privileged
	// internal calls. Never exposed through the public entry points.
	flagIgnoreRecLimit
)

// Activation flags.
const (
	actFlagConstruct uint32 = 1 << iota
	actFlagStrict
)

// Activation is the metadata of one active call frame: the executing
// function value, the frame flags, and the stack window bookkeeping
// needed to restore the caller on return or unwind. Activations are
// owned by their context's call stack and never shared across frames.
type Activation struct {
	fn         Value
	flags      uint32
	base       int // absolute slot of the function value
	prevBottom int // caller's bottom, restored on exit
}

// Func returns the function value executing in this activation.
func (a *Activation) Func() Value { return a.fn }

// currentActivation returns the innermost activation, or nil when no
// call is in progress. The lookup is an index into the context-owned
// call stack, not a process-wide global.
func (c *Context) currentActivation() *Activation {
	if len(c.callstack) == 0 {
		return nil
	}
	return &c.callstack[len(c.callstack)-1]
}

// Depth returns the number of active call frames.
func (c *Context) Depth() int {
	return len(c.callstack)
}
