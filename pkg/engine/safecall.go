package engine

// SafeCallFn is an operation run under a protected boundary. It runs in
// the caller's frame with its declared inputs on the stack, and returns
// the number of results it left on top. A non-nil error is raised as a
// runtime fault and caught by the boundary.
type SafeCallFn func(c *Context, udata interface{}) (int, error)

// SafeCall runs fn under a fault-isolating boundary. nargs values on
// the stack top are the operation's input; on success exactly nrets
// values replace them (the operation's results, truncated or padded
// with undefined) and the status is ExecSuccess. Any fault raised
// during fn — nested property lookups, instance creation, callee
// execution — is caught: the stack is unwound to the pre-call depth
// minus the consumed inputs, the caught error value is pushed as the
// first of nrets results (nrets == 0 drops it), and the status is
// ExecError.
//
// The declared counts themselves are validated first, without mutating
// the stack. A bad nargs/nrets raises an invalid-argument fault
// directly instead of reporting a status: with the contract broken, the
// stack guarantees above cannot be upheld, and building a caught error
// under a broken stack state is not safe either.
func (c *Context) SafeCall(fn SafeCallFn, udata interface{}, nargs, nrets int) Status {
	// nargs condition: fail if top - bottom < nargs.
	// nrets condition: fail if end - (top - nargs) < nrets.
	if (nargs|nrets) < 0 ||
		c.top < c.bottom+nargs ||
		c.end+nargs < c.top+nrets {
		c.raiseInvalidArgs()
	}
	return c.handleSafeCall(fn, udata, nargs, nrets)
}

// handleSafeCall is the fault-isolating primitive. Counts are already
// validated.
func (c *Context) handleSafeCall(fn SafeCallFn, udata interface{}, nargs, nrets int) (st Status) {
	savedBottom := c.bottom
	savedDepth := len(c.callstack)
	base := c.top - nargs // absolute slot where results will land

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				// Internal corruption is not convertible to a caught
				// error; let it propagate.
				panic(r)
			}
			c.callstack = c.callstack[:savedDepth]
			c.bottom = savedBottom
			c.setTopAbs(base)
			if nrets > 0 {
				c.pushValue(f.Value)
				for i := 1; i < nrets; i++ {
					c.pushValue(Undefined())
				}
			}
			st = ExecError
		}
	}()

	rc, err := fn(c, udata)
	if err != nil {
		c.raiseFromError(err)
	}
	if rc < 0 || c.top-rc < base {
		c.Raise(FaultRange, "invalid safe call result count %d", rc)
	}

	// Move the rc results down over the consumed inputs, then adjust to
	// exactly nrets: extras are chopped, missing results read undefined.
	copy(c.stack[base:base+rc], c.stack[c.top-rc:c.top])
	c.setTopAbs(base + rc)
	c.setTopAbs(base + nrets)
	return ExecSuccess
}
