package engine

// Call staging and the public call entry points.
//
// Protected variants must avoid ever raising an unwinding fault; faults
// related to stack staging and property lookup are caught by the same
// boundary as the call itself. The one exception is insane arguments
// (nargs/nrets out of bounds): those raise immediately, because the
// stack input/output guarantees cannot be upheld once the declared
// counts are wrong.

// Helper argument carriers for the protected wrappers.
type pcallArgs struct {
	nargs int
	flags callFlags
}

type pcallMethodArgs struct {
	nargs int
	flags callFlags
}

type pcallPropArgs struct {
	objIdx int
	nargs  int
	flags  callFlags
}

// callIdxFunc computes and validates the callee position for a given
// nargs and count of fixed leading slots (1 when only the function is
// staged, 2 when function+receiver are). The two conditions idxFunc < 0
// and nargs < 0 collapse into one sign check by OR-ing the sign bits.
func (c *Context) callIdxFunc(nargs, other int) int {
	idxFunc := c.GetTop() - nargs - other
	if (idxFunc | nargs) < 0 {
		c.raiseInvalidArgs()
	}
	return idxFunc
}

// callIdxFuncUnchecked computes the callee position assuming the index
// is valid. That holds inside protected operations: nargs < 0 was
// checked explicitly and SafeCall validated the argument count.
func (c *Context) callIdxFuncUnchecked(nargs, other int) int {
	idxFunc := c.GetTop() - nargs - other
	if idxFunc < 0 {
		c.fatal(errStackUnderflow)
	}
	return idxFunc
}

// prepPropCall turns [... key arg1..argN] above a normalized object
// index into [... func this arg1..argN]: one property read and three
// stack-shape edits.
func (c *Context) prepPropCall(objIdx, nargs int) {
	c.RequireStack(2)

	// [... key arg1..argN]

	c.Dup(-nargs - 1) // -nargs alone would be wrong for nargs == 0
	c.getPropStack(objIdx)

	// [... key arg1..argN func]

	c.Replace(-nargs - 2)

	// [... func arg1..argN]

	c.Dup(objIdx)
	c.Insert(-nargs - 1)

	// [... func this arg1..argN]
}

// Call invokes the callable staged as [func, arg1..argN] with an
// undefined receiver. Faults propagate; use PCall for isolation.
func (c *Context) Call(nargs int) {
	idxFunc := c.callIdxFunc(nargs, 1)
	c.RequireStack(1)
	c.insertUndefinedAbs(c.bottom + idxFunc + 1)
	c.invoke(idxFunc, 0)
}

// CallMethod invokes [func, this, arg1..argN] staged by the caller.
func (c *Context) CallMethod(nargs int) {
	idxFunc := c.callIdxFunc(nargs, 2)
	c.invoke(idxFunc, 0)
}

// CallProp invokes obj[key] as a method of obj: the stack holds
// [key, arg1..argN] above the object at objIdx. The property read may
// fault and propagates like the call itself.
func (c *Context) CallProp(objIdx, nargs int) {
	objIdx = c.RequireNormalizeIndex(objIdx)
	if nargs < 0 {
		c.raiseInvalidArgs()
	}
	c.prepPropCall(objIdx, nargs)
	c.CallMethod(nargs)
}

func pcallRaw(c *Context, udata interface{}) (int, error) {
	args := udata.(*pcallArgs)
	idxFunc := c.callIdxFuncUnchecked(args.nargs, 1)
	c.RequireStack(1)
	c.insertUndefinedAbs(c.bottom + idxFunc + 1)
	c.invoke(idxFunc, args.flags)
	return 1, nil
}

// PCall is the protected Call: the staged [func, arg1..argN] are
// consumed and one value is left at the pre-call top — the call's
// result on ExecSuccess, the caught error on ExecError.
func (c *Context) PCall(nargs int) Status {
	if nargs < 0 {
		c.raiseInvalidArgs()
	}
	args := pcallArgs{nargs: nargs}
	return c.SafeCall(pcallRaw, &args, nargs+1, 1)
}

func pcallMethodRaw(c *Context, udata interface{}) (int, error) {
	args := udata.(*pcallMethodArgs)
	idxFunc := c.callIdxFuncUnchecked(args.nargs, 2)
	c.invoke(idxFunc, args.flags)
	return 1, nil
}

func (c *Context) pcallMethodFlags(nargs int, flags callFlags) Status {
	if nargs < 0 {
		c.raiseInvalidArgs()
	}
	args := pcallMethodArgs{nargs: nargs, flags: flags}
	return c.SafeCall(pcallMethodRaw, &args, nargs+2, 1)
}

// PCallMethod is the protected CallMethod.
func (c *Context) PCallMethod(nargs int) Status {
	return c.pcallMethodFlags(nargs, 0)
}

func pcallPropRaw(c *Context, udata interface{}) (int, error) {
	args := udata.(*pcallPropArgs)
	objIdx := c.RequireNormalizeIndex(args.objIdx)
	c.prepPropCall(objIdx, args.nargs)
	// prepPropCall leaves the layout at the top, so invoke by depth
	// instead of recomputing an index.
	c.invokeByDepth(args.nargs, args.flags)
	return 1, nil
}

// PCallProp is the protected CallProp. The object index is normalized
// inside the boundary, so a bad index is caught, not propagated.
func (c *Context) PCallProp(objIdx, nargs int) Status {
	if nargs < 0 {
		c.raiseInvalidArgs()
	}
	args := pcallPropArgs{objIdx: objIdx, nargs: nargs}
	return c.SafeCall(pcallPropRaw, &args, nargs+1, 1)
}

// New invokes [ctor, arg1..argN] as a constructor: a default instance
// is created, inserted as the receiver, and the call runs with the
// constructor flag set. The callee may return an object that supersedes
// the instance; otherwise the instance is the result.
func (c *Context) New(nargs int) {
	idxFunc := c.callIdxFunc(nargs, 1)
	c.RequireStack(1)

	// Default instance; its prototype is linked from the callee during
	// call setup, once the callee is resolved.
	c.PushObject(NewPlainObject())
	c.Insert(idxFunc + 1)

	c.invoke(idxFunc, flagConstruct)
}

func pnewRaw(c *Context, udata interface{}) (int, error) {
	nargs := *(udata.(*int))
	c.New(nargs)
	return 1, nil
}

// PNew is the protected New. The whole of New runs inside the boundary
// because pushing the default instance can itself fault.
func (c *Context) PNew(nargs int) Status {
	if nargs < 0 {
		c.raiseInvalidArgs()
	}
	return c.SafeCall(pnewRaw, &nargs, nargs+1, 1)
}

// IsConstructorCall reports whether the current activation runs in
// constructor mode. No active frame means false.
func (c *Context) IsConstructorCall() bool {
	if act := c.currentActivation(); act != nil {
		return act.flags&actFlagConstruct != 0
	}
	return false
}

// RequireConstructorCall faults unless the current call is constructing.
func (c *Context) RequireConstructorCall() {
	if !c.IsConstructorCall() {
		c.Raise(FaultType, "constructor requires 'new'")
	}
}

// IsStrictCall reports the strict flag of the current activation. With
// no active frame it is true by convention: native re-entry is strict
// by default. The default keeps internal self-queries well-defined and
// is not the strictness of any script frame.
func (c *Context) IsStrictCall() bool {
	if act := c.currentActivation(); act != nil {
		return act.flags&actFlagStrict != 0
	}
	return true
}

// GetCurrentMagic returns the magic of the function executing in the
// current activation: the packed flags word of a lightfunc, the field
// of a heap native function, and 0 for anything else (script functions
// have no magic; no active frame reads 0 too).
func (c *Context) GetCurrentMagic() int {
	act := c.currentActivation()
	if act == nil {
		return 0
	}
	switch act.fn.Kind {
	case KindLightFunc:
		return int(act.fn.LightMagic())
	case KindObject:
		if nf, ok := act.fn.Obj.(*NativeFunc); ok {
			return int(nf.Magic)
		}
	}
	return 0
}

// GetMagic returns the magic of the value at idx. Values that carry no
// magic — anything but a lightfunc or a heap native function — fault.
func (c *Context) GetMagic(idx int) int {
	v := c.RequireValue(idx)
	switch v.Kind {
	case KindLightFunc:
		return int(v.LightMagic())
	case KindObject:
		if nf, ok := v.Obj.(*NativeFunc); ok {
			return int(nf.Magic)
		}
	}
	c.Raise(FaultType, "%s has no magic", v.Inspect())
	return 0 // unreachable
}

// SetMagic stores magic on the heap native function at idx, truncated
// to the signed 16-bit range. Lightfuncs are immutable after creation,
// so they fault here like any other value.
func (c *Context) SetMagic(idx int, magic int) {
	v := c.RequireValue(idx)
	if v.Kind == KindObject {
		if nf, ok := v.Obj.(*NativeFunc); ok {
			nf.Magic = int16(magic)
			return
		}
	}
	c.Raise(FaultType, "set magic requires a native function, got %s", v.Inspect())
}

// resolveNonbound replaces a bound function at the stack top with its
// stored target, leaving any other value as is. The binder never
// creates a bound function whose target is itself bound, so this is a
// single unwrap, not a loop. Lightfuncs cannot be bound; callability is
// not validated here.
func (c *Context) resolveNonbound() {
	if c.top <= c.bottom {
		c.fatal(errStackUnderflow)
	}
	v := c.stack[c.top-1]
	if v.Kind != KindObject {
		return
	}
	if bf, ok := v.Obj.(*BoundFunc); ok {
		c.stack[c.top-1] = bf.Target
	}
}
