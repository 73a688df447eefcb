package engine

import "github.com/corvid-lang/corvid/internal/config"

// invoke runs an unprotected call staged at the frame-relative idxFunc:
// the layout is [func, this, arg1..argN] with top == idxFunc + 2 + nargs.
// On return a single result sits at idxFunc and everything above is
// gone. Faults unwind through the activation as a panic; the activation
// is popped and the caller's window restored during the unwind.
func (c *Context) invoke(idxFunc int, flags callFlags) {
	abs := c.bottom + idxFunc
	if abs < c.bottom || abs+2 > c.top {
		c.fatal(errStackUnderflow)
	}

	// Slack for receiver folding, argument adjustment and callee setup.
	c.RequireStack(config.ValstackInternalExtra)

	c.resolveBoundCall(abs, flags)

	construct := flags&flagConstruct != 0
	if construct {
		c.linkInstanceProto(abs)
	}

	if len(c.callstack) >= c.limits.RecLimit && flags&flagIgnoreRecLimit == 0 {
		c.Raise(FaultRange, "call stack limit reached")
	}

	fnVal := c.stack[abs]
	thisVal := c.stack[abs+1]

	savedDepth := len(c.callstack)
	savedBottom := c.bottom
	defer func() {
		if r := recover(); r != nil {
			c.callstack = c.callstack[:savedDepth]
			c.bottom = savedBottom
			panic(r)
		}
	}()

	actFlags := uint32(0)
	if construct {
		actFlags |= actFlagConstruct
	}

	var result Value
	switch fnVal.Kind {
	case KindLightFunc:
		// Native re-entry is strict.
		c.pushActivation(fnVal, actFlags|actFlagStrict, abs)
		c.adjustArgs(abs, fnVal.lightArity())
		result = c.runNative(fnVal.Fn)

	case KindObject:
		switch fn := fnVal.Obj.(type) {
		case *NativeFunc:
			c.pushActivation(fnVal, actFlags|actFlagStrict, abs)
			c.adjustArgs(abs, fn.Arity)
			result = c.runNative(fn.Fn)

		case *ScriptFunc:
			if fn.Strict {
				actFlags |= actFlagStrict
			}
			c.pushActivation(fnVal, actFlags, abs)
			c.adjustArgs(abs, fn.Arity)
			for c.top < abs+2+fn.NLocals {
				c.pushValue(Undefined())
			}
			result = c.runChunk(fn.Chunk)

		default:
			c.Raise(FaultType, "%s is not callable", fnVal.Inspect())
		}

	default:
		c.Raise(FaultType, "%s is not callable", fnVal.Inspect())
	}

	// A constructor returning a non-object result is superseded by the
	// default instance.
	if construct && !result.IsObject() && !result.IsLightFunc() {
		result = thisVal
	}

	c.callstack = c.callstack[:savedDepth]
	c.bottom = savedBottom
	c.stack[abs] = result
	c.setTopAbs(abs + 1)
}

// invokeByDepth is invoke against the current top window: the top
// nargs+2 values are [func, this, args...].
func (c *Context) invokeByDepth(nargs int, flags callFlags) {
	idxFunc := c.GetTop() - nargs - 2
	if (idxFunc | nargs) < 0 {
		c.raiseInvalidArgs()
	}
	c.invoke(idxFunc, flags)
}

// pushActivation enters a new frame whose window starts right above the
// receiver slot.
func (c *Context) pushActivation(fn Value, flags uint32, base int) {
	c.callstack = append(c.callstack, Activation{
		fn:         fn,
		flags:      flags,
		base:       base,
		prevBottom: c.bottom,
	})
	c.bottom = base + 2
}

// adjustArgs pads or truncates the argument window to a fixed arity.
func (c *Context) adjustArgs(base int, arity int) {
	if arity < 0 {
		return
	}
	c.setTopAbs(base + 2 + arity)
}

// resolveBoundCall folds a bound function staged at abs into a direct
// call of its target: the bound receiver replaces this (except in
// constructor mode, where the fresh instance stays) and the bound
// leading arguments are inserted ahead of the staged ones. The target
// is non-bound by the binder's construction invariant, so a single
// resolution step suffices.
func (c *Context) resolveBoundCall(abs int, flags callFlags) {
	v := c.stack[abs]
	if v.Kind != KindObject {
		return
	}
	bf, ok := v.Obj.(*BoundFunc)
	if !ok {
		return
	}
	if flags&flagConstruct == 0 {
		c.stack[abs+1] = bf.This
	}
	if len(bf.Args) > 0 {
		c.RequireStack(len(bf.Args))
		c.insertValuesAbs(abs+2, bf.Args)
	}
	c.pushValue(v)
	c.resolveNonbound()
	c.stack[abs] = c.Pop()
}

// linkInstanceProto points the default instance at the callee's own
// "prototype" property when that is a plain object. Lightfunc
// constructors have no properties, so their instances keep the bare
// prototype.
func (c *Context) linkInstanceProto(abs int) {
	fnVal := c.stack[abs]
	if fnVal.Kind != KindObject {
		return
	}
	h := propHolder(fnVal.Obj)
	if h == nil {
		return
	}
	protoVal, ok := h.GetOwn("prototype")
	if !ok || protoVal.Kind != KindObject {
		return
	}
	proto, ok := protoVal.Obj.(*PlainObject)
	if !ok {
		return
	}
	inst := c.stack[abs+1]
	if inst.Kind == KindObject {
		if po, isPlain := inst.Obj.(*PlainObject); isPlain {
			po.SetProto(proto)
		}
	}
}

// runNative dispatches into a native function with the frame window in
// place and interprets its (nresults, error) contract.
func (c *Context) runNative(fn NativeFn) Value {
	rc, err := fn(c)
	if err != nil {
		c.raiseFromError(err)
	}
	switch rc {
	case 0:
		return Undefined()
	case 1:
		if c.top <= c.bottom {
			c.fatal(errStackUnderflow)
		}
		return c.stack[c.top-1]
	default:
		c.Raise(FaultRange, "invalid native result count %d", rc)
		return Undefined() // unreachable
	}
}

// runChunk executes bytecode until a return opcode or a fault. Running
// off the end of the code returns undefined.
func (c *Context) runChunk(ch *Chunk) Value {
	ip := 0
	readByte := func() byte {
		if ip >= len(ch.Code) {
			c.Raise(FaultGeneric, "truncated bytecode in %s", ch.Name)
		}
		b := ch.Code[ip]
		ip++
		return b
	}

	for ip < len(ch.Code) {
		op := Opcode(readByte())
		switch op {
		case OP_CONST:
			idx := int(readByte())<<8 | int(readByte())
			if idx >= len(ch.Constants) {
				c.Raise(FaultGeneric, "invalid constant index %d in %s", idx, ch.Name)
			}
			c.RequireStack(1)
			c.pushValue(ch.Constants[idx])

		case OP_UNDEFINED:
			c.RequireStack(1)
			c.pushValue(Undefined())

		case OP_POP:
			c.Pop()

		case OP_DUP:
			c.RequireStack(1)
			c.Dup(-1)

		case OP_THIS:
			c.RequireStack(1)
			c.pushValue(c.stack[c.bottom-1])

		case OP_GET_LOCAL:
			slot := int(readByte())
			abs := c.bottom + slot
			if abs >= c.top {
				c.Raise(FaultRange, "invalid local slot %d in %s", slot, ch.Name)
			}
			c.RequireStack(1)
			c.pushValue(c.stack[abs])

		case OP_ADD:
			b := c.Pop()
			a := c.Pop()
			c.pushValue(c.addValues(a, b))

		case OP_GET_PROP:
			key := c.Pop()
			base := c.Pop()
			c.pushValue(c.getPropValue(base, key))

		case OP_CALL:
			nargs := int(readByte())
			c.invokeByDepth(nargs, 0)

		case OP_NEW:
			nargs := int(readByte())
			c.New(nargs)

		case OP_RETURN:
			return c.Pop()

		case OP_RETURN_UNDEF:
			return Undefined()

		case OP_THROW:
			c.Throw(c.Pop())

		default:
			c.Raise(FaultGeneric, "unknown opcode %d in %s", op, ch.Name)
		}
	}
	return Undefined()
}

// addValues implements OP_ADD: numeric addition and string concatenation.
func (c *Context) addValues(a, b Value) Value {
	switch {
	case a.IsInt() && b.IsInt():
		return IntVal(a.AsInt() + b.AsInt())
	case a.IsFloat() && b.IsFloat():
		return FloatVal(a.AsFloat() + b.AsFloat())
	case a.IsInt() && b.IsFloat():
		return FloatVal(float64(a.AsInt()) + b.AsFloat())
	case a.IsFloat() && b.IsInt():
		return FloatVal(a.AsFloat() + float64(b.AsInt()))
	case a.IsString() && b.IsString():
		return StrVal(a.Str + b.Str)
	default:
		c.Raise(FaultType, "cannot add %s and %s", a.Inspect(), b.Inspect())
		return Undefined() // unreachable
	}
}
