package engine

// Value stack layout: one absolute slice shared by all activations of a
// context. bottom/top/end are absolute markers with bottom <= top <= end
// at all times. Slots below bottom belong to outer frames and are never
// touched by stack operations of the current frame.
//
// Public indices are frame-relative: 0 is the current frame's bottom,
// negative indices count back from the top. end is the guaranteed
// reserve; pushing past it faults, use CheckStack/RequireStack to grow
// the reserve first.

// GetTop returns the number of values in the current frame.
func (c *Context) GetTop() int {
	return c.top - c.bottom
}

// normalizeAbs turns a frame-relative index into an absolute slot, or
// ok=false when it falls outside the current frame.
func (c *Context) normalizeAbs(idx int) (int, bool) {
	n := c.top - c.bottom
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		return 0, false
	}
	return c.bottom + idx, true
}

// requireNormalizeAbs is normalizeAbs that faults on an invalid index.
func (c *Context) requireNormalizeAbs(idx int) int {
	abs, ok := c.normalizeAbs(idx)
	if !ok {
		c.Raise(FaultRange, "invalid stack index %d", idx)
	}
	return abs
}

// IsValidIndex reports whether idx resolves to a value in this frame.
func (c *Context) IsValidIndex(idx int) bool {
	_, ok := c.normalizeAbs(idx)
	return ok
}

// RequireNormalizeIndex normalizes idx to a non-negative frame-relative
// index, faulting when it is out of range.
func (c *Context) RequireNormalizeIndex(idx int) int {
	return c.requireNormalizeAbs(idx) - c.bottom
}

// GetValue returns the value at idx, or undefined for an invalid index.
func (c *Context) GetValue(idx int) Value {
	abs, ok := c.normalizeAbs(idx)
	if !ok {
		return Undefined()
	}
	return c.stack[abs]
}

// RequireValue returns the value at idx, faulting on an invalid index.
func (c *Context) RequireValue(idx int) Value {
	return c.stack[c.requireNormalizeAbs(idx)]
}

// RequireString returns the string at idx, faulting when the slot does
// not hold one.
func (c *Context) RequireString(idx int) string {
	v := c.RequireValue(idx)
	if v.Kind != KindString {
		c.Raise(FaultType, "string required at index %d, got %s", idx, v.Inspect())
	}
	return v.Str
}

// CheckStack ensures reserve for extra more pushes, growing the stack if
// allowed. Returns false when the limit would be exceeded.
func (c *Context) CheckStack(extra int) bool {
	if extra < 0 {
		return false
	}
	target := c.top + extra
	if target <= c.end {
		return true
	}
	if target > c.limits.ValstackLimit {
		return false
	}
	if target > len(c.stack) {
		grown := len(c.stack)
		for grown < target {
			grown += valstackGrowthIncrement
		}
		if grown > c.limits.ValstackLimit {
			grown = c.limits.ValstackLimit
		}
		next := make([]Value, grown)
		copy(next, c.stack[:c.top])
		c.stack = next
	}
	c.end = target
	return true
}

// RequireStack is CheckStack that faults instead of returning false.
func (c *Context) RequireStack(extra int) {
	if !c.CheckStack(extra) {
		c.Raise(FaultRange, "value stack limit reached")
	}
}

// pushValue pushes within the guaranteed reserve.
func (c *Context) pushValue(v Value) {
	if c.top >= c.end {
		c.Raise(FaultRange, "pushing beyond value stack reserve")
	}
	c.stack[c.top] = v
	c.top++
}

// setTopAbs moves the absolute top, padding with undefined on the way up
// and clearing dropped slots on the way down.
func (c *Context) setTopAbs(abs int) {
	if abs < c.bottom {
		c.fatal(errStackUnderflow)
	}
	for c.top < abs {
		c.pushValue(Undefined())
	}
	for c.top > abs {
		c.top--
		c.stack[c.top] = Value{}
	}
}

// SetTop adjusts the frame's value count, popping or padding with
// undefined. A negative count faults.
func (c *Context) SetTop(n int) {
	if n < 0 {
		c.Raise(FaultRange, "invalid top %d", n)
	}
	target := c.bottom + n
	if target > c.end {
		c.RequireStack(n - c.GetTop())
	}
	c.setTopAbs(target)
}

// Pop removes and returns the top value.
func (c *Context) Pop() Value {
	if c.top <= c.bottom {
		c.Raise(FaultRange, "cannot pop, frame empty")
	}
	c.top--
	v := c.stack[c.top]
	c.stack[c.top] = Value{}
	return v
}

// PopN removes the top n values.
func (c *Context) PopN(n int) {
	if n < 0 || c.top-n < c.bottom {
		c.Raise(FaultRange, "cannot pop %d values", n)
	}
	c.setTopAbs(c.top - n)
}

// Push pushes an arbitrary value.
func (c *Context) Push(v Value) {
	c.pushValue(v)
}

func (c *Context) PushUndefined()       { c.pushValue(Undefined()) }
func (c *Context) PushNull()            { c.pushValue(Null()) }
func (c *Context) PushBool(v bool)      { c.pushValue(BoolVal(v)) }
func (c *Context) PushInt(v int64)      { c.pushValue(IntVal(v)) }
func (c *Context) PushFloat(v float64)  { c.pushValue(FloatVal(v)) }
func (c *Context) PushString(s string)  { c.pushValue(StrVal(s)) }
func (c *Context) PushObject(o Object)  { c.pushValue(ObjVal(o)) }

// PushThis pushes the receiver of the current activation. Faults when
// no call is in progress.
func (c *Context) PushThis() {
	if len(c.callstack) == 0 {
		c.Raise(FaultType, "no active call")
	}
	c.RequireStack(1)
	c.pushValue(c.stack[c.bottom-1])
}

// PushNewObject pushes a fresh empty object and returns it, so the host
// can keep populating it.
func (c *Context) PushNewObject() *PlainObject {
	o := NewPlainObject()
	c.pushValue(ObjVal(o))
	return o
}

// PushNativeFunc pushes a heap native function and returns it.
func (c *Context) PushNativeFunc(fn NativeFn, name string, arity int) *NativeFunc {
	f := NewNativeFunc(fn, name, arity)
	c.pushValue(ObjVal(f))
	return f
}

// PushLightFunc pushes an immediate callable.
func (c *Context) PushLightFunc(fn NativeFn, magic int16, arity uint8) {
	c.pushValue(LightFuncVal(fn, magic, arity))
}

// Dup pushes a copy of the value at idx.
func (c *Context) Dup(idx int) {
	v := c.RequireValue(idx)
	c.pushValue(v)
}

// Insert moves the top value to idx, shifting the values above up by
// one. The index is normalized while the top value is still counted.
func (c *Context) Insert(idx int) {
	abs := c.requireNormalizeAbs(idx)
	if c.top <= c.bottom {
		c.Raise(FaultRange, "cannot insert, frame empty")
	}
	v := c.stack[c.top-1]
	copy(c.stack[abs+1:c.top], c.stack[abs:c.top-1])
	c.stack[abs] = v
}

// Replace overwrites the value at idx with the popped top value.
func (c *Context) Replace(idx int) {
	abs := c.requireNormalizeAbs(idx)
	v := c.Pop()
	if abs < c.top {
		c.stack[abs] = v
	}
}

// Remove deletes the value at idx, shifting the values above down.
func (c *Context) Remove(idx int) {
	abs := c.requireNormalizeAbs(idx)
	copy(c.stack[abs:c.top-1], c.stack[abs+1:c.top])
	c.top--
	c.stack[c.top] = Value{}
}

// insertUndefinedAbs opens a hole at an absolute slot and writes
// undefined into it. Used by call staging to synthesize a receiver.
func (c *Context) insertUndefinedAbs(abs int) {
	if c.top >= c.end {
		c.Raise(FaultRange, "pushing beyond value stack reserve")
	}
	copy(c.stack[abs+1:c.top+1], c.stack[abs:c.top])
	c.stack[abs] = Undefined()
	c.top++
}

// insertValuesAbs opens a hole of len(vs) slots at abs. Caller has
// ensured reserve.
func (c *Context) insertValuesAbs(abs int, vs []Value) {
	n := len(vs)
	if n == 0 {
		return
	}
	if c.top+n > c.end {
		c.Raise(FaultRange, "pushing beyond value stack reserve")
	}
	copy(c.stack[abs+n:c.top+n], c.stack[abs:c.top])
	copy(c.stack[abs:abs+n], vs)
	c.top += n
}
