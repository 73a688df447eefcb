package engine

import "strconv"

// propKey coerces a property key value to its string form.
func propKey(key Value) string {
	switch key.Kind {
	case KindString:
		return key.Str
	case KindInt:
		return strconv.FormatInt(key.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(key.AsFloat(), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(key.AsBool())
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	default:
		return key.Inspect()
	}
}

// getPropValue reads base[key]. Accessor slots are unwrapped by calling
// their getter with base as receiver, which re-enters the call layer
// and may fault; the fault propagates to whatever boundary wraps the
// read. Reads on undefined and null fault. Missing properties on other
// primitives yield undefined.
func (c *Context) getPropValue(base Value, key Value) Value {
	name := propKey(key)

	switch base.Kind {
	case KindUndefined, KindNull:
		c.Raise(FaultType, "cannot read property %q of %s", name, base.Inspect())
	case KindString:
		if name == "length" {
			return IntVal(int64(len(base.Str)))
		}
	case KindLightFunc:
		// Lightfuncs carry only virtual properties.
		if name == "length" {
			if a := base.lightArity(); a >= 0 {
				return IntVal(int64(a))
			}
			return IntVal(0)
		}
	case KindObject:
		for h := propHolder(base.Obj); h != nil; h = h.proto {
			if v, ok := h.props[name]; ok {
				if v.Kind == KindObject {
					if acc, isAcc := v.Obj.(*Accessor); isAcc {
						return c.callGetter(acc, base)
					}
				}
				return v
			}
		}
	}
	return Undefined()
}

// callGetter invokes an accessor getter with the base as receiver.
func (c *Context) callGetter(acc *Accessor, receiver Value) Value {
	c.RequireStack(2)
	c.pushValue(acc.Getter)
	c.pushValue(receiver)
	c.CallMethod(0)
	return c.Pop()
}

// getPropStack implements the stack form of a property read: the key is
// popped from the top and the fetched value pushed in its place.
func (c *Context) getPropStack(objIdx int) {
	base := c.RequireValue(objIdx)
	key := c.Pop()
	v := c.getPropValue(base, key)
	c.pushValue(v)
}

// GetProp reads a property: with the key on the stack top and the
// holder at objIdx, replaces the key with the property value.
func (c *Context) GetProp(objIdx int) {
	objIdx = c.RequireNormalizeIndex(objIdx)
	c.getPropStack(objIdx)
}

// GetPropString pushes the value of the named property of objIdx.
func (c *Context) GetPropString(objIdx int, name string) {
	objIdx = c.RequireNormalizeIndex(objIdx)
	c.RequireStack(1)
	c.PushString(name)
	c.getPropStack(objIdx)
}

// PutPropString pops the stack top and stores it as the named property
// of the object at objIdx. Faults when objIdx is not a heap object.
func (c *Context) PutPropString(objIdx int, name string) {
	base := c.RequireValue(objIdx)
	v := c.Pop()
	if base.Kind != KindObject {
		c.Raise(FaultType, "cannot write property %q of %s", name, base.Inspect())
	}
	h := propHolder(base.Obj)
	if h == nil {
		c.Raise(FaultType, "cannot write property %q of %s", name, base.Inspect())
	}
	h.Set(name, v)
}
