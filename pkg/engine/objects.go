package engine

import "fmt"

// ArityVariadic marks a function that takes its arguments as-is, with
// no adjustment to a fixed parameter count.
const ArityVariadic = -1

// Object is the interface of heap-allocated values. The set of
// implementations is closed: PlainObject, NativeFunc, ScriptFunc,
// BoundFunc and Accessor. Call dispatch works by type switch on the
// concrete type, never by runtime capability probing.
type Object interface {
	Inspect() string
}

// PlainObject is an ordinary object: a property map plus a prototype
// link. It also serves as the embedded property holder of the function
// object kinds, since functions carry properties too ("prototype" in
// particular).
type PlainObject struct {
	props map[string]Value
	proto *PlainObject
}

// NewPlainObject creates an empty object with no prototype.
func NewPlainObject() *PlainObject {
	return &PlainObject{}
}

func (o *PlainObject) Inspect() string { return "<object>" }

// Proto returns the prototype link (nil for none).
func (o *PlainObject) Proto() *PlainObject { return o.proto }

// SetProto replaces the prototype link.
func (o *PlainObject) SetProto(p *PlainObject) { o.proto = p }

// GetOwn looks up an own property, ignoring the prototype chain.
func (o *PlainObject) GetOwn(name string) (Value, bool) {
	v, ok := o.props[name]
	return v, ok
}

// Get looks up a property along the prototype chain.
func (o *PlainObject) Get(name string) (Value, bool) {
	for cur := o; cur != nil; cur = cur.proto {
		if v, ok := cur.props[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

// Own returns a copy of the own property map.
func (o *PlainObject) Own() map[string]Value {
	out := make(map[string]Value, len(o.props))
	for k, v := range o.props {
		out[k] = v
	}
	return out
}

// Set writes an own property.
func (o *PlainObject) Set(name string, v Value) {
	if o.props == nil {
		o.props = make(map[string]Value)
	}
	o.props[name] = v
}

// NativeFunc is a heap-allocated native function: a Go function plus a
// mutable 16-bit magic tag. Unlike a lightfunc it can carry properties
// and its magic can be changed after creation.
type NativeFunc struct {
	PlainObject
	Fn    NativeFn
	Name  string
	Arity int // ArityVariadic for no argument adjustment
	Magic int16
}

// NewNativeFunc creates a native function object.
func NewNativeFunc(fn NativeFn, name string, arity int) *NativeFunc {
	return &NativeFunc{Fn: fn, Name: name, Arity: arity}
}

func (f *NativeFunc) Inspect() string { return fmt.Sprintf("<native %s>", f.Name) }

// ScriptFunc is an interpreted function compiled to bytecode. Script
// functions have no magic; magic queries against them yield 0.
type ScriptFunc struct {
	PlainObject
	Chunk   *Chunk
	Name    string
	Arity   int
	NLocals int // local slots including parameters
	Strict  bool
}

func (f *ScriptFunc) Inspect() string { return fmt.Sprintf("<function %s>", f.Name) }

// BoundFunc pre-applies a receiver and leading arguments to a target
// callable. The binder flattens bound-over-bound at construction, so
// Target is never itself a BoundFunc; resolution relies on that and
// performs exactly one unwrap.
type BoundFunc struct {
	PlainObject
	Target Value
	This   Value
	Args   []Value
}

func (f *BoundFunc) Inspect() string { return "<bound function>" }

// Bind creates a bound function over target with a fixed receiver and
// leading arguments. Binding an already-bound function folds through to
// its target: the inner receiver wins and the inner leading arguments
// come first, which keeps the non-bound-target invariant.
func Bind(target Value, this Value, args ...Value) (*BoundFunc, error) {
	if !target.IsCallable() {
		return nil, fmt.Errorf("bind target is not callable: %s", target.Inspect())
	}
	if target.Kind == KindObject {
		if inner, ok := target.Obj.(*BoundFunc); ok {
			merged := make([]Value, 0, len(inner.Args)+len(args))
			merged = append(merged, inner.Args...)
			merged = append(merged, args...)
			return &BoundFunc{Target: inner.Target, This: inner.This, Args: merged}, nil
		}
	}
	return &BoundFunc{Target: target, This: this, Args: args}, nil
}

// Accessor is a property slot whose reads go through a getter call.
// Stored as the property's value; the property layer unwraps it.
type Accessor struct {
	Getter Value
}

func (a *Accessor) Inspect() string { return "<accessor>" }

// propHolder returns the embedded property object of any heap kind.
func propHolder(o Object) *PlainObject {
	switch h := o.(type) {
	case *PlainObject:
		return h
	case *NativeFunc:
		return &h.PlainObject
	case *ScriptFunc:
		return &h.PlainObject
	case *BoundFunc:
		return &h.PlainObject
	default:
		return nil
	}
}
