package corvid

import (
	"fmt"
	"reflect"

	"github.com/corvid-lang/corvid/internal/config"
	"github.com/corvid-lang/corvid/pkg/engine"
)

// VM wraps an engine context and provides a high-level embedding API.
// Names bound through the VM live in a global object; Call stages the
// named function on the engine stack and runs it under a protected
// boundary, so a fault in the callee comes back as an error instead of
// unwinding through the host.
type VM struct {
	ctx        *engine.Context
	marshaller *Marshaller
	globals    *engine.PlainObject
}

// New creates a new VM with default limits.
func New() *VM {
	return NewWithLimits(config.DefaultLimits())
}

// NewWithLimits creates a new VM with explicit engine limits.
func NewWithLimits(l config.Limits) *VM {
	return &VM{
		ctx:        engine.NewWithLimits(l),
		marshaller: NewMarshaller(),
		globals:    engine.NewPlainObject(),
	}
}

// Context exposes the underlying engine context for direct stack work.
func (v *VM) Context() *engine.Context {
	return v.ctx
}

// Globals exposes the global object holding the VM's bindings.
func (v *VM) Globals() *engine.PlainObject {
	return v.globals
}

// Bind registers a Go value under a global name. Functions are wrapped
// as native function objects; anything else is marshalled to a value.
func (v *VM) Bind(name string, val interface{}) error {
	rv := reflect.ValueOf(val)
	if rv.Kind() == reflect.Func {
		arity := rv.Type().NumIn()
		if rv.Type().IsVariadic() {
			arity = engine.ArityVariadic
		}
		nf := engine.NewNativeFunc(v.wrapFunc(name, rv), name, arity)
		v.globals.Set(name, engine.ObjVal(nf))
		return nil
	}
	obj, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("bind %s: %w", name, err)
	}
	v.globals.Set(name, obj)
	return nil
}

// Set sets a global variable. Use this for data objects; for functions,
// prefer Bind.
func (v *VM) Set(name string, val interface{}) error {
	obj, err := v.marshaller.ToValue(val)
	if err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	v.globals.Set(name, obj)
	return nil
}

// Get retrieves a global variable.
func (v *VM) Get(name string) (interface{}, error) {
	obj, ok := v.globals.Get(name)
	if !ok {
		return nil, fmt.Errorf("variable '%s' not found", name)
	}
	return v.marshaller.FromValue(obj, nil)
}

// Call calls a global function by name with marshalled arguments. The
// call is protected: a fault in the callee is returned as an error.
func (v *VM) Call(funcName string, args ...interface{}) (interface{}, error) {
	fnVal, ok := v.globals.Get(funcName)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", funcName)
	}

	c := v.ctx
	c.RequireStack(len(args) + 1)
	c.Push(fnVal)
	for i, arg := range args {
		av, err := v.marshaller.ToValue(arg)
		if err != nil {
			c.PopN(i + 1) // drop the staged function and arguments
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		c.Push(av)
	}

	if st := c.PCall(len(args)); st != engine.ExecSuccess {
		errVal := c.Pop()
		return nil, fmt.Errorf("%s: %s", funcName, errVal.Inspect())
	}
	return v.marshaller.FromValue(c.Pop(), nil)
}

// Construct invokes a global function as a constructor and returns the
// resulting instance.
func (v *VM) Construct(funcName string, args ...interface{}) (interface{}, error) {
	fnVal, ok := v.globals.Get(funcName)
	if !ok {
		return nil, fmt.Errorf("function '%s' not found", funcName)
	}

	c := v.ctx
	c.RequireStack(len(args) + 1)
	c.Push(fnVal)
	for i, arg := range args {
		av, err := v.marshaller.ToValue(arg)
		if err != nil {
			c.PopN(i + 1)
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		c.Push(av)
	}

	if st := c.PNew(len(args)); st != engine.ExecSuccess {
		errVal := c.Pop()
		return nil, fmt.Errorf("new %s: %s", funcName, errVal.Inspect())
	}
	res := c.Pop()
	if res.Kind == engine.KindObject {
		return res.Obj, nil
	}
	return v.marshaller.FromValue(res, nil)
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// wrapFunc adapts a Go function to the engine's native calling
// convention. Arguments are read from the call window and converted to
// the function's parameter types; a trailing error return is raised as
// a fault, remaining returns become the result.
func (v *VM) wrapFunc(name string, fn reflect.Value) engine.NativeFn {
	fnType := fn.Type()
	numIn := fnType.NumIn()
	isVariadic := fnType.IsVariadic()

	return func(c *engine.Context) (int, error) {
		navail := c.GetTop()
		if isVariadic {
			if navail < numIn-1 {
				return 0, fmt.Errorf("%s: expected at least %d arguments, got %d", name, numIn-1, navail)
			}
		} else if navail != numIn {
			return 0, fmt.Errorf("%s: expected %d arguments, got %d", name, numIn, navail)
		}

		goArgs := make([]reflect.Value, navail)
		for i := 0; i < navail; i++ {
			var targetType reflect.Type
			if isVariadic && i >= numIn-1 {
				targetType = fnType.In(numIn - 1).Elem()
			} else {
				targetType = fnType.In(i)
			}

			val, err := v.marshaller.FromValue(c.GetValue(i), targetType)
			if err != nil {
				return 0, fmt.Errorf("%s: argument %d conversion failed: %w", name, i, err)
			}
			if val == nil {
				goArgs[i] = reflect.Zero(targetType)
				continue
			}
			rv := reflect.ValueOf(val)
			if !rv.Type().AssignableTo(targetType) {
				if !rv.Type().ConvertibleTo(targetType) {
					return 0, fmt.Errorf("%s: argument %d: cannot convert %s to %s", name, i, rv.Type(), targetType)
				}
				rv = rv.Convert(targetType)
			}
			goArgs[i] = rv
		}

		results := fn.Call(goArgs)

		// A trailing error return is the native error contract.
		if n := len(results); n > 0 && fnType.Out(n-1) == errType {
			if !results[n-1].IsNil() {
				return 0, results[n-1].Interface().(error)
			}
			results = results[:n-1]
		}

		switch len(results) {
		case 0:
			return 0, nil
		case 1:
			out, err := v.marshaller.ToValue(results[0].Interface())
			if err != nil {
				return 0, fmt.Errorf("%s: result conversion failed: %w", name, err)
			}
			c.RequireStack(1)
			c.Push(out)
			return 1, nil
		default:
			// Multiple returns -> object with numeric keys
			obj := engine.NewPlainObject()
			for i, res := range results {
				out, err := v.marshaller.ToValue(res.Interface())
				if err != nil {
					return 0, fmt.Errorf("%s: result %d conversion failed: %w", name, i, err)
				}
				obj.Set(fmt.Sprintf("%d", i), out)
			}
			obj.Set("length", engine.IntVal(int64(len(results))))
			c.RequireStack(1)
			c.Push(engine.ObjVal(obj))
			return 1, nil
		}
	}
}
