package engine

import (
	"strings"
	"testing"
)

func TestSafeCallSuccess(t *testing.T) {
	c := New()
	c.PushInt(1)
	c.PushInt(2)

	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		a := c.GetValue(-2).AsInt()
		b := c.GetValue(-1).AsInt()
		c.RequireStack(1)
		c.PushInt(a * b)
		return 1, nil
	}, nil, 2, 1)

	if st != ExecSuccess {
		t.Fatalf("status: got=%d, want=%d", st, ExecSuccess)
	}
	if got := c.GetTop(); got != 1 {
		t.Fatalf("top: got=%d, want=1", got)
	}
	testIntValue(t, c.Pop(), 2)
}

func TestSafeCallTruncatesExtraResults(t *testing.T) {
	c := New()
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		c.RequireStack(2)
		c.PushString("first")
		c.PushString("second")
		return 2, nil
	}, nil, 0, 1)

	if st != ExecSuccess {
		t.Fatalf("status: got=%d, want=%d", st, ExecSuccess)
	}
	if got := c.Pop(); got.Str != "first" {
		t.Errorf("kept result: got=%s, want=\"first\"", got.Inspect())
	}
}

func TestSafeCallPadsMissingResults(t *testing.T) {
	c := New()
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		return 0, nil
	}, nil, 0, 2)

	if st != ExecSuccess {
		t.Fatalf("status: got=%d, want=%d", st, ExecSuccess)
	}
	if got := c.GetTop(); got != 2 {
		t.Fatalf("top: got=%d, want=2", got)
	}
	if !c.Pop().IsUndefined() || !c.Pop().IsUndefined() {
		t.Errorf("missing results should read undefined")
	}
}

func TestSafeCallConsumesInputs(t *testing.T) {
	c := New()
	c.PushString("keep")
	c.PushInt(1)
	c.PushInt(2)

	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		return 0, nil
	}, nil, 2, 0)

	if st != ExecSuccess {
		t.Fatalf("status: got=%d, want=%d", st, ExecSuccess)
	}
	if got := c.GetTop(); got != 1 {
		t.Fatalf("top: got=%d, want=1", got)
	}
	if got := c.Pop(); got.Str != "keep" {
		t.Errorf("slot below inputs: got=%s", got.Inspect())
	}
}

func TestSafeCallErrorReturn(t *testing.T) {
	c := New()
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		return 0, errTestBoom
	}, nil, 0, 1)

	if st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "boom") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
}

func TestSafeCallZeroNretsDropsError(t *testing.T) {
	c := New()
	c.PushString("keep")
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		c.Raise(FaultGeneric, "discarded")
		return 0, nil
	}, nil, 0, 0)

	if st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	if got := c.GetTop(); got != 1 {
		t.Fatalf("top: got=%d, want=1", got)
	}
	if got := c.Pop(); got.Str != "keep" {
		t.Errorf("stack: got=%s", got.Inspect())
	}
}

func TestSafeCallRestoresFramesOnFault(t *testing.T) {
	c := New()
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		// A nested call that faults mid-execution, leaving activations
		// to unwind.
		c.RequireStack(2)
		c.PushNativeFunc(func(c *Context) (int, error) {
			c.Raise(FaultType, "inner")
			return 0, nil
		}, "inner", 0)
		c.Call(0)
		return 1, nil
	}, nil, 0, 1)

	if st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	if got := c.Depth(); got != 0 {
		t.Errorf("call depth after unwind: got=%d, want=0", got)
	}
	if got := c.GetTop(); got != 1 {
		t.Errorf("top after unwind: got=%d, want=1", got)
	}
	c.Pop()
}

func TestSafeCallThrownValuePreserved(t *testing.T) {
	c := New()
	thrown := ObjVal(NewPlainObject())
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		c.Throw(thrown)
		return 0, nil
	}, nil, 0, 1)

	if st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	if got := c.Pop(); got.Obj != thrown.Obj {
		t.Errorf("caught value is not the thrown value: got=%s", got.Inspect())
	}
}

func TestSafeCallInvalidCounts(t *testing.T) {
	c := New()
	nop := func(c *Context, udata interface{}) (int, error) { return 0, nil }

	expectFault(t, FaultInvalidArgument, func() { c.SafeCall(nop, nil, -1, 0) })
	expectFault(t, FaultInvalidArgument, func() { c.SafeCall(nop, nil, 0, -1) })
	// More inputs than the frame holds.
	expectFault(t, FaultInvalidArgument, func() { c.SafeCall(nop, nil, 1, 0) })
}

func TestSafeCallInvalidCountsDoNotMutate(t *testing.T) {
	c := New()
	c.PushInt(1)
	func() {
		defer func() { recover() }()
		c.SafeCall(func(c *Context, udata interface{}) (int, error) { return 0, nil }, nil, 5, 0)
	}()
	if got := c.GetTop(); got != 1 {
		t.Errorf("top after rejected counts: got=%d, want=1", got)
	}
	testIntValue(t, c.GetValue(0), 1)
}

func TestSafeCallBadResultCount(t *testing.T) {
	c := New()
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		return 5, nil // claims results it never pushed
	}, nil, 0, 1)

	if st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "RangeError") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
}

func TestSafeCallNonFaultPanicPropagates(t *testing.T) {
	c := New()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected the panic to propagate")
		}
		if s, ok := r.(string); !ok || s != "corruption" {
			t.Errorf("panic payload: got=%v", r)
		}
	}()
	c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		panic("corruption")
	}, nil, 0, 0)
}

func TestSafeCallUdata(t *testing.T) {
	c := New()
	type req struct{ n int64 }
	st := c.SafeCall(func(c *Context, udata interface{}) (int, error) {
		r := udata.(*req)
		c.RequireStack(1)
		c.PushInt(r.n * 2)
		return 1, nil
	}, &req{n: 21}, 0, 1)

	if st != ExecSuccess {
		t.Fatalf("status: got=%d, want=%d", st, ExecSuccess)
	}
	testIntValue(t, c.Pop(), 42)
}

func TestUnprotectedFaultReachesEmbedder(t *testing.T) {
	c := New()
	c.PushNativeFunc(func(c *Context) (int, error) {
		c.Raise(FaultType, "unprotected")
		return 0, nil
	}, "boom", 0)
	expectFault(t, FaultType, func() { c.Call(0) })
	if got := c.Depth(); got != 0 {
		t.Errorf("call depth after unwind: got=%d, want=0", got)
	}
}
