package engine

import (
	"strings"
	"testing"

	"github.com/corvid-lang/corvid/internal/config"
)

func scriptAdd(t *testing.T) *ScriptFunc {
	t.Helper()
	ch := NewChunk("add")
	ch.WriteOpByte(OP_GET_LOCAL, 0)
	ch.WriteOpByte(OP_GET_LOCAL, 1)
	ch.WriteOp(OP_ADD)
	ch.WriteOp(OP_RETURN)
	return &ScriptFunc{Chunk: ch, Name: "add", Arity: 2, NLocals: 2}
}

func TestScriptFuncRuns(t *testing.T) {
	c := New()
	ch := NewChunk("const")
	ch.WriteConstant(IntVal(2))
	ch.WriteConstant(IntVal(3))
	ch.WriteOp(OP_ADD)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "const", Arity: 0})
	c.Call(0)
	testIntValue(t, c.Pop(), 5)
}

func TestScriptFuncArgs(t *testing.T) {
	c := New()
	c.PushObject(scriptAdd(t))
	c.PushInt(20)
	c.PushInt(22)
	c.Call(2)
	testIntValue(t, c.Pop(), 42)
}

func TestScriptFuncArgAdjustment(t *testing.T) {
	// Missing args read undefined; OP_ADD on undefined faults.
	c := New()
	c.PushObject(scriptAdd(t))
	c.PushInt(1)
	if st := c.PCall(1); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	c.Pop()
}

func TestScriptFuncStringConcat(t *testing.T) {
	c := New()
	c.PushObject(scriptAdd(t))
	c.PushString("cor")
	c.PushString("vid")
	c.Call(2)
	if got := c.Pop(); got.Str != "corvid" {
		t.Errorf("concat: got=%s, want=\"corvid\"", got.Inspect())
	}
}

func TestScriptFuncThis(t *testing.T) {
	c := New()
	ch := NewChunk("self")
	ch.WriteOp(OP_THIS)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "self", Arity: 0})
	c.PushString("receiver")
	c.CallMethod(0)
	if got := c.Pop(); got.Str != "receiver" {
		t.Errorf("this: got=%s, want=\"receiver\"", got.Inspect())
	}
}

func TestScriptCallsNative(t *testing.T) {
	c := New()
	ch := NewChunk("outer")
	ch.WriteOpByte(OP_GET_LOCAL, 0) // the native, passed as arg
	ch.WriteOp(OP_UNDEFINED)        // receiver
	ch.WriteOpByte(OP_CALL, 0)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "outer", Arity: 1, NLocals: 1})
	c.PushNativeFunc(func(c *Context) (int, error) {
		c.RequireStack(1)
		c.PushInt(42)
		return 1, nil
	}, "answer", 0)
	c.Call(1)
	testIntValue(t, c.Pop(), 42)
}

func TestScriptThrow(t *testing.T) {
	c := New()
	ch := NewChunk("thrower")
	ch.WriteConstant(StrVal("thrown from script"))
	ch.WriteOp(OP_THROW)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "thrower", Arity: 0})
	if st := c.PCall(0); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	if got := c.Pop(); got.Str != "thrown from script" {
		t.Errorf("error value: got=%s", got.Inspect())
	}
}

func TestScriptImplicitReturn(t *testing.T) {
	c := New()
	ch := NewChunk("empty")
	c.PushObject(&ScriptFunc{Chunk: ch, Name: "empty", Arity: 0})
	c.Call(0)
	if got := c.Pop(); !got.IsUndefined() {
		t.Errorf("running off the end: got=%s, want=undefined", got.Inspect())
	}
}

func TestScriptPropertyRead(t *testing.T) {
	c := New()
	obj := NewPlainObject()
	obj.Set("x", IntVal(9))

	ch := NewChunk("prop")
	ch.WriteOpByte(OP_GET_LOCAL, 0)
	ch.WriteConstant(StrVal("x"))
	ch.WriteOp(OP_GET_PROP)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "prop", Arity: 1, NLocals: 1})
	c.PushObject(obj)
	c.Call(1)
	testIntValue(t, c.Pop(), 9)
}

func TestScriptDupAndPop(t *testing.T) {
	c := New()
	ch := NewChunk("duppop")
	ch.WriteConstant(IntVal(1))
	ch.WriteOp(OP_DUP)
	ch.WriteOp(OP_ADD)
	ch.WriteConstant(IntVal(99))
	ch.WriteOp(OP_POP)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "duppop", Arity: 0})
	c.Call(0)
	testIntValue(t, c.Pop(), 2)
}

func TestScriptConstructs(t *testing.T) {
	c := New()
	ch := NewChunk("make")
	ch.WriteOpByte(OP_GET_LOCAL, 0) // the constructor, passed as arg
	ch.WriteOpByte(OP_NEW, 0)
	ch.WriteOp(OP_RETURN)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "make", Arity: 1, NLocals: 1})
	c.PushNativeFunc(func(c *Context) (int, error) {
		c.PushThis()
		c.PushBool(true)
		c.PutPropString(-2, "made")
		c.Pop()
		return 0, nil
	}, "Ctor", 0)
	c.Call(1)

	res := c.Pop()
	po, ok := res.Obj.(*PlainObject)
	if !ok {
		t.Fatalf("result is not a plain object. got=%s", res.Inspect())
	}
	if v, ok := po.GetOwn("made"); !ok || !v.AsBool() {
		t.Errorf("constructed instance missing marker: got=%v, ok=%v", v.Inspect(), ok)
	}
}

func TestScriptExplicitUndefReturn(t *testing.T) {
	c := New()
	ch := NewChunk("void")
	ch.WriteConstant(IntVal(1))
	ch.WriteOp(OP_RETURN_UNDEF)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "void", Arity: 0})
	c.Call(0)
	if got := c.Pop(); !got.IsUndefined() {
		t.Errorf("return undef: got=%s", got.Inspect())
	}
}

func TestUnknownOpcode(t *testing.T) {
	c := New()
	ch := NewChunk("weird")
	ch.Write(0xEE)

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "weird", Arity: 0})
	if st := c.PCall(0); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "unknown opcode") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
}

func TestTruncatedBytecode(t *testing.T) {
	c := New()
	ch := NewChunk("bad")
	ch.WriteOp(OP_CONST)
	ch.Write(0) // missing second operand byte

	c.PushObject(&ScriptFunc{Chunk: ch, Name: "bad", Arity: 0})
	if st := c.PCall(0); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "truncated") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
}

func TestAddTypeFault(t *testing.T) {
	c := New()
	c.PushObject(scriptAdd(t))
	c.PushInt(1)
	c.PushObject(NewPlainObject())
	if st := c.PCall(2); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "TypeError") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
}

func TestRecursionLimit(t *testing.T) {
	l, err := config.Limits{RecLimit: 8}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %s", err)
	}
	c := NewWithLimits(l)

	var self *NativeFunc
	self = NewNativeFunc(func(c *Context) (int, error) {
		c.RequireStack(2)
		c.PushObject(self)
		c.Call(0)
		return 1, nil
	}, "recurse", 0)

	c.PushObject(self)
	if st := c.PCall(0); st != ExecError {
		t.Fatalf("status: got=%d, want=%d", st, ExecError)
	}
	errVal := c.Pop()
	if !strings.Contains(errVal.Str, "call stack limit") {
		t.Errorf("error value: got=%s", errVal.Inspect())
	}
	if got := c.Depth(); got != 0 {
		t.Errorf("depth after unwind: got=%d, want=0", got)
	}
}

func TestRecLimitBypassFlag(t *testing.T) {
	l, err := config.Limits{RecLimit: 1}.Normalize()
	if err != nil {
		t.Fatalf("normalize: %s", err)
	}
	c := NewWithLimits(l)

	c.PushNativeFunc(func(c *Context) (int, error) {
		// Already at the limit; a privileged internal call still runs.
		c.RequireStack(2)
		c.PushNativeFunc(nativeSum, "sum", 0)
		c.PushUndefined()
		c.invokeByDepth(0, flagIgnoreRecLimit)
		return 1, nil
	}, "outer", 0)
	c.Call(0)
	testIntValue(t, c.Pop(), 0)
}

func TestNestedCallsRestoreWindow(t *testing.T) {
	c := New()
	c.PushString("outer-slot")

	c.PushNativeFunc(func(c *Context) (int, error) {
		// Re-enter the context from inside the native.
		c.RequireStack(3)
		c.PushNativeFunc(nativeSum, "sum", ArityVariadic)
		c.PushInt(5)
		c.PushInt(6)
		c.Call(2)
		return 1, nil
	}, "outer", 0)
	c.Call(0)

	testIntValue(t, c.Pop(), 11)
	if got := c.Pop(); got.Str != "outer-slot" {
		t.Errorf("outer frame slot: got=%s", got.Inspect())
	}
}

func TestBoundCallReceiverAndArgs(t *testing.T) {
	c := New()
	target := ObjVal(NewNativeFunc(nativeSum, "sum", ArityVariadic))
	bf, err := Bind(target, StrVal("recv"), IntVal(10), IntVal(20))
	if err != nil {
		t.Fatalf("bind: %s", err)
	}

	c.PushObject(bf)
	c.PushInt(12)
	c.Call(1)
	testIntValue(t, c.Pop(), 42)
}

func TestBoundCallReceiver(t *testing.T) {
	c := New()
	target := ObjVal(NewNativeFunc(nativeThis, "self", 0))
	bf, err := Bind(target, StrVal("bound-recv"))
	if err != nil {
		t.Fatalf("bind: %s", err)
	}

	// The bound receiver wins over the staged one.
	c.PushObject(bf)
	c.PushString("staged-recv")
	c.CallMethod(0)
	if got := c.Pop(); got.Str != "bound-recv" {
		t.Errorf("receiver: got=%s, want=\"bound-recv\"", got.Inspect())
	}
}

func TestBoundConstructKeepsInstance(t *testing.T) {
	c := New()
	target := ObjVal(NewNativeFunc(func(c *Context) (int, error) { return 0, nil }, "Ctor", 0))
	bf, err := Bind(target, StrVal("ignored-recv"))
	if err != nil {
		t.Fatalf("bind: %s", err)
	}

	c.PushObject(bf)
	c.New(0)
	res := c.Pop()
	if res.Kind != KindObject {
		t.Fatalf("result: got=%s, want an object", res.Inspect())
	}
	if _, ok := res.Obj.(*PlainObject); !ok {
		t.Errorf("constructing through bound should yield the fresh instance, got=%T", res.Obj)
	}
}

func TestBindFlattens(t *testing.T) {
	target := ObjVal(NewNativeFunc(nativeSum, "sum", ArityVariadic))
	inner, err := Bind(target, StrVal("inner"), IntVal(1))
	if err != nil {
		t.Fatalf("bind: %s", err)
	}
	outer, err := Bind(ObjVal(inner), StrVal("outer"), IntVal(2))
	if err != nil {
		t.Fatalf("bind: %s", err)
	}

	if _, ok := outer.Target.Obj.(*BoundFunc); ok {
		t.Fatalf("flattened target must not be bound")
	}
	if outer.This.Str != "inner" {
		t.Errorf("inner receiver wins: got=%s", outer.This.Inspect())
	}
	if len(outer.Args) != 2 || outer.Args[0].AsInt() != 1 || outer.Args[1].AsInt() != 2 {
		t.Errorf("merged args: got=%v", outer.Args)
	}
}

func TestBindNotCallable(t *testing.T) {
	if _, err := Bind(IntVal(1), Undefined()); err == nil {
		t.Errorf("binding a non-callable should fail")
	}
}

func TestResolveNonboundSingleUnwrap(t *testing.T) {
	c := New()
	target := ObjVal(NewNativeFunc(nativeSum, "sum", 0))

	// A synthetic two-level chain, built directly to bypass the binder's
	// flattening. Resolution performs exactly one unwrap.
	inner := &BoundFunc{Target: target}
	outer := &BoundFunc{Target: ObjVal(inner)}

	c.PushObject(outer)
	c.resolveNonbound()
	got := c.Pop()
	if got.Obj != Object(inner) {
		t.Errorf("one unwrap expected, got=%s", got.Inspect())
	}

	// Non-bound values pass through unchanged.
	c.PushObject(NewPlainObject())
	before := c.GetValue(-1)
	c.resolveNonbound()
	if got := c.Pop(); got.Obj != before.Obj {
		t.Errorf("non-bound value should be untouched")
	}
}

func TestLightFuncCall(t *testing.T) {
	c := New()
	c.PushLightFunc(nativeSum, 0, 2)
	c.PushInt(40)
	c.PushInt(2)
	c.Call(2)
	testIntValue(t, c.Pop(), 42)
}

func TestLightFuncArityAdjustment(t *testing.T) {
	c := New()
	c.PushLightFunc(nativeArgCount, 0, 2)
	c.PushInt(1)
	c.PushInt(2)
	c.PushInt(3)
	c.Call(3)
	testIntValue(t, c.Pop(), 2)

	c.PushLightFunc(nativeArgCount, 0, lightArityVariadic)
	c.PushInt(1)
	c.PushInt(2)
	c.PushInt(3)
	c.Call(3)
	testIntValue(t, c.Pop(), 3)
}
