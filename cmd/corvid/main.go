package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/corvid-lang/corvid/internal/config"
	corvid "github.com/corvid-lang/corvid/pkg/embed"
	"github.com/corvid-lang/corvid/pkg/engine"
	"github.com/corvid-lang/corvid/pkg/modules/kvmod"
)

var (
	limitsPath = flag.String("limits", "", "path to a YAML limits file")
	kvPath     = flag.String("kv", ":memory:", "DSN of the kv store (\":memory:\" for ephemeral)")
)

func fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		msg = "\x1b[31m" + msg + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func main() {
	flag.Parse()

	limits := config.DefaultLimits()
	if *limitsPath != "" {
		var err error
		limits, err = config.LoadLimits(*limitsPath)
		if err != nil {
			fatalf("loading limits: %s", err)
		}
	}

	vm := corvid.NewWithLimits(limits)

	// Host bindings available to calls by name.
	if err := vm.Bind("join", func(sep string, parts ...string) string {
		return strings.Join(parts, sep)
	}); err != nil {
		fatalf("bind: %s", err)
	}
	if err := vm.Bind("add", func(a, b int64) int64 { return a + b }); err != nil {
		fatalf("bind: %s", err)
	}

	// kv store attached as a global module object.
	store, err := kvmod.Open(*kvPath)
	if err != nil {
		fatalf("%s", err)
	}
	defer store.Close()

	c := vm.Context()
	obj := store.Push(c)
	c.Pop()
	vm.Globals().Set("kv", engine.ObjVal(obj))

	// Demo sequence: a host call, a kv round trip through the call
	// layer, and a protected call observing a fault.
	sum, err := vm.Call("add", 40, 2)
	if err != nil {
		fatalf("add: %s", err)
	}
	fmt.Println("add(40, 2) =", sum)

	joined, err := vm.Call("join", "-", "a", "b", "c")
	if err != nil {
		fatalf("join: %s", err)
	}
	fmt.Println("join =", joined)

	c.PushObject(obj)
	c.PushString("put")
	c.PushString("greeting")
	c.PushString("hello")
	if st := c.PCallProp(-4, 2); st != engine.ExecSuccess {
		fatalf("kv.put: %s", c.Pop().Inspect())
	}
	c.PopN(2) // result and the kv object

	c.PushObject(obj)
	c.PushString("get")
	c.PushString("greeting")
	if st := c.PCallProp(-3, 1); st != engine.ExecSuccess {
		fatalf("kv.get: %s", c.Pop().Inspect())
	}
	fmt.Println("kv.get(greeting) =", c.Pop().Inspect())
	c.Pop() // the kv object

	// A fault in a protected call surfaces as a status, not a crash.
	c.PushNativeFunc(func(c *engine.Context) (int, error) {
		return 0, fmt.Errorf("deliberate failure")
	}, "boom", 0)
	if st := c.PCall(0); st == engine.ExecError {
		fmt.Println("caught:", c.Pop().Inspect())
	} else {
		c.Pop()
	}
}
